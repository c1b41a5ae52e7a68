package imapclient

import (
	"strings"
	"time"

	"github.com/aerc-mail/imapworker"
)

// MailboxFlag is a flag applicable to messages of a mailbox.
type MailboxFlag struct {
	Name imapworker.Flag
	// Permanent is set for flags listed in PERMANENTFLAGS.
	Permanent bool
}

// Mailbox is the cached state of a mailbox.
//
// Counters are -1 until reported by the server.
type Mailbox struct {
	Name      string
	Exists    int
	Recent    int
	Unseen    int
	NextUID   int64
	ReadWrite bool
	Selected  bool
	// Attrs holds the attributes returned by LIST.
	Attrs    []imapworker.MailboxAttr
	Flags    []MailboxFlag
	Messages []*Message
}

func newMailbox(name string) *Mailbox {
	return &Mailbox{
		Name:    name,
		Exists:  -1,
		Recent:  -1,
		Unseen:  -1,
		NextUID: -1,
	}
}

// HasAttr checks whether the mailbox has a LIST attribute.
func (mbox *Mailbox) HasAttr(attr imapworker.MailboxAttr) bool {
	for _, a := range mbox.Attrs {
		if strings.EqualFold(string(a), string(attr)) {
			return true
		}
	}
	return false
}

// Message looks up a message by index.
func (mbox *Mailbox) Message(index int) *Message {
	for _, msg := range mbox.Messages {
		if msg.Index == index {
			return msg
		}
	}
	return nil
}

// HeaderField is a message header field.
type HeaderField struct {
	Key   string
	Value string
}

// Param is a MIME parameter.
type Param struct {
	Key   string
	Value string
}

// Part is a MIME body part.
type Part struct {
	Type        string
	Subtype     string
	Params      []Param
	ID          string
	Description string
	Encoding    string
	Size        int64
	// Section is the part specifier used to fetch the part, e.g. "2.1".
	Section string

	// MultipartSubtype and Parts are set for multipart parts.
	MultipartSubtype string
	Parts            []*Part

	// Content is the decoded content, nil until fetched. It is never
	// mutated once set.
	Content []byte
}

// Param returns the value of a parameter. Keys are case-insensitive.
func (part *Part) Param(key string) string {
	for _, p := range part.Params {
		if strings.EqualFold(p.Key, key) {
			return p.Value
		}
	}
	return ""
}

func findPart(parts []*Part, section string) *Part {
	for _, part := range parts {
		if part.Section == section {
			return part
		}
		if strings.HasPrefix(section, part.Section+".") {
			if sub := findPart(part.Parts, section); sub != nil {
				return sub
			}
		}
	}
	return nil
}

// FetchAttr is a set of FETCH attributes.
type FetchAttr uint8

const (
	FetchUID FetchAttr = 1 << iota
	FetchFlags
	FetchInternalDate
	FetchBodyStructure
	FetchHeaders

	// FetchAll is the set requested by FetchRange.
	FetchAll = FetchUID | FetchFlags | FetchInternalDate | FetchBodyStructure | FetchHeaders
)

// Message is the cached state of a message.
type Message struct {
	// Index is the zero-based sequence number.
	Index int
	// UID is -1 until known.
	UID          int64
	InternalDate time.Time
	Flags        []imapworker.Flag
	Headers      []HeaderField
	// Parts are the top-level body parts. For a multipart message,
	// MultipartSubtype holds its subtype.
	Parts            []*Part
	MultipartSubtype string

	// Fetching is set while a FETCH covering the message is in flight.
	Fetching bool
	// Populated is set once every attribute of FetchAll has been received.
	Populated bool
	// Seen accumulates the attributes received over the message lifetime.
	Seen FetchAttr
}

func newMessage(index int) *Message {
	return &Message{Index: index, UID: -1}
}

// HasFlag checks whether the message has a flag.
func (msg *Message) HasFlag(flag imapworker.Flag) bool {
	for _, f := range msg.Flags {
		if f.EqualFold(flag) {
			return true
		}
	}
	return false
}

// Part returns the part with the given section, if known.
func (msg *Message) Part(section string) *Part {
	return findPart(msg.Parts, section)
}

func (msg *Message) markSeen(attrs FetchAttr) {
	msg.Seen |= attrs
	msg.Populated = msg.Seen&FetchAll == FetchAll
}

// Cache holds the mailboxes known to a client.
type Cache struct {
	Mailboxes []*Mailbox
}

func mailboxNameEqual(a, b string) bool {
	if strings.EqualFold(a, "INBOX") {
		return strings.EqualFold(b, "INBOX")
	}
	return a == b
}

// Mailbox looks up a mailbox by name.
func (c *Cache) Mailbox(name string) *Mailbox {
	for _, mbox := range c.Mailboxes {
		if mailboxNameEqual(mbox.Name, name) {
			return mbox
		}
	}
	return nil
}

// GetOrCreate looks up a mailbox by name, adding it if missing.
func (c *Cache) GetOrCreate(name string) *Mailbox {
	if mbox := c.Mailbox(name); mbox != nil {
		return mbox
	}
	mbox := newMailbox(name)
	c.Mailboxes = append(c.Mailboxes, mbox)
	return mbox
}

// Remove removes a mailbox. It reports whether the mailbox was present.
func (c *Cache) Remove(name string) bool {
	for i, mbox := range c.Mailboxes {
		if mailboxNameEqual(mbox.Name, name) {
			c.Mailboxes = append(c.Mailboxes[:i], c.Mailboxes[i+1:]...)
			return true
		}
	}
	return false
}
