package worker

import (
	"strings"
	"time"

	"github.com/aerc-mail/imapworker"
	"github.com/aerc-mail/imapworker/imapclient"
)

// MailboxSnapshot is a copy of a cached mailbox, safe to hand over to
// another goroutine.
type MailboxSnapshot struct {
	Name      string
	Exists    int
	Recent    int
	Unseen    int
	NextUID   int64
	ReadWrite bool
	Selected  bool
	Attrs     []imapworker.MailboxAttr
	Flags     []imapclient.MailboxFlag
	Messages  []*MessageSnapshot
}

// MessageSnapshot is a copy of a cached message.
type MessageSnapshot struct {
	Index            int
	UID              int64
	InternalDate     time.Time
	Flags            []imapworker.Flag
	Headers          []imapclient.HeaderField
	Parts            []*PartSnapshot
	MultipartSubtype string
	Fetching         bool
	Populated        bool
}

// PartSnapshot is a copy of a body part. Content is shared with the cache,
// which never mutates it.
type PartSnapshot struct {
	Type             string
	Subtype          string
	Params           []imapclient.Param
	ID               string
	Description      string
	Encoding         string
	Size             int64
	Section          string
	MultipartSubtype string
	Parts            []*PartSnapshot
	Content          []byte
}

func cloneSlice[T any](l []T) []T {
	if l == nil {
		return nil
	}
	return append(make([]T, 0, len(l)), l...)
}

func snapshotMailbox(mbox *imapclient.Mailbox) *MailboxSnapshot {
	snap := &MailboxSnapshot{
		Name:      mbox.Name,
		Exists:    mbox.Exists,
		Recent:    mbox.Recent,
		Unseen:    mbox.Unseen,
		NextUID:   mbox.NextUID,
		ReadWrite: mbox.ReadWrite,
		Selected:  mbox.Selected,
		Attrs:     cloneSlice(mbox.Attrs),
		Flags:     cloneSlice(mbox.Flags),
	}
	if mbox.Messages != nil {
		snap.Messages = make([]*MessageSnapshot, len(mbox.Messages))
		for i, msg := range mbox.Messages {
			snap.Messages[i] = snapshotMessage(msg)
		}
	}
	return snap
}

func snapshotMessage(msg *imapclient.Message) *MessageSnapshot {
	return &MessageSnapshot{
		Index:            msg.Index,
		UID:              msg.UID,
		InternalDate:     msg.InternalDate,
		Flags:            cloneSlice(msg.Flags),
		Headers:          cloneSlice(msg.Headers),
		Parts:            snapshotParts(msg.Parts),
		MultipartSubtype: msg.MultipartSubtype,
		Fetching:         msg.Fetching,
		Populated:        msg.Populated,
	}
}

func snapshotParts(parts []*imapclient.Part) []*PartSnapshot {
	if parts == nil {
		return nil
	}
	l := make([]*PartSnapshot, len(parts))
	for i, part := range parts {
		l[i] = &PartSnapshot{
			Type:             part.Type,
			Subtype:          part.Subtype,
			Params:           cloneSlice(part.Params),
			ID:               part.ID,
			Description:      part.Description,
			Encoding:         part.Encoding,
			Size:             part.Size,
			Section:          part.Section,
			MultipartSubtype: part.MultipartSubtype,
			Parts:            snapshotParts(part.Parts),
			Content:          part.Content,
		}
	}
	return l
}

// HasFlag checks whether the message has a flag.
func (msg *MessageSnapshot) HasFlag(flag imapworker.Flag) bool {
	for _, f := range msg.Flags {
		if f.EqualFold(flag) {
			return true
		}
	}
	return false
}

// Header returns the first value of a header field, if any. Keys are
// case-insensitive.
func (msg *MessageSnapshot) Header(key string) string {
	for _, field := range msg.Headers {
		if strings.EqualFold(field.Key, key) {
			return field.Value
		}
	}
	return ""
}
