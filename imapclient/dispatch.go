package imapclient

import (
	"strings"

	"github.com/aerc-mail/imapworker"
	"github.com/aerc-mail/imapworker/internal/imapwire"
)

// dispatch routes a parsed response to its handler.
func (c *Client) dispatch(resp *imapwire.Response) error {
	if resp.Continuation() {
		return c.handleContinuation(resp)
	}

	switch resp.Name {
	case "OK", "NO", "BAD", "PREAUTH", "BYE":
		return c.handleStatus(resp)
	case "CAPABILITY":
		return c.handleCapability(resp)
	case "LIST", "LSUB":
		return c.handleList(resp)
	case "FLAGS":
		return c.handleFlags(resp, false)
	case "PERMANENTFLAGS":
		return c.handleFlags(resp, true)
	case "EXISTS":
		return c.handleExists(resp)
	case "RECENT", "UNSEEN":
		return c.handleCounter(resp)
	case "UIDNEXT":
		return c.handleUIDNext(resp)
	case "READ-WRITE", "READ-ONLY":
		if mbox := c.selectedMailbox(); mbox != nil {
			mbox.ReadWrite = resp.Name == "READ-WRITE"
			c.options.UpdateHandler.mailbox(mbox)
		}
		return nil
	case "UIDVALIDITY", "HIGHESTMODSEQ":
		return nil
	case "FETCH":
		return c.handleFetch(resp)
	case "EXPUNGE":
		return c.handleExpunge(resp)
	default:
		c.logger.WithField("tag", resp.Tag).Debugf("ignoring %v response", resp.Name)
		return nil
	}
}

// selectedMailbox returns the mailbox that SELECT response data applies to:
// the one being selected, if any, else the selected one. FETCH and EXPUNGE
// always refer to the selected mailbox, as a queued SELECT only takes effect
// once completed.
func (c *Client) selectedMailbox() *Mailbox {
	if len(c.selectQueue) > 0 {
		return c.cache.GetOrCreate(c.selectQueue[0].name)
	}
	return c.Selected()
}

func (c *Client) handleContinuation(resp *imapwire.Response) error {
	if len(c.contHandlers) == 0 {
		c.logger.Warnf("unexpected continuation request: %v", resp.Text())
		return nil
	}
	h := c.contHandlers[0]
	c.contHandlers = c.contHandlers[1:]
	return h.fn(resp.Text())
}

func (c *Client) handleStatus(resp *imapwire.Response) error {
	text := resp.Text()

	// Response codes carry data, e.g. "[UNSEEN 3]": handle them as if they
	// were standalone responses first.
	if code := resp.Code(); code != nil && len(code.List) > 0 && code.List[0].Type == imapwire.ArgAtom {
		name := strings.ToUpper(code.List[0].Str)
		switch name {
		case "ALERT":
			c.logger.Warnf("server alert: %v", text)
		case "CAPABILITY", "PERMANENTFLAGS", "UNSEEN", "UIDNEXT", "READ-WRITE", "READ-ONLY", "UIDVALIDITY", "HIGHESTMODSEQ":
			sub := &imapwire.Response{Tag: untaggedTag, Name: name, Args: code.List[1:]}
			if err := c.dispatch(sub); err != nil {
				return err
			}
		default:
			c.logger.Debugf("ignoring response code %v", name)
		}
	}

	status, _ := imapworker.ParseStatus(resp.Name)
	logger := c.logger.WithField("tag", resp.Tag)

	if resp.Untagged() {
		cb, ok := c.registry.Resolve(untaggedTag)
		if !ok {
			switch resp.Name {
			case "BYE":
				logger.Infof("server is closing the connection: %v", text)
			case "NO", "BAD":
				logger.Warnf("server %v: %v", resp.Name, text)
			}
			return nil
		}
		logger.Debugf("<- greeting %v", resp.Name)
		cb(status, text)
		return nil
	}

	cb, ok := c.registry.Resolve(resp.Tag)
	if !ok {
		logger.Warnf("%v response for unknown tag", resp.Name)
		return nil
	}
	c.removeContHandlers(resp.Tag)
	logger.Debugf("<- %v %v", resp.Name, text)
	cb(status, text)
	return nil
}

func (c *Client) handleCapability(resp *imapwire.Response) error {
	caps := make([]string, 0, len(resp.Args))
	for i := range resp.Args {
		if resp.Args[i].Type != imapwire.ArgAtom {
			return protocolError(resp, "expected capability atom, got %v", resp.Args[i].Type)
		}
		caps = append(caps, resp.Args[i].Str)
	}
	c.caps = imapworker.NewCapSet(caps...)
	c.logger.Debugf("capabilities: %v", strings.Join(caps, " "))
	return nil
}

func (c *Client) handleList(resp *imapwire.Response) error {
	attrs, err := expectAtomList(resp, resp.Args, 0, "mailbox attributes")
	if err != nil {
		return err
	}
	if _, err := expectNString(resp, resp.Args, 1, "hierarchy delimiter"); err != nil {
		return err
	}
	name, err := expectString(resp, resp.Args, 2, "mailbox name")
	if err != nil {
		return err
	}

	mbox := c.cache.GetOrCreate(decodeMailboxName(name))
	for _, attr := range attrs {
		if !mbox.HasAttr(imapworker.MailboxAttr(attr)) {
			mbox.Attrs = append(mbox.Attrs, imapworker.MailboxAttr(attr))
		}
	}
	c.options.UpdateHandler.mailbox(mbox)
	return nil
}

// handleFlags replaces the flag set of the selected mailbox. Flags listed
// by PERMANENTFLAGS are permanent, the others last for the session.
func (c *Client) handleFlags(resp *imapwire.Response, permanent bool) error {
	flags, err := readFlags(resp, resp.Args, 0)
	if err != nil {
		return err
	}
	mbox := c.selectedMailbox()
	if mbox == nil {
		c.logger.Warnf("%v without a selected mailbox", resp.Name)
		return nil
	}

	mbox.Flags = make([]MailboxFlag, len(flags))
	for i, f := range flags {
		mbox.Flags[i] = MailboxFlag{Name: f, Permanent: permanent}
	}
	c.options.UpdateHandler.mailbox(mbox)
	return nil
}

// handleExists appends placeholders for new messages. A shrinking count
// without EXPUNGE is an anomaly: it is logged and the message list is left
// as is.
func (c *Client) handleExists(resp *imapwire.Response) error {
	n, err := expectNumber(resp, resp.Args, 0, "message count")
	if err != nil {
		return err
	}
	mbox := c.selectedMailbox()
	if mbox == nil {
		c.logger.Warn("EXISTS without a selected mailbox")
		return nil
	}

	diff := int(n)
	if mbox.Exists >= 0 {
		diff = int(n) - mbox.Exists
	}
	mbox.Exists = int(n)

	switch {
	case diff > 0:
		for i := 0; i < diff; i++ {
			mbox.Messages = append(mbox.Messages, newMessage(len(mbox.Messages)))
		}
	case diff < 0:
		c.logger.WithField("mailbox", mbox.Name).Warnf("message count decreased by %v without EXPUNGE", -diff)
	}
	c.options.UpdateHandler.mailbox(mbox)
	return nil
}

func (c *Client) handleCounter(resp *imapwire.Response) error {
	n, err := expectNumber(resp, resp.Args, 0, strings.ToLower(resp.Name)+" count")
	if err != nil {
		return err
	}
	mbox := c.selectedMailbox()
	if mbox == nil {
		return nil
	}
	switch resp.Name {
	case "RECENT":
		mbox.Recent = int(n)
	case "UNSEEN":
		mbox.Unseen = int(n)
	}
	c.options.UpdateHandler.mailbox(mbox)
	return nil
}

func (c *Client) handleUIDNext(resp *imapwire.Response) error {
	n, err := expectNumber(resp, resp.Args, 0, "next UID")
	if err != nil {
		return err
	}
	if mbox := c.selectedMailbox(); mbox != nil {
		mbox.NextUID = n
		c.options.UpdateHandler.mailbox(mbox)
	}
	return nil
}

// handleExpunge removes a message and shifts the index of the following
// ones, in a single pass.
func (c *Client) handleExpunge(resp *imapwire.Response) error {
	seq, err := expectNumber(resp, resp.Args, 0, "sequence number")
	if err != nil {
		return err
	}
	if seq < 1 {
		return protocolError(resp, "invalid sequence number %v", seq)
	}
	mbox := c.Selected()
	if mbox == nil {
		c.logger.Warn("EXPUNGE without a selected mailbox")
		return nil
	}

	index := int(seq - 1)
	var removed *Message
	kept := mbox.Messages[:0]
	for _, msg := range mbox.Messages {
		switch {
		case msg.Index == index:
			removed = msg
			continue
		case msg.Index > index:
			msg.Index--
		}
		kept = append(kept, msg)
	}
	for i := len(kept); i < len(mbox.Messages); i++ {
		mbox.Messages[i] = nil
	}
	mbox.Messages = kept
	if mbox.Exists > 0 {
		mbox.Exists--
	}

	if removed == nil {
		c.logger.WithField("mailbox", mbox.Name).Warnf("EXPUNGE for unknown message %v", seq)
		return nil
	}
	c.options.UpdateHandler.messageDeleted(mbox, removed)
	return nil
}
