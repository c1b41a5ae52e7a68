package imapclient

import (
	"fmt"

	"github.com/aerc-mail/imapworker"
)

// SelectMailbox sends a SELECT command.
//
// SELECT commands are queued: only one is in flight at a time, the next one
// is sent when the previous one completes. Each caller gets its own callback.
func (c *Client) SelectMailbox(name string, cb Callback) {
	if mbox := c.cache.Mailbox(name); mbox != nil && mbox.HasAttr(imapworker.MailboxAttrNoSelect) {
		cb(imapworker.StatusPreError, fmt.Sprintf("mailbox %q is not selectable", name))
		return
	}

	c.selectQueue = append(c.selectQueue, selectRequest{name: name, cb: cb})
	if len(c.selectQueue) == 1 {
		c.sendSelect()
	}
}

func (c *Client) sendSelect() {
	req := c.selectQueue[0]

	// Sequence numbers of a mailbox that isn't selected anymore are stale
	mbox := c.cache.GetOrCreate(req.name)
	if !mbox.Selected {
		mbox.Exists = -1
		mbox.Recent = -1
		mbox.Unseen = -1
		mbox.Messages = nil
	}

	cmd := c.beginCommand("SELECT")
	cmd.SP().Mailbox(req.name)
	c.sendOrFail(cmd, c.selectDone)
}

func (c *Client) selectDone(status imapworker.Status, text string) {
	if len(c.selectQueue) == 0 {
		return // closed
	}
	req := c.selectQueue[0]
	c.selectQueue = c.selectQueue[1:]

	logger := c.logger.WithField("mailbox", req.name)
	switch {
	case status.Success():
		if prev := c.Selected(); prev != nil {
			prev.Selected = false
		}
		mbox := c.cache.GetOrCreate(req.name)
		mbox.Selected = true
		c.selected = req.name
		logger.Debug("mailbox selected")
		c.options.UpdateHandler.mailbox(mbox)
	case status != imapworker.StatusPreError:
		// A failed SELECT leaves the connection without a selected mailbox
		if prev := c.Selected(); prev != nil {
			prev.Selected = false
		}
		c.selected = ""
		logger.Warnf("failed to select mailbox: %v", text)
	}

	req.cb(status, text)

	if len(c.selectQueue) > 0 && !c.closed {
		c.sendSelect()
	}
}
