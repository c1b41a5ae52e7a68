package imapclient

import (
	"github.com/aerc-mail/imapworker"
)

// Move moves a message to another mailbox. It is performed as COPY, then
// STORE +FLAGS (\Deleted), then EXPUNGE. The first failure ends the chain
// and is reported to cb.
func (c *Client) Move(index int, dest string, cb Callback) {
	c.Copy(index, dest, func(status imapworker.Status, text string) {
		if !status.Success() {
			cb(status, text)
			return
		}
		c.DeleteMessage(index, cb)
	})
}

// DeleteMessage marks a message as deleted and expunges the mailbox.
func (c *Client) DeleteMessage(index int, cb Callback) {
	flags := []imapworker.Flag{imapworker.FlagDeleted}
	c.Store(index, index, StoreAdd, flags, func(status imapworker.Status, text string) {
		if !status.Success() {
			cb(status, text)
			return
		}
		c.Expunge(cb)
	})
}
