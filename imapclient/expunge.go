package imapclient

import (
	"github.com/aerc-mail/imapworker"
)

// Expunge sends an EXPUNGE command. Removed messages are reported through
// the MessageDeleted handler.
func (c *Client) Expunge(cb Callback) {
	if c.Selected() == nil {
		cb(imapworker.StatusPreError, "no mailbox selected")
		return
	}
	c.sendOrFail(c.beginCommand("EXPUNGE"), cb)
}
