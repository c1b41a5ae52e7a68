package imapclient

import (
	"github.com/aerc-mail/imapworker"
)

// CreateMailbox sends a CREATE command. The mailbox is added to the cache
// once the server accepts it.
func (c *Client) CreateMailbox(name string, cb Callback) {
	cmd := c.beginCommand("CREATE")
	cmd.SP().Mailbox(name)
	c.sendOrFail(cmd, func(status imapworker.Status, text string) {
		if status.Success() {
			c.options.UpdateHandler.mailbox(c.cache.GetOrCreate(name))
		}
		cb(status, text)
	})
}

// DeleteMailbox sends a DELETE command. The mailbox is removed from the
// cache once the server accepts it.
func (c *Client) DeleteMailbox(name string, cb Callback) {
	cmd := c.beginCommand("DELETE")
	cmd.SP().Mailbox(name)
	c.sendOrFail(cmd, func(status imapworker.Status, text string) {
		if status.Success() {
			if mailboxNameEqual(c.selected, name) {
				c.selected = ""
			}
			if c.cache.Remove(name) {
				c.options.UpdateHandler.mailboxDeleted(name)
			}
		}
		cb(status, text)
	})
}
