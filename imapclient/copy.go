package imapclient

import (
	"github.com/aerc-mail/imapworker"
)

// Copy sends a COPY command copying a message to another mailbox.
func (c *Client) Copy(index int, dest string, cb Callback) {
	if _, err := c.checkRange(index, index); err != nil {
		cb(imapworker.StatusPreError, err.Error())
		return
	}

	cmd := c.beginCommand("COPY")
	cmd.SP().Number(uint32(index + 1)).SP().Mailbox(dest)
	c.sendOrFail(cmd, cb)
}
