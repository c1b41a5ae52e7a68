package imapclient

// List sends a LIST command for all mailboxes. Each mailbox is added to the
// cache and reported through the Mailbox handler as the server lists it.
func (c *Client) List(cb Callback) {
	cmd := c.beginCommand("LIST")
	cmd.SP().Quoted("").SP().Quoted("*")
	c.sendOrFail(cmd, cb)
}
