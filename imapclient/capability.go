package imapclient

// Capability sends a CAPABILITY command. The capability set is replaced
// when the server replies.
func (c *Client) Capability(cb Callback) {
	c.sendOrFail(c.beginCommand("CAPABILITY"), cb)
}

// Noop sends a NOOP command, giving the server an opportunity to send
// pending updates.
func (c *Client) Noop(cb Callback) {
	c.sendOrFail(c.beginCommand("NOOP"), cb)
}
