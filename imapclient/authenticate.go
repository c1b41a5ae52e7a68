package imapclient

import (
	"encoding/base64"

	"github.com/emersion/go-sasl"

	"github.com/aerc-mail/imapworker"
	"github.com/aerc-mail/imapworker/internal"
)

// Auth holds login credentials. Password is wiped as soon as it has been
// used, or once authentication is abandoned.
type Auth struct {
	Username []byte
	Password []byte
}

func (auth *Auth) wipe() {
	if auth != nil {
		internal.Zero(auth.Password)
	}
}

func (c *Client) loginDone(cb Callback) Callback {
	return func(status imapworker.Status, text string) {
		if status.Success() {
			c.loggedIn = true
			c.logger.Info("logged in")
		}
		cb(status, text)
	}
}

// Login sends a LOGIN command.
func (c *Client) Login(auth *Auth, cb Callback) {
	cmd := c.beginCommand("LOGIN")
	cmd.sensitive = true
	cmd.SP().Secret(auth.Username).SP().Secret(auth.Password)
	auth.wipe()
	c.sendOrFail(cmd, c.loginDone(cb))
}

// AuthenticatePlain authenticates with the SASL PLAIN mechanism.
//
// The SASL client only accepts Go strings, which can't be wiped: a copy of
// the password stays in memory until it is garbage collected.
func (c *Client) AuthenticatePlain(auth *Auth, cb Callback) {
	saslClient := sasl.NewPlainClient("", string(auth.Username), string(auth.Password))
	auth.wipe()
	c.Authenticate(saslClient, cb)
}

// Authenticate sends an AUTHENTICATE command.
//
// The initial response is sent along with the command if the server supports
// SASL-IR, otherwise after the first continuation request. Server challenges
// are answered as they arrive.
func (c *Client) Authenticate(saslClient sasl.Client, cb Callback) {
	mech, ir, err := saslClient.Start()
	if err != nil {
		cb(imapworker.StatusPreError, err.Error())
		return
	}

	cmd := c.beginCommand("AUTHENTICATE")
	cmd.sensitive = true
	cmd.SP().Atom(mech)
	if ir != nil && c.caps.Has(imapworker.CapSASLIR) {
		resp := internal.AppendSASL(nil, ir)
		cmd.SP().Raw(resp)
		internal.Zero(resp)
		internal.Zero(ir)
		ir = nil
	}

	c.contHandlers = append(c.contHandlers, c.saslHandler(cmd.tag, saslClient, ir))
	c.sendOrFail(cmd, c.loginDone(cb))
}

// saslHandler answers a continuation request of an AUTHENTICATE command.
// A pending initial response is sent first.
func (c *Client) saslHandler(tag string, saslClient sasl.Client, ir []byte) contHandler {
	return contHandler{tag: tag, fn: func(text string) error {
		var resp []byte
		if ir != nil && text == "" {
			resp, ir = ir, nil
		} else {
			challenge, err := internal.DecodeSASL(text)
			if err == nil {
				resp, err = saslClient.Next(challenge)
			}
			if err != nil {
				c.logger.WithField("tag", tag).WithError(err).Warn("cancelling authentication")
				return c.write([]byte("*\r\n"))
			}
		}

		line := make([]byte, 0, base64.StdEncoding.EncodedLen(len(resp))+2)
		if len(resp) > 0 {
			line = line[:base64.StdEncoding.EncodedLen(len(resp))]
			base64.StdEncoding.Encode(line, resp)
		}
		line = append(line, '\r', '\n')
		internal.Zero(resp)

		c.contHandlers = append(c.contHandlers, c.saslHandler(tag, saslClient, nil))
		err := c.write(line)
		internal.Zero(line)
		return err
	}}
}
