package imapclient

import (
	"github.com/aerc-mail/imapworker"
)

// Handshake drives the connection from the server greeting to the
// authenticated state.
//
// Once greeted, the client fetches capabilities if the greeting didn't
// include them, upgrades to TLS with STARTTLS if possible, then logs in with
// AUTHENTICATE PLAIN or LOGIN. done is called with the final status.
// auth.Password is wiped whatever the outcome.
func (c *Client) Handshake(auth *Auth, done Callback) {
	c.registry.Register(untaggedTag, func(status imapworker.Status, text string) {
		switch status {
		case imapworker.StatusOK:
		case imapworker.StatusPreAuth:
			c.loggedIn = true
		default:
			auth.wipe()
			done(status, text)
			return
		}
		c.logger.Infof("connected: %v", text)
		c.negotiate(auth, done)
	})
}

func (c *Client) negotiate(auth *Auth, done Callback) {
	c.withCaps(func(status imapworker.Status, text string) {
		switch {
		case !status.Success():
		case !c.caps.Has(imapworker.CapIMAP4rev1):
			status, text = imapworker.StatusPreError, "server doesn't support IMAP4rev1"
		case c.loggedIn:
			status, text = imapworker.StatusOK, "pre-authenticated"
		case !c.tls && !c.options.DisableStartTLS && c.caps.Has(imapworker.CapStartTLS):
			c.StartTLS(func(status imapworker.Status, text string) {
				if !status.Success() {
					auth.wipe()
					done(status, text)
					return
				}
				c.negotiate(auth, done)
			})
			return
		default:
			c.login(auth, done)
			return
		}
		auth.wipe()
		done(status, text)
	})
}

// withCaps calls cb once capabilities are known.
func (c *Client) withCaps(cb Callback) {
	if len(c.caps) > 0 {
		cb(imapworker.StatusOK, "")
		return
	}
	c.Capability(cb)
}

func (c *Client) login(auth *Auth, done Callback) {
	switch {
	case auth == nil:
		done(imapworker.StatusPreError, "no credentials")
	case c.caps.Has(imapworker.CapAuthPlain):
		c.AuthenticatePlain(auth, done)
	case c.caps.Has(imapworker.CapAuthLogin) || !c.caps.Has(imapworker.CapLoginDisabled):
		c.Login(auth, done)
	default:
		auth.wipe()
		done(imapworker.StatusPreError, "no supported authentication mechanism")
	}
}
