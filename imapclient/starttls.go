package imapclient

import (
	"crypto/tls"

	"github.com/aerc-mail/imapworker"
)

// StartTLS sends a STARTTLS command and upgrades the connection.
//
// cb is called once the TLS handshake has completed and, if a CertCheck
// handler is set, the certificate has been approved. The capabilities
// advertised before the upgrade are forgotten.
func (c *Client) StartTLS(cb Callback) {
	if c.tls {
		cb(imapworker.StatusPreError, "TLS is already active")
		return
	}
	c.sendOrFail(c.beginCommand("STARTTLS"), func(status imapworker.Status, text string) {
		if !status.Success() {
			cb(status, text)
			return
		}
		if err := c.upgradeTLS(); err != nil {
			c.logger.WithError(err).Error("STARTTLS failed")
			c.Close()
			cb(imapworker.StatusPreError, err.Error())
			return
		}
		if c.mode == ModeWaiting {
			c.onApprove = func() { cb(status, text) }
			return
		}
		cb(status, text)
	})
}

func (c *Client) upgradeTLS() error {
	if len(c.buf) > 0 {
		c.logger.Warnf("discarding %v bytes received before TLS negotiation", len(c.buf))
	}
	c.buf = nil

	var verifyErr error
	tc := tls.Client(c.conn, c.options.tlsConfig(c.host, &verifyErr))
	if err := handshakeTLS(tc, c.options.duration(c.options.DialTimeout, defaultDialTimeout)); err != nil {
		return err
	}
	c.conn = tc
	c.tls = true
	c.caps = imapworker.NewCapSet()
	c.logger.Debug("TLS negotiated")
	c.awaitApproval(tc, verifyErr)
	return nil
}
