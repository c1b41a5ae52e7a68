package imapclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultDialTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultPollTimeout  = time.Millisecond
	defaultIdleDelay    = 3 * time.Second
	defaultIdleRefresh  = 20 * time.Minute
)

// Options contains options for Client.
type Options struct {
	// Logger receives diagnostics. Defaults to the logrus standard logger.
	Logger logrus.FieldLogger
	// Raw ingress and egress data will be written to this writer, if any.
	// Note that this includes credentials.
	DebugWriter io.Writer
	// TLSConfig is used for implicit TLS and STARTTLS.
	TLSConfig *tls.Config
	// DisableStartTLS prevents upgrading a plain connection.
	DisableStartTLS bool

	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// PollTimeout bounds how long Poll waits for incoming data.
	PollTimeout time.Duration
	// IdleDelay is the read inactivity after which IDLE is entered.
	IdleDelay time.Duration
	// IdleRefresh is the interval after which IDLE is re-issued.
	IdleRefresh time.Duration

	// UpdateHandler receives cache updates.
	UpdateHandler *UpdateHandler
}

func (options *Options) logger() logrus.FieldLogger {
	if options.Logger == nil {
		return logrus.StandardLogger()
	}
	return options.Logger
}

func (options *Options) duration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// tlsConfig returns the configuration of a TLS handshake with serverName.
//
// With a CertCheck handler, a certificate failing verification doesn't abort
// the handshake: the failure is stored in *verifyErr and the handler decides.
func (options *Options) tlsConfig(serverName string, verifyErr *error) *tls.Config {
	var config *tls.Config
	if options.TLSConfig != nil {
		config = options.TLSConfig.Clone()
	} else {
		config = &tls.Config{}
	}
	if config.ServerName == "" {
		config.ServerName = serverName
	}

	h := options.UpdateHandler
	if h == nil || h.CertCheck == nil || config.InsecureSkipVerify {
		return config
	}
	roots, name, next := config.RootCAs, config.ServerName, config.VerifyConnection
	config.InsecureSkipVerify = true
	config.VerifyConnection = func(cs tls.ConnectionState) error {
		*verifyErr = verifyChain(cs.PeerCertificates, roots, name)
		if next != nil {
			return next(cs)
		}
		return nil
	}
	return config
}

// verifyChain does what crypto/tls does for a client when
// InsecureSkipVerify is unset.
func verifyChain(certs []*x509.Certificate, roots *x509.CertPool, serverName string) error {
	if len(certs) == 0 {
		return errors.New("no server certificate")
	}
	opts := x509.VerifyOptions{
		Roots:         roots,
		DNSName:       serverName,
		Intermediates: x509.NewCertPool(),
	}
	for _, cert := range certs[1:] {
		opts.Intermediates.AddCert(cert)
	}
	_, err := certs[0].Verify(opts)
	return err
}

// UpdateHandler handles cache updates.
//
// The mailboxes and messages passed to the handler belong to the client
// cache and must not be retained past the call.
type UpdateHandler struct {
	// Mailbox is called when a mailbox was created or changed.
	Mailbox func(mbox *Mailbox)
	// MailboxDeleted is called when a mailbox was removed from the cache.
	MailboxDeleted func(name string)
	// Message is called when FETCH data was received for a message.
	Message func(mbox *Mailbox, msg *Message)
	// MessageDeleted is called once per expunged message. msg.Index is the
	// index it had before removal.
	MessageDeleted func(mbox *Mailbox, msg *Message)
	// CertCheck is called after a TLS handshake with the server certificate.
	// verifyErr is nil if the certificate chain was verified. The client
	// doesn't read from the connection until Approve is called. If nil,
	// certificates are verified during the handshake and untrusted ones make
	// it fail.
	CertCheck func(cert *x509.Certificate, verifyErr error)
}

func (h *UpdateHandler) mailbox(mbox *Mailbox) {
	if h != nil && h.Mailbox != nil {
		h.Mailbox(mbox)
	}
}

func (h *UpdateHandler) mailboxDeleted(name string) {
	if h != nil && h.MailboxDeleted != nil {
		h.MailboxDeleted(name)
	}
}

func (h *UpdateHandler) message(mbox *Mailbox, msg *Message) {
	if h != nil && h.Message != nil {
		h.Message(mbox, msg)
	}
}

func (h *UpdateHandler) messageDeleted(mbox *Mailbox, msg *Message) {
	if h != nil && h.MessageDeleted != nil {
		h.MessageDeleted(mbox, msg)
	}
}
