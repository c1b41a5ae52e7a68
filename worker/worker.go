// Package worker runs an IMAP connection on its own goroutine, driven by
// actions posted over a Pipe.
package worker

import (
	"context"
	"crypto/x509"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aerc-mail/imapworker"
	"github.com/aerc-mail/imapworker/imapclient"
)

const defaultSleepInterval = 50 * time.Millisecond

// Options contains options for Worker.
type Options struct {
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
	// SleepInterval is how long the worker sleeps when neither an action
	// nor server data was received.
	SleepInterval time.Duration
	// Client is the base configuration of connections. Logger and
	// UpdateHandler are set by the worker.
	Client imapclient.Options
}

type dialFunc func(address string, implicitTLS bool, options *imapclient.Options) (*imapclient.Client, error)

// Worker owns an IMAP connection and its cache.
type Worker struct {
	pipe          *Pipe
	logger        logrus.FieldLogger
	sleepInterval time.Duration
	clientOptions imapclient.Options
	dial          dialFunc

	client *imapclient.Client
	// connect is the CONNECT action being processed, if any.
	connect *Message
}

// New creates a worker receiving actions from pipe.
//
// A nil options pointer is equivalent to a zero options value.
func New(pipe *Pipe, options *Options) *Worker {
	if options == nil {
		options = &Options{}
	}
	logger := options.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	w := &Worker{
		pipe:          pipe,
		logger:        logger,
		sleepInterval: options.SleepInterval,
		clientOptions: options.Client,
		dial:          imapclient.Dial,
	}
	if w.sleepInterval <= 0 {
		w.sleepInterval = defaultSleepInterval
	}
	return w
}

// Run processes actions until SHUTDOWN is received or ctx is cancelled.
// Commands still outstanding at that point are abandoned.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Debug("worker started")
	defer w.logger.Debug("worker stopped")

	for {
		if err := ctx.Err(); err != nil {
			w.shutdown()
			return err
		}

		action, gotAction := w.pipe.GetAction()
		if gotAction {
			if action.Type == MessageShutdown {
				w.shutdown()
				return nil
			}
			w.handleAction(action)
		}

		var received bool
		if c := w.client; c != nil {
			var err error
			received, err = c.Poll()
			// The client may have been dropped by a callback
			if err != nil && w.client == c {
				w.connectionLost(err)
			}
		}

		if !gotAction && !received {
			select {
			case <-ctx.Done():
			case <-time.After(w.sleepInterval):
			}
		}
	}
}

func (w *Worker) shutdown() {
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
	w.connect = nil
}

func (w *Worker) connectionLost(err error) {
	w.logger.WithError(err).Error("connection lost")
	w.client.Close()
	w.client = nil
	w.pipe.PostMessage(MessageError, w.connect, &ErrorInfo{
		Status: imapworker.StatusPreError,
		Text:   "connection lost: " + err.Error(),
	})
	w.connect = nil
}

func (w *Worker) post(typ MessageType, inResponseTo *Message, data interface{}) {
	w.logger.Debugf("posting %v", typ)
	w.pipe.PostMessage(typ, inResponseTo, data)
}

// reply ends the exchange started by an action.
func (w *Worker) reply(action *Message, status imapworker.Status, text string) {
	if status.Success() {
		w.post(MessageOkay, action, nil)
		return
	}
	w.logger.WithField("action", action.Type).Warnf("action failed: %v %v", status, text)
	w.post(MessageError, action, &ErrorInfo{Status: status, Text: text})
}

func (w *Worker) fail(action *Message, text string) {
	w.reply(action, imapworker.StatusPreError, text)
}

// callback returns a command callback replying to an action.
func (w *Worker) callback(action *Message) imapclient.Callback {
	return func(status imapworker.Status, text string) {
		w.reply(action, status, text)
	}
}

func (w *Worker) updateHandler() *imapclient.UpdateHandler {
	return &imapclient.UpdateHandler{
		Mailbox: func(mbox *imapclient.Mailbox) {
			w.post(MessageMailboxUpdated, nil, snapshotMailbox(mbox))
		},
		MailboxDeleted: func(name string) {
			w.post(MessageMailboxDeleted, nil, &MailboxName{Name: name})
		},
		Message: func(mbox *imapclient.Mailbox, msg *imapclient.Message) {
			w.post(MessageMessageUpdated, nil, &MessageUpdate{
				Mailbox: mbox.Name,
				Message: snapshotMessage(msg),
			})
		},
		MessageDeleted: func(mbox *imapclient.Mailbox, msg *imapclient.Message) {
			w.post(MessageMessageDeleted, nil, &MessageDeletion{
				Mailbox: mbox.Name,
				Index:   msg.Index,
			})
		},
		CertCheck: func(cert *x509.Certificate, verifyErr error) {
			check := &CertCheck{Certificate: cert}
			if verifyErr != nil {
				check.VerifyError = verifyErr.Error()
			}
			w.post(MessageConnectCertCheck, w.connect, check)
		},
	}
}
