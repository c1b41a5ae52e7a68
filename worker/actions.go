package worker

import (
	"fmt"

	"github.com/aerc-mail/imapworker"
	"github.com/aerc-mail/imapworker/imapclient"
	"github.com/aerc-mail/imapworker/internal"
	"github.com/aerc-mail/imapworker/internal/uri"
)

func (w *Worker) handleAction(action *Message) {
	logger := w.logger.WithField("action", action.Type)
	logger.Debug("handling action")

	switch action.Type {
	case MessageConfigure:
		w.handleConfigure(action)
		return
	case MessageConnect:
		w.handleConnect(action)
		return
	case MessageConnectCertOkay, MessageList, MessageSelectMailbox,
		MessageCreateMailbox, MessageDeleteMailbox, MessageFetchMessages,
		MessageFetchMessagePart, MessageDeleteMessage, MessageCopyMessage,
		MessageMoveMessage:
		// Need a connection
	default:
		logger.Warn("unsupported action")
		w.post(MessageUnsupported, action, nil)
		return
	}

	if w.client == nil {
		w.fail(action, "not connected")
		return
	}

	var err error
	switch action.Type {
	case MessageConnectCertOkay:
		w.post(MessageAck, action, nil)
		w.client.Approve()
		w.reply(action, imapworker.StatusOK, "")
	case MessageList:
		w.post(MessageAck, action, nil)
		w.client.List(w.callback(action))
	case MessageSelectMailbox:
		var req *MailboxName
		if req, err = payload[*MailboxName](action); err == nil {
			w.post(MessageAck, action, nil)
			w.client.SelectMailbox(req.Name, w.callback(action))
		}
	case MessageCreateMailbox:
		var req *MailboxName
		if req, err = payload[*MailboxName](action); err == nil {
			w.post(MessageAck, action, nil)
			w.client.CreateMailbox(req.Name, w.callback(action))
		}
	case MessageDeleteMailbox:
		var req *MailboxName
		if req, err = payload[*MailboxName](action); err == nil {
			w.post(MessageAck, action, nil)
			w.client.DeleteMailbox(req.Name, w.callback(action))
		}
	case MessageFetchMessages:
		var req *MessageRange
		if req, err = payload[*MessageRange](action); err == nil {
			w.post(MessageAck, action, nil)
			w.client.FetchRange(req.Min, req.Max, w.callback(action))
		}
	case MessageFetchMessagePart:
		var req *PartRequest
		if req, err = payload[*PartRequest](action); err == nil {
			w.post(MessageAck, action, nil)
			w.client.FetchPart(req.Index, req.Part, w.callback(action))
		}
	case MessageDeleteMessage:
		var req *MessageIndex
		if req, err = payload[*MessageIndex](action); err == nil {
			w.post(MessageAck, action, nil)
			w.client.DeleteMessage(req.Index, w.callback(action))
		}
	case MessageCopyMessage:
		var req *MessageMove
		if req, err = payload[*MessageMove](action); err == nil {
			w.post(MessageAck, action, nil)
			w.client.Copy(req.Index, req.Destination, w.callback(action))
		}
	case MessageMoveMessage:
		var req *MessageMove
		if req, err = payload[*MessageMove](action); err == nil {
			w.post(MessageAck, action, nil)
			w.client.Move(req.Index, req.Destination, w.callback(action))
		}
	}
	if err != nil {
		w.fail(action, err.Error())
	}
}

func payload[T any](action *Message) (T, error) {
	v, ok := action.Data.(T)
	if !ok {
		return v, fmt.Errorf("invalid payload %T for %v", action.Data, action.Type)
	}
	return v, nil
}

func (w *Worker) handleConnect(action *Message) {
	req, err := payload[*ConnectRequest](action)
	if err != nil {
		w.fail(action, err.Error())
		return
	}
	if w.client != nil {
		internal.Zero(req.URI)
		w.fail(action, "already connected")
		return
	}

	u, err := uri.Parse(req.URI)
	internal.Zero(req.URI)
	if err != nil {
		w.fail(action, err.Error())
		return
	}

	var implicitTLS bool
	var defaultPort string
	switch u.Scheme {
	case "imap":
		defaultPort = "143"
	case "imaps":
		implicitTLS = true
		defaultPort = "993"
	default:
		u.Zero()
		w.fail(action, fmt.Sprintf("unsupported scheme %q", u.Scheme))
		return
	}

	w.post(MessageAck, action, nil)
	w.connect = action

	address := u.Address(defaultPort)
	logger := w.logger.WithField("server", address)
	logger.Infof("connecting to %v", u.Redacted())

	options := w.clientOptions
	options.Logger = logger
	options.UpdateHandler = w.updateHandler()
	c, err := w.dial(address, implicitTLS, &options)
	if err != nil {
		u.Zero()
		w.connect = nil
		w.fail(action, err.Error())
		return
	}
	w.client = c

	auth := &imapclient.Auth{Username: []byte(u.Username), Password: u.Password}
	c.Handshake(auth, func(status imapworker.Status, text string) {
		u.Zero()
		if status.Success() {
			logger.Info("connection ready")
		} else if w.client == c {
			c.Close()
			w.client = nil
			w.connect = nil
		}
		w.reply(action, status, text)
	})
}
