package worker

import (
	"crypto/x509"
	"fmt"

	"github.com/aerc-mail/imapworker"
)

// MessageType is the type of a message exchanged over a Pipe.
type MessageType int

const (
	MessageAck MessageType = iota
	MessageOkay
	MessageError
	MessageShutdown
	MessageUnsupported
	MessageConfigure
	MessageConnect
	MessageConnectCertCheck
	MessageConnectCertOkay
	MessageList
	MessageSelectMailbox
	MessageDeleteMailbox
	MessageCreateMailbox
	MessageMailboxDeleted
	MessageMailboxUpdated
	MessageFetchMessages
	MessageFetchMessagePart
	MessageMessageUpdated
	MessageDeleteMessage
	MessageMessageDeleted
	MessageMoveMessage
	MessageCopyMessage
)

var messageTypeNames = [...]string{
	MessageAck:              "ACK",
	MessageOkay:             "OKAY",
	MessageError:            "ERROR",
	MessageShutdown:         "SHUTDOWN",
	MessageUnsupported:      "UNSUPPORTED",
	MessageConfigure:        "CONFIGURE",
	MessageConnect:          "CONNECT",
	MessageConnectCertCheck: "CONNECT_CERT_CHECK",
	MessageConnectCertOkay:  "CONNECT_CERT_OKAY",
	MessageList:             "LIST",
	MessageSelectMailbox:    "SELECT_MAILBOX",
	MessageDeleteMailbox:    "DELETE_MAILBOX",
	MessageCreateMailbox:    "CREATE_MAILBOX",
	MessageMailboxDeleted:   "MAILBOX_DELETED",
	MessageMailboxUpdated:   "MAILBOX_UPDATED",
	MessageFetchMessages:    "FETCH_MESSAGES",
	MessageFetchMessagePart: "FETCH_MESSAGE_PART",
	MessageMessageUpdated:   "MESSAGE_UPDATED",
	MessageDeleteMessage:    "DELETE_MESSAGE",
	MessageMessageDeleted:   "MESSAGE_DELETED",
	MessageMoveMessage:      "MOVE_MESSAGE",
	MessageCopyMessage:      "COPY_MESSAGE",
}

func (t MessageType) String() string {
	if t < 0 || int(t) >= len(messageTypeNames) {
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
	return messageTypeNames[t]
}

// terminal reports whether a message ends the exchange started by an
// action.
func (t MessageType) terminal() bool {
	return t == MessageOkay || t == MessageError || t == MessageUnsupported
}

// Message is an action sent to a worker, or a message sent back by it.
//
// Data is owned by the receiving side once the message has been posted: the
// sender must not touch it anymore.
type Message struct {
	Type MessageType
	// InResponseTo is the action this message answers, if any.
	InResponseTo *Message
	Data         interface{}
}

func (msg *Message) String() string {
	if msg.InResponseTo != nil {
		return fmt.Sprintf("%v (in response to %v)", msg.Type, msg.InResponseTo.Type)
	}
	return msg.Type.String()
}

// ConnectRequest is the payload of CONNECT. URI is wiped by the worker once
// parsed.
type ConnectRequest struct {
	URI []byte
}

// ConfigValue is a configuration entry.
type ConfigValue struct {
	Key   string
	Value string
}

// ConfigureRequest is the payload of CONFIGURE.
type ConfigureRequest struct {
	Values []ConfigValue
}

// MailboxName is the payload of SELECT_MAILBOX, CREATE_MAILBOX,
// DELETE_MAILBOX and MAILBOX_DELETED.
type MailboxName struct {
	Name string
}

// MessageRange is the payload of FETCH_MESSAGES. Indices are zero-based and
// inclusive.
type MessageRange struct {
	Min, Max int
}

// PartRequest is the payload of FETCH_MESSAGE_PART.
type PartRequest struct {
	Index int
	Part  int
}

// MessageIndex is the payload of DELETE_MESSAGE.
type MessageIndex struct {
	Index int
}

// MessageMove is the payload of COPY_MESSAGE and MOVE_MESSAGE.
type MessageMove struct {
	Index       int
	Destination string
}

// ErrorInfo is the payload of ERROR.
type ErrorInfo struct {
	Status imapworker.Status
	Text   string
}

func (info *ErrorInfo) Error() string {
	return fmt.Sprintf("%v: %v", info.Status, info.Text)
}

// MessageUpdate is the payload of MESSAGE_UPDATED.
type MessageUpdate struct {
	Mailbox string
	Message *MessageSnapshot
}

// MessageDeletion is the payload of MESSAGE_DELETED.
type MessageDeletion struct {
	Mailbox string
	Index   int
}

// CertCheck is the payload of CONNECT_CERT_CHECK. The worker doesn't make
// progress on the connection until CONNECT_CERT_OKAY is posted, or gives up
// on SHUTDOWN.
type CertCheck struct {
	Certificate *x509.Certificate
	// VerifyError explains why the certificate isn't trusted. It is empty
	// if the certificate chain was verified.
	VerifyError string
}
