// Package imapworker implements the IMAP side of a mail client.
//
// The protocol engine lives in imapclient and speaks IMAP4rev1 (RFC 3501)
// with the IDLE extension (RFC 2177). The worker package runs one engine per
// account in its own goroutine and talks to the rest of the application
// through a pair of lock-free queues.
//
// This package holds the vocabulary shared by both: flags, mailbox
// attributes, capabilities and status results.
package imapworker

import "strings"

// MailboxAttr is a mailbox attribute.
//
// Mailbox attributes are defined in RFC 3501 section 7.2.2.
type MailboxAttr string

const (
	MailboxAttrNoInferiors   MailboxAttr = "\\Noinferiors"
	MailboxAttrNoSelect      MailboxAttr = "\\Noselect"
	MailboxAttrMarked        MailboxAttr = "\\Marked"
	MailboxAttrUnmarked      MailboxAttr = "\\Unmarked"
	MailboxAttrHasChildren   MailboxAttr = "\\HasChildren"
	MailboxAttrHasNoChildren MailboxAttr = "\\HasNoChildren"
)

// Flag is a message flag.
//
// Message flags are defined in RFC 3501 section 2.3.2.
type Flag string

const (
	// System flags
	FlagSeen     Flag = "\\Seen"
	FlagAnswered Flag = "\\Answered"
	FlagFlagged  Flag = "\\Flagged"
	FlagDeleted  Flag = "\\Deleted"
	FlagDraft    Flag = "\\Draft"
	FlagRecent   Flag = "\\Recent"

	// Permanent flags
	FlagWildcard Flag = "\\*"
)

// EqualFold reports whether two flags are the same. System flags are case
// insensitive.
func (f Flag) EqualFold(other Flag) bool {
	return strings.EqualFold(string(f), string(other))
}
