package imapworker

import (
	"fmt"
	"strings"
)

// Status is the outcome handed to a command's completion callback.
type Status int

const (
	StatusOK Status = iota
	StatusNo
	StatusBad
	// StatusPreAuth is reported for a PREAUTH greeting.
	StatusPreAuth
	// StatusPreError is reported when a command was rejected locally, before
	// anything was written to the connection.
	StatusPreError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNo:
		return "NO"
	case StatusBad:
		return "BAD"
	case StatusPreAuth:
		return "PREAUTH"
	case StatusPreError:
		return "PRE_ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Success reports whether the status denotes a successful completion.
func (s Status) Success() bool {
	return s == StatusOK || s == StatusPreAuth
}

// ParseStatus maps a status response keyword to a Status. BYE maps to
// StatusBad.
func ParseStatus(name string) (Status, bool) {
	switch strings.ToUpper(name) {
	case "OK":
		return StatusOK, true
	case "NO":
		return StatusNo, true
	case "BAD", "BYE":
		return StatusBad, true
	case "PREAUTH":
		return StatusPreAuth, true
	default:
		return 0, false
	}
}

// Error is an IMAP error caused by a status response or a local check.
type Error struct {
	Status Status
	Text   string
}

var _ error = (*Error)(nil)

// Error implements the error interface.
func (err *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "imap: %v", err.Status)
	text := err.Text
	if text == "" {
		text = "<unknown>"
	}
	fmt.Fprintf(&sb, " %v", text)
	return sb.String()
}

// StatusError returns nil for a successful status, and an *Error otherwise.
func StatusError(status Status, text string) error {
	if status.Success() {
		return nil
	}
	return &Error{Status: status, Text: text}
}
