package imapworker

import (
	"strings"
)

// Cap represents an IMAP capability.
type Cap string

// Capabilities used by the engine.
//
// See: https://www.iana.org/assignments/imap-capabilities/
const (
	CapIMAP4rev1 Cap = "IMAP4rev1" // RFC 3501

	CapAuthPlain Cap = "AUTH=PLAIN"
	CapAuthLogin Cap = "AUTH=LOGIN"

	CapStartTLS      Cap = "STARTTLS"
	CapLoginDisabled Cap = "LOGINDISABLED"

	CapIdle   Cap = "IDLE"    // RFC 2177
	CapSASLIR Cap = "SASL-IR" // RFC 4959
)

// CapSet is a set of capabilities.
//
// Capability names are case-insensitive; keys are stored upper-cased.
type CapSet map[Cap]struct{}

// NewCapSet builds a set out of capability atoms as sent by the server.
func NewCapSet(caps ...string) CapSet {
	set := make(CapSet, len(caps))
	for _, c := range caps {
		set[Cap(strings.ToUpper(c))] = struct{}{}
	}
	return set
}

// Has checks whether a capability is supported.
func (set CapSet) Has(c Cap) bool {
	_, ok := set[Cap(strings.ToUpper(string(c)))]
	return ok
}

// AuthMechanisms returns the list of supported SASL mechanisms.
func (set CapSet) AuthMechanisms() []string {
	var l []string
	for c := range set {
		if mech, ok := strings.CutPrefix(string(c), "AUTH="); ok {
			l = append(l, mech)
		}
	}
	return l
}
