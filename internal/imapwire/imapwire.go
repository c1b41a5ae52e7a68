// Package imapwire implements the IMAP wire protocol.
//
// The IMAP wire protocol is defined in RFC 3501 section 4. Responses are
// parsed out of a byte buffer which may hold an incomplete response: the
// parser reports how many more bytes it needs instead of blocking, so that a
// poll loop can keep appending to the buffer and retry.
package imapwire

import (
	"fmt"
	"strconv"
	"strings"
)

// ArgType is the type of a response argument.
type ArgType int

const (
	ArgAtom ArgType = iota
	ArgNumber
	// ArgString is a quoted string or a literal.
	ArgString
	// ArgList is a parenthesized list.
	ArgList
	// ArgResponse is a bracketed section, e.g. a response code or the
	// section spec following BODY in a FETCH response.
	ArgResponse
	// ArgText is the human-readable text ending a status response.
	ArgText
)

func (t ArgType) String() string {
	switch t {
	case ArgAtom:
		return "atom"
	case ArgNumber:
		return "number"
	case ArgString:
		return "string"
	case ArgList:
		return "list"
	case ArgResponse:
		return "response"
	case ArgText:
		return "text"
	default:
		return fmt.Sprintf("ArgType(%d)", int(t))
	}
}

// Arg is a response argument.
type Arg struct {
	Type ArgType
	// Str holds the value of atoms, strings and text. Strings are binary-safe.
	Str string
	// Num holds the value of numbers.
	Num int64
	// List holds the children of lists and bracketed sections.
	List []Arg
}

// IsNIL reports whether the argument is the NIL atom.
func (arg *Arg) IsNIL() bool {
	return arg.Type == ArgAtom && strings.EqualFold(arg.Str, "NIL")
}

// AString returns the value of a string or of an atom. An all-digit atom is
// parsed as a number but keeps its text in Str, so it is accepted too.
func (arg *Arg) AString() (string, bool) {
	switch arg.Type {
	case ArgString, ArgAtom, ArgNumber:
		return arg.Str, true
	default:
		return "", false
	}
}

// NString returns the value of an nstring: a string, or NIL.
func (arg *Arg) NString() (string, bool) {
	if arg.IsNIL() {
		return "", true
	}
	return arg.AString()
}

// String formats the argument the way it would appear on the wire. Strings
// are always written as quoted strings or literals.
func (arg Arg) String() string {
	var sb strings.Builder
	arg.format(&sb)
	return sb.String()
}

func (arg *Arg) format(sb *strings.Builder) {
	switch arg.Type {
	case ArgAtom, ArgText:
		sb.WriteString(arg.Str)
	case ArgNumber:
		sb.WriteString(strconv.FormatInt(arg.Num, 10))
	case ArgString:
		enc := NewEncoder(len(arg.Str) + 2)
		enc.String(arg.Str)
		sb.Write(enc.Bytes())
	case ArgList, ArgResponse:
		open, end := byte('('), byte(')')
		if arg.Type == ArgResponse {
			open, end = '[', ']'
		}
		sb.WriteByte(open)
		for i := range arg.List {
			if i > 0 {
				sb.WriteByte(' ')
			}
			arg.List[i].format(sb)
		}
		sb.WriteByte(end)
	}
}

// Response is a single server response.
//
// For untagged responses Tag is "*", for continuation requests it is "+" and
// Name is empty. Name is upper-cased. Responses of the form "* 3 EXISTS" are
// normalized so that Name is "EXISTS" and the number is the first argument.
type Response struct {
	Tag  string
	Name string
	Args []Arg
}

// Untagged reports whether the response is untagged.
func (resp *Response) Untagged() bool {
	return resp.Tag == "*"
}

// Continuation reports whether the response is a continuation request.
func (resp *Response) Continuation() bool {
	return resp.Tag == "+"
}

// Code returns the bracketed response code of a status response or a
// continuation request, if any.
func (resp *Response) Code() *Arg {
	for i := range resp.Args {
		if resp.Args[i].Type == ArgResponse {
			return &resp.Args[i]
		}
	}
	return nil
}

// Text returns the human-readable text of a status response or a
// continuation request.
func (resp *Response) Text() string {
	for i := range resp.Args {
		if resp.Args[i].Type == ArgText {
			return resp.Args[i].Str
		}
	}
	return ""
}

func (resp *Response) String() string {
	var sb strings.Builder
	sb.WriteString(resp.Tag)
	if resp.Name != "" {
		sb.WriteByte(' ')
		sb.WriteString(resp.Name)
	}
	for _, arg := range resp.Args {
		sb.WriteByte(' ')
		arg.format(&sb)
	}
	return sb.String()
}

// IsStatus reports whether name is one of the status response keywords,
// which are followed by an optional response code and free text.
func IsStatus(name string) bool {
	switch name {
	case "OK", "NO", "BAD", "BYE", "PREAUTH":
		return true
	default:
		return false
	}
}

// ParseError is a framing violation. The stream position cannot be trusted
// after one.
type ParseError struct {
	Offset int
	Msg    string
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("imapwire: parse error at offset %v: %v", err.Offset, err.Msg)
}

// IsAtomChar returns true if ch is an ATOM-CHAR.
func IsAtomChar(ch byte) bool {
	switch ch {
	case '(', ')', '{', ' ', '%', '*', '"', '\\', ']':
		return false
	default:
		return ch > 0x1F && ch < 0x7F
	}
}
