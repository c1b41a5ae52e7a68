package imapclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/aerc-mail/imapworker"
	"github.com/aerc-mail/imapworker/internal/imapwire"
	"github.com/aerc-mail/imapworker/internal/utf7"
)

// dateTimeLayout is the layout of INTERNALDATE values.
const dateTimeLayout = "_2-Jan-2006 15:04:05 -0700"

func protocolError(resp *imapwire.Response, format string, args ...interface{}) error {
	return &ProtocolError{Response: resp.String(), Msg: fmt.Sprintf(format, args...)}
}

func expectArg(resp *imapwire.Response, args []imapwire.Arg, i int, typ imapwire.ArgType, name string) (*imapwire.Arg, error) {
	if i >= len(args) {
		return nil, protocolError(resp, "missing %v", name)
	}
	if args[i].Type != typ {
		return nil, protocolError(resp, "expected %v for %v, got %v", typ, name, args[i].Type)
	}
	return &args[i], nil
}

func expectNumber(resp *imapwire.Response, args []imapwire.Arg, i int, name string) (int64, error) {
	arg, err := expectArg(resp, args, i, imapwire.ArgNumber, name)
	if err != nil {
		return 0, err
	}
	return arg.Num, nil
}

// expectString accepts a string, or an atom standing for one.
func expectString(resp *imapwire.Response, args []imapwire.Arg, i int, name string) (string, error) {
	if i >= len(args) {
		return "", protocolError(resp, "missing %v", name)
	}
	s, ok := args[i].AString()
	if !ok {
		return "", protocolError(resp, "expected string for %v, got %v", name, args[i].Type)
	}
	return s, nil
}

func expectNString(resp *imapwire.Response, args []imapwire.Arg, i int, name string) (string, error) {
	if i >= len(args) {
		return "", protocolError(resp, "missing %v", name)
	}
	s, ok := args[i].NString()
	if !ok {
		return "", protocolError(resp, "expected nstring for %v, got %v", name, args[i].Type)
	}
	return s, nil
}

func expectAtomList(resp *imapwire.Response, args []imapwire.Arg, i int, name string) ([]string, error) {
	arg, err := expectArg(resp, args, i, imapwire.ArgList, name)
	if err != nil {
		return nil, err
	}
	l := make([]string, 0, len(arg.List))
	for j := range arg.List {
		// Keywords may be made of digits only
		if t := arg.List[j].Type; t != imapwire.ArgAtom && t != imapwire.ArgNumber {
			return nil, protocolError(resp, "expected atom in %v, got %v", name, t)
		}
		l = append(l, arg.List[j].Str)
	}
	return l, nil
}

func readFlags(resp *imapwire.Response, args []imapwire.Arg, i int) ([]imapworker.Flag, error) {
	l, err := expectAtomList(resp, args, i, "flag list")
	if err != nil {
		return nil, err
	}
	flags := make([]imapworker.Flag, len(l))
	for j, s := range l {
		flags[j] = imapworker.Flag(s)
	}
	return flags, nil
}

func decodeMailboxName(name string) string {
	if strings.EqualFold(name, "INBOX") {
		return "INBOX"
	}
	decoded, err := utf7.Encoding.NewDecoder().String(name)
	if err != nil {
		return name
	}
	return decoded
}

func parseInternalDate(s string) (time.Time, error) {
	return time.Parse(dateTimeLayout, strings.TrimSpace(s))
}
