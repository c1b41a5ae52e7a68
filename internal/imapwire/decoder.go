package imapwire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxLiteralSize bounds the byte count announced by a literal.
const maxLiteralSize = 1 << 30

// needMoreError signals that the buffer ends before the response does.
type needMoreError struct {
	n int
}

func (err *needMoreError) Error() string {
	return fmt.Sprintf("imapwire: need %v more bytes", err.n)
}

// Parse parses the first response held in b.
//
// If b holds a complete response, it is returned along with the number of
// bytes it spans. If b ends before the response does, Parse returns a nil
// response and a lower bound of the number of additional bytes required: the
// caller should append more data and call Parse again on the same start
// offset. A *ParseError is returned on malformed input.
func Parse(b []byte) (resp *Response, consumed, needed int, err error) {
	dec := &Decoder{buf: b}
	resp = dec.readResponse()
	if dec.err != nil {
		var need *needMoreError
		if errors.As(dec.err, &need) {
			return nil, 0, need.n, nil
		}
		return nil, 0, 0, dec.err
	}
	return resp, dec.pos, 0, nil
}

// Decoder reads IMAP data out of a byte buffer.
type Decoder struct {
	buf []byte
	pos int
	err error
}

func (dec *Decoder) Err() error {
	return dec.err
}

func (dec *Decoder) returnErr(err error) bool {
	if err == nil {
		return true
	}
	if dec.err == nil {
		dec.err = err
	}
	return false
}

func (dec *Decoder) parseError(format string, args ...interface{}) bool {
	return dec.returnErr(&ParseError{Offset: dec.pos, Msg: fmt.Sprintf(format, args...)})
}

func (dec *Decoder) needMore(n int) bool {
	if n < 1 {
		n = 1
	}
	return dec.returnErr(&needMoreError{n})
}

func (dec *Decoder) peek() (byte, bool) {
	if dec.err != nil {
		return 0, false
	}
	if dec.pos >= len(dec.buf) {
		return 0, dec.needMore(1)
	}
	return dec.buf[dec.pos], true
}

func (dec *Decoder) readByte() (byte, bool) {
	b, ok := dec.peek()
	if ok {
		dec.pos++
	}
	return b, ok
}

func (dec *Decoder) acceptByte(want byte) bool {
	got, ok := dec.peek()
	if !ok || got != want {
		return false
	}
	dec.pos++
	return true
}

func (dec *Decoder) Expect(ok bool, name string) bool {
	if !ok {
		if dec.err != nil {
			return false
		}
		if dec.pos < len(dec.buf) {
			return dec.parseError("expected %v, got %q", name, dec.buf[dec.pos])
		}
		return dec.parseError("expected %v", name)
	}
	return true
}

func (dec *Decoder) SP() bool {
	return dec.acceptByte(' ')
}

func (dec *Decoder) ExpectSP() bool {
	return dec.Expect(dec.SP(), "SP")
}

// CRLF accepts "\r\n". A bare "\n" is tolerated.
func (dec *Decoder) CRLF() bool {
	dec.acceptByte('\r')
	return dec.acceptByte('\n')
}

func (dec *Decoder) ExpectCRLF() bool {
	return dec.Expect(dec.CRLF(), "CRLF")
}

func isAtomDelim(ch byte) bool {
	switch ch {
	case ' ', '\r', '\n', '(', ')', '[', ']':
		return true
	default:
		return false
	}
}

// Atom reads a run of bytes up to a delimiter. Atoms are always followed by
// something, so reaching the end of the buffer means more data is needed.
func (dec *Decoder) Atom(ptr *string) bool {
	start := dec.pos
	for {
		ch, ok := dec.peek()
		if !ok {
			return false
		}
		if isAtomDelim(ch) {
			break
		}
		dec.pos++
	}
	if dec.pos == start {
		return false
	}
	*ptr = string(dec.buf[start:dec.pos])
	return true
}

func (dec *Decoder) ExpectAtom(ptr *string) bool {
	return dec.Expect(dec.Atom(ptr), "atom")
}

// Text reads everything up to the end of the line.
func (dec *Decoder) Text(ptr *string) bool {
	start := dec.pos
	for {
		ch, ok := dec.peek()
		if !ok {
			return false
		}
		if ch == '\r' || ch == '\n' {
			break
		}
		dec.pos++
	}
	*ptr = string(dec.buf[start:dec.pos])
	return true
}

func (dec *Decoder) Quoted(ptr *string) bool {
	if !dec.acceptByte('"') {
		return false
	}
	var sb strings.Builder
	for {
		ch, ok := dec.readByte()
		if !ok {
			return false
		}
		switch ch {
		case '"':
			*ptr = sb.String()
			return true
		case '\r', '\n':
			dec.pos--
			return dec.parseError("unterminated quoted string")
		case '\\':
			ch, ok = dec.readByte()
			if !ok {
				return false
			}
		}
		sb.WriteByte(ch)
	}
}

// Literal reads a "{N}\r\n" prefix followed by N raw bytes.
func (dec *Decoder) Literal(ptr *string) bool {
	if !dec.acceptByte('{') {
		return false
	}
	start := dec.pos
	for {
		ch, ok := dec.peek()
		if !ok {
			return false
		}
		if ch == '}' {
			break
		}
		if ch < '0' || ch > '9' {
			return dec.parseError("malformed literal byte count")
		}
		dec.pos++
	}
	size, err := strconv.ParseUint(string(dec.buf[start:dec.pos]), 10, 64)
	if err != nil || size > maxLiteralSize {
		return dec.parseError("malformed literal byte count")
	}
	dec.pos++ // '}'
	if !dec.ExpectCRLF() {
		return false
	}

	n := int(size)
	if avail := len(dec.buf) - dec.pos; avail < n {
		return dec.needMore(n - avail)
	}
	*ptr = string(dec.buf[dec.pos : dec.pos+n])
	dec.pos += n
	return true
}

func (dec *Decoder) readArg() (Arg, bool) {
	ch, ok := dec.peek()
	if !ok {
		return Arg{}, false
	}

	var arg Arg
	switch ch {
	case '(':
		arg.Type = ArgList
		ok = dec.readList(&arg.List, ')')
	case '[':
		arg.Type = ArgResponse
		ok = dec.readList(&arg.List, ']')
	case ')', ']':
		return arg, dec.parseError("unmatched %q", ch)
	case '"':
		arg.Type = ArgString
		ok = dec.Quoted(&arg.Str)
	case '{':
		arg.Type = ArgString
		ok = dec.Literal(&arg.Str)
	default:
		arg.Type = ArgAtom
		ok = dec.ExpectAtom(&arg.Str)
		if ok && isNumber(arg.Str) {
			if v, err := strconv.ParseInt(arg.Str, 10, 64); err == nil {
				arg.Type = ArgNumber
				arg.Num = v
			}
		}
	}
	return arg, ok
}

func isNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// readList reads items up to the end byte. Items may be separated by any
// number of spaces, including none, e.g. "BODY[1]<0>".
func (dec *Decoder) readList(items *[]Arg, end byte) bool {
	dec.pos++ // opening byte
	for {
		ch, ok := dec.peek()
		if !ok {
			return false
		}
		switch ch {
		case ' ':
			dec.pos++
			continue
		case end:
			dec.pos++
			return true
		case '\r', '\n':
			return dec.parseError("unterminated list, expected %q", end)
		}

		item, ok := dec.readArg()
		if !ok {
			return false
		}
		*items = append(*items, item)
	}
}

// readArgs reads arguments up to the end of the line.
func (dec *Decoder) readArgs(args *[]Arg) bool {
	for {
		ch, ok := dec.peek()
		if !ok {
			return false
		}
		switch ch {
		case ' ':
			dec.pos++
			continue
		case '\r', '\n':
			return true
		}

		arg, ok := dec.readArg()
		if !ok {
			return false
		}
		*args = append(*args, arg)
	}
}

// readRespText reads [SP] ["[" code "]" [SP]] text.
func (dec *Decoder) readRespText(args *[]Arg) bool {
	dec.SP()
	if ch, ok := dec.peek(); !ok {
		return false
	} else if ch == '[' {
		code, ok := dec.readArg()
		if !ok {
			return false
		}
		*args = append(*args, code)
		dec.SP()
	}
	var text string
	if !dec.Text(&text) {
		return false
	}
	*args = append(*args, Arg{Type: ArgText, Str: text})
	return true
}

func (dec *Decoder) readResponse() *Response {
	resp := &Response{}

	switch ch, ok := dec.peek(); {
	case !ok:
		return nil
	case ch == '*' || ch == '+':
		dec.pos++
		resp.Tag = string(ch)
	default:
		if !dec.ExpectAtom(&resp.Tag) {
			return nil
		}
	}

	if resp.Continuation() {
		if !dec.readRespText(&resp.Args) || !dec.ExpectCRLF() {
			return nil
		}
		return resp
	}

	var name string
	if !dec.ExpectSP() || !dec.ExpectAtom(&name) {
		return nil
	}
	if isNumber(name) {
		// number SP name, e.g. "* 3 EXISTS"
		num, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			dec.parseError("invalid number %q", name)
			return nil
		}
		resp.Args = append(resp.Args, Arg{Type: ArgNumber, Num: num, Str: name})
		if !dec.ExpectSP() || !dec.ExpectAtom(&name) {
			return nil
		}
	}
	resp.Name = strings.ToUpper(name)

	var ok bool
	if IsStatus(resp.Name) {
		ok = dec.readRespText(&resp.Args)
	} else {
		ok = dec.readArgs(&resp.Args)
	}
	if !ok || !dec.ExpectCRLF() {
		return nil
	}
	return resp
}
