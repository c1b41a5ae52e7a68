package imapwire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aerc-mail/imapworker"
	"github.com/aerc-mail/imapworker/internal/utf7"
)

// An Encoder writes IMAP command data into a byte buffer.
//
// Most methods don't return an error, instead they defer error handling until
// Err is called. These methods return the Encoder so that calls can be
// chained.
//
// Literals cannot be sent in one go: the client must wait for a continuation
// request after each literal header. Segments splits the buffer accordingly.
type Encoder struct {
	buf    []byte
	splits []int
	err    error
}

// NewEncoder creates a new encoder. The buffer is allocated upfront with the
// given capacity, so that Zero can wipe all of it as long as the command
// doesn't outgrow it.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

func (enc *Encoder) setErr(err error) {
	if enc.err == nil {
		enc.err = err
	}
}

// Err returns the first error encountered while encoding.
func (enc *Encoder) Err() error {
	return enc.err
}

func (enc *Encoder) writeString(s string) *Encoder {
	if enc.err == nil {
		enc.buf = append(enc.buf, s...)
	}
	return enc
}

// Bytes returns the encoded data.
func (enc *Encoder) Bytes() []byte {
	return enc.buf
}

// Segments returns the encoded data split after each literal header. Each
// segment but the first must be sent after a continuation request.
func (enc *Encoder) Segments() [][]byte {
	segs := make([][]byte, 0, len(enc.splits)+1)
	start := 0
	for _, end := range enc.splits {
		segs = append(segs, enc.buf[start:end])
		start = end
	}
	return append(segs, enc.buf[start:])
}

// Zero overwrites the encoded data.
func (enc *Encoder) Zero() {
	buf := enc.buf[:cap(enc.buf)]
	for i := range buf {
		buf[i] = 0
	}
	enc.buf = enc.buf[:0]
	enc.splits = nil
}

// CRLF writes a "\r\n" sequence.
func (enc *Encoder) CRLF() *Encoder {
	return enc.writeString("\r\n")
}

func (enc *Encoder) Atom(s string) *Encoder {
	return enc.writeString(s)
}

func (enc *Encoder) SP() *Encoder {
	return enc.writeString(" ")
}

func (enc *Encoder) Special(ch byte) *Encoder {
	return enc.writeString(string(ch))
}

func (enc *Encoder) Quoted(s string) *Encoder {
	if enc.err == nil {
		enc.buf = appendQuoted(enc.buf, s)
	}
	return enc
}

// String writes a quoted string, or a literal if s cannot be quoted.
func (enc *Encoder) String(s string) *Encoder {
	if !validQuoted(s) {
		return enc.Literal(s)
	}
	return enc.Quoted(s)
}

// Secret writes b like String does. b is never converted to a Go string, so
// that wiping it and the encoder leaves no copy behind.
func (enc *Encoder) Secret(b []byte) *Encoder {
	if enc.err != nil {
		return enc
	}
	if !validQuoted(b) {
		return enc.literalHeader(len(b)).Raw(b)
	}
	enc.buf = appendQuoted(enc.buf, b)
	return enc
}

// Raw writes b verbatim.
func (enc *Encoder) Raw(b []byte) *Encoder {
	if enc.err == nil {
		enc.buf = append(enc.buf, b...)
	}
	return enc
}

func appendQuoted[T ~string | ~[]byte](dst []byte, s T) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' || ch == '\\' {
			dst = append(dst, '\\')
		}
		dst = append(dst, ch)
	}
	return append(dst, '"')
}

func validQuoted[T ~string | ~[]byte](s T) bool {
	if len(s) > 4096 {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == 0, ch == '\r', ch == '\n':
			return false
		case ch > 0x7F:
			return false
		}
	}
	return true
}

// Literal writes a synchronizing literal.
func (enc *Encoder) Literal(s string) *Encoder {
	return enc.literalHeader(len(s)).writeString(s)
}

func (enc *Encoder) literalHeader(n int) *Encoder {
	enc.writeString("{").writeString(strconv.Itoa(n)).writeString("}\r\n")
	if enc.err == nil {
		enc.splits = append(enc.splits, len(enc.buf))
	}
	return enc
}

// Mailbox writes a mailbox name, encoded in modified UTF-7.
func (enc *Encoder) Mailbox(name string) *Encoder {
	if strings.EqualFold(name, "INBOX") {
		return enc.Atom("INBOX")
	}
	encoded, err := utf7.Encoding.NewEncoder().String(name)
	if err != nil {
		enc.setErr(fmt.Errorf("imapwire: cannot encode mailbox %q: %v", name, err))
		return enc
	}
	return enc.String(encoded)
}

func (enc *Encoder) Flag(flag imapworker.Flag) *Encoder {
	if flag != imapworker.FlagWildcard && !isValidFlag(string(flag)) {
		enc.setErr(fmt.Errorf("imapwire: invalid flag %q", flag))
		return enc
	}
	return enc.writeString(string(flag))
}

// isValidFlag checks whether the provided string satisfies
// flag-keyword / flag-extension.
func isValidFlag(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' {
			if i != 0 {
				return false
			}
		} else {
			if !IsAtomChar(ch) {
				return false
			}
		}
	}
	return len(s) > 0
}

func (enc *Encoder) Number(v uint32) *Encoder {
	return enc.writeString(strconv.FormatUint(uint64(v), 10))
}

// Range writes a sequence range "min:max", or a single number if both ends
// are the same.
func (enc *Encoder) Range(min, max uint32) *Encoder {
	enc.Number(min)
	if max != min {
		enc.Special(':').Number(max)
	}
	return enc
}

// List writes a parenthesized list.
func (enc *Encoder) List(n int, f func(i int)) *Encoder {
	enc.Special('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			enc.SP()
		}
		f(i)
	}
	enc.Special(')')
	return enc
}
