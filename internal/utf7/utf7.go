// Package utf7 implements the modified UTF-7 encoding used for mailbox
// names, defined in RFC 3501 section 5.1.3.
package utf7

import (
	"encoding/base64"
	"errors"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

const (
	min = 0x20 // Minimum self-representing UTF-7 value
	max = 0x7E // Maximum self-representing UTF-7 value

	repl = '\uFFFD' // Unicode replacement code point
)

var b64 = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+,").
	WithPadding(base64.NoPadding).
	Strict()

// ErrInvalidUTF7 is returned by the decoder on malformed input.
var ErrInvalidUTF7 = errors.New("utf7: invalid UTF-7")

type modifiedUTF7 struct{}

// Encoding is the modified UTF-7 encoding. Its decoder turns a mailbox name
// as sent on the wire into UTF-8, its encoder does the reverse.
var Encoding encoding.Encoding = modifiedUTF7{}

func (modifiedUTF7) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: &decoder{}}
}

func (modifiedUTF7) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: &encoder{}}
}

var _ transform.Transformer = (*decoder)(nil)
var _ transform.Transformer = (*encoder)(nil)
