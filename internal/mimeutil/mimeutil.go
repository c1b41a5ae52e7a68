// Package mimeutil decodes MIME content and header fields fetched from the
// server.
package mimeutil

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/textproto"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// DecodeContent undoes the transfer encoding of a part, then converts its
// text to UTF-8.
//
// Decoding is best-effort: the returned buffer is always usable, and a
// non-nil error describes what could not be decoded. An unknown transfer
// encoding leaves the content as is. An unknown charset leaves the content in
// its original charset.
func DecodeContent(raw []byte, encoding, charsetName string) ([]byte, error) {
	var h message.Header
	h.Set("Content-Transfer-Encoding", encoding)

	var decodeErr error
	e, err := message.New(h, bytes.NewReader(raw))
	if message.IsUnknownEncoding(err) {
		decodeErr = err
	} else if err != nil {
		return raw, err
	}

	b, err := io.ReadAll(e.Body)
	if err != nil {
		return raw, fmt.Errorf("mimeutil: failed to decode %v content: %w", encoding, err)
	}

	out, err := ConvertCharset(b, charsetName)
	if err != nil && decodeErr == nil {
		decodeErr = err
	}
	return out, decodeErr
}

var dropInvalid = runes.Remove(runes.Predicate(func(r rune) bool {
	return r == utf8.RuneError
}))

// ConvertCharset converts text in the named charset to UTF-8. Byte sequences
// that are invalid in the source charset are dropped.
func ConvertCharset(b []byte, name string) ([]byte, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8", "us-ascii":
		return b, nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Bytes(b)
	}

	r, err := charset.Reader(name, bytes.NewReader(b))
	if err != nil {
		return b, err
	}
	out, err := io.ReadAll(transform.NewReader(r, dropInvalid))
	if err != nil {
		return out, fmt.Errorf("mimeutil: failed to convert from %v: %w", name, err)
	}
	return out, nil
}

// ParseHeaders parses a header block, calling fn for each field in wire
// order. Encoded words (RFC 2047) are decoded; if a field uses an unknown
// charset its raw value is passed instead.
func ParseHeaders(raw []byte, fn func(key, value string)) error {
	th, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	h := message.Header{Header: th}

	fields := h.Fields()
	for fields.Next() {
		value, textErr := fields.Text()
		if textErr != nil {
			value = fields.Value()
		}
		fn(fields.Key(), value)
	}
	if err != nil {
		return fmt.Errorf("mimeutil: failed to parse header: %w", err)
	}
	return nil
}
