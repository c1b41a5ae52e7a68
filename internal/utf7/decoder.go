package utf7

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

type decoder struct {
	// prevEncoded is set right after a base64 section, where another
	// section may not start.
	prevEncoded bool
}

func (d *decoder) Reset() {
	d.prevEncoded = false
}

func (d *decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		ch := src[nSrc]
		if ch < min || ch > max {
			return nDst, nSrc, ErrInvalidUTF7
		}

		if ch != '&' {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = ch
			nDst++
			nSrc++
			d.prevEncoded = false
			continue
		}

		end := bytes.IndexByte(src[nSrc+1:], '-')
		if end < 0 {
			if atEOF {
				return nDst, nSrc, ErrInvalidUTF7
			}
			return nDst, nSrc, transform.ErrShortSrc
		}
		end += nSrc + 1

		var out []byte
		if end == nSrc+1 {
			out = []byte{'&'}
			d.prevEncoded = false
		} else {
			if d.prevEncoded {
				return nDst, nSrc, ErrInvalidUTF7
			}
			out, err = decodeSection(src[nSrc+1 : end])
			if err != nil {
				return nDst, nSrc, err
			}
			d.prevEncoded = true
		}

		if nDst+len(out) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], out)
		nSrc = end + 1
	}
	return nDst, nSrc, nil
}

// decodeSection decodes the base64 text between '&' and '-'.
func decodeSection(s []byte) ([]byte, error) {
	raw := make([]byte, b64.DecodedLen(len(s)))
	n, err := b64.Decode(raw, s)
	if err != nil || n%2 != 0 {
		return nil, ErrInvalidUTF7
	}
	raw = raw[:n]

	var out []byte
	for i := 0; i < len(raw); i += 2 {
		r := rune(raw[i])<<8 | rune(raw[i+1])
		if utf16.IsSurrogate(r) {
			if i+3 >= len(raw) {
				return nil, ErrInvalidUTF7
			}
			r2 := rune(raw[i+2])<<8 | rune(raw[i+3])
			r = utf16.DecodeRune(r, r2)
			if r == repl {
				return nil, ErrInvalidUTF7
			}
			i += 2
		} else if min <= r && r <= max {
			// Printable ASCII must not be base64-encoded
			return nil, ErrInvalidUTF7
		}
		out = utf8.AppendRune(out, r)
	}
	return out, nil
}
