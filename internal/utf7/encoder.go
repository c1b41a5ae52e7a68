package utf7

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

type encoder struct{}

func (e *encoder) Reset() {}

func (e *encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		ch := src[nSrc]
		if min <= ch && ch <= max {
			out := []byte{ch}
			if ch == '&' {
				out = []byte("&-")
			}
			if nDst+len(out) > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			nDst += copy(dst[nDst:], out)
			nSrc++
			continue
		}

		i := nSrc
		var units []uint16
		for i < len(src) && (src[i] < min || src[i] > max) {
			r, size := utf8.DecodeRune(src[i:])
			if r == utf8.RuneError && size <= 1 {
				if !atEOF && !utf8.FullRune(src[i:]) {
					return nDst, nSrc, transform.ErrShortSrc
				}
				r = repl
			}
			units = utf16.AppendRune(units, r)
			i += size
		}
		if i == len(src) && !atEOF {
			return nDst, nSrc, transform.ErrShortSrc
		}

		raw := make([]byte, 0, 2*len(units))
		for _, u := range units {
			raw = append(raw, byte(u>>8), byte(u))
		}
		out := make([]byte, 0, b64.EncodedLen(len(raw))+2)
		out = append(out, '&')
		out = out[:1+b64.EncodedLen(len(raw))]
		b64.Encode(out[1:], raw)
		out = append(out, '-')

		if nDst+len(out) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], out)
		nSrc = i
	}
	return nDst, nSrc, nil
}
