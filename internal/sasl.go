package internal

import (
	"encoding/base64"
)

// AppendSASL appends the base64 form of a SASL response to dst. An empty
// response is sent as "=".
func AppendSASL(dst, b []byte) []byte {
	if len(b) == 0 {
		return append(dst, '=')
	}
	n := len(dst)
	dst = append(dst, make([]byte, base64.StdEncoding.EncodedLen(len(b)))...)
	base64.StdEncoding.Encode(dst[n:], b)
	return dst
}

// EncodeSASL is the string form of AppendSASL.
func EncodeSASL(b []byte) string {
	return string(AppendSASL(nil, b))
}

func DecodeSASL(s string) ([]byte, error) {
	if s == "=" {
		// go-sasl treats nil as no challenge/response, so return a non-nil
		// empty byte slice
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
