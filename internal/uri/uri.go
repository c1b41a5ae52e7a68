// Package uri parses account connection strings of the form
// scheme:[//][user[:pass]@]host[:port][/path][?query][#fragment].
//
// The password is kept as a byte slice so it can be wiped once it has been
// used.
package uri

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aerc-mail/imapworker/internal"
)

// URI is a parsed connection string.
type URI struct {
	Scheme   string
	Username string
	Password []byte
	Host     string
	Port     string
	Path     string
	Query    string
	Fragment string
}

// Parse parses a connection string. The userinfo component is percent-decoded,
// with '+' standing for a space.
func Parse(b []byte) (*URI, error) {
	u := &URI{}

	i := bytes.IndexByte(b, ':')
	if i <= 0 {
		return nil, errors.New("uri: missing scheme")
	}
	for j, ch := range b[:i] {
		if !isSchemeChar(ch, j == 0) {
			return nil, fmt.Errorf("uri: invalid character %q in scheme", ch)
		}
	}
	u.Scheme = strings.ToLower(string(b[:i]))
	rest := b[i+1:]
	if len(rest) >= 2 && rest[0] == '/' && rest[1] == '/' {
		rest = rest[2:]
	}

	end := len(rest)
	for j, ch := range rest {
		if ch == '/' || ch == '?' || ch == '#' {
			end = j
			break
		}
	}
	authority, rest := rest[:end], rest[end:]

	if at := bytes.LastIndexByte(authority, '@'); at >= 0 {
		userinfo := authority[:at]
		authority = authority[at+1:]

		user := userinfo
		var pass []byte
		if colon := bytes.IndexByte(userinfo, ':'); colon >= 0 {
			user, pass = userinfo[:colon], userinfo[colon+1:]
		}
		username, err := unescape(user)
		if err != nil {
			return nil, err
		}
		u.Username = string(username)
		if pass != nil {
			if u.Password, err = unescape(pass); err != nil {
				return nil, err
			}
		}
	}

	if err := u.parseHostPort(string(authority)); err != nil {
		u.Zero()
		return nil, err
	}

	if i := bytes.IndexByte(rest, '#'); i >= 0 {
		u.Fragment = string(rest[i+1:])
		rest = rest[:i]
	}
	if i := bytes.IndexByte(rest, '?'); i >= 0 {
		u.Query = string(rest[i+1:])
		rest = rest[:i]
	}
	u.Path = string(rest)
	return u, nil
}

func (u *URI) parseHostPort(s string) error {
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return errors.New("uri: missing ']' in host")
		}
		u.Host = s[1:end]
		s = s[end+1:]
		if s != "" && s[0] != ':' {
			return fmt.Errorf("uri: unexpected %q after host", s)
		}
		if s != "" {
			u.Port = s[1:]
		}
	} else if i := strings.LastIndexByte(s, ':'); i >= 0 {
		u.Host, u.Port = s[:i], s[i+1:]
	} else {
		u.Host = s
	}

	if u.Host == "" {
		return errors.New("uri: missing host")
	}
	for i := 0; i < len(u.Port); i++ {
		if u.Port[i] < '0' || u.Port[i] > '9' {
			return fmt.Errorf("uri: invalid port %q", u.Port)
		}
	}
	return nil
}

// Address returns host:port, using defaultPort if the URI has none.
func (u *URI) Address(defaultPort string) string {
	port := u.Port
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(u.Host, port)
}

// Zero wipes the password.
func (u *URI) Zero() {
	internal.Zero(u.Password)
	u.Password = nil
}

// Redacted formats the URI without its password.
func (u *URI) Redacted() string {
	var sb strings.Builder
	sb.WriteString(u.Scheme)
	sb.WriteString("://")
	if u.Username != "" {
		sb.WriteString(u.Username)
		if u.Password != nil {
			sb.WriteString(":xxxxx")
		}
		sb.WriteByte('@')
	}
	if strings.Contains(u.Host, ":") {
		sb.WriteString("[" + u.Host + "]")
	} else {
		sb.WriteString(u.Host)
	}
	if u.Port != "" {
		sb.WriteString(":" + u.Port)
	}
	sb.WriteString(u.Path)
	return sb.String()
}

func unescape(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		switch ch := b[i]; ch {
		case '+':
			out = append(out, ' ')
		case '%':
			if i+2 >= len(b) || !isHex(b[i+1]) || !isHex(b[i+2]) {
				return nil, errors.New("uri: invalid percent escape")
			}
			out = append(out, unhex(b[i+1])<<4|unhex(b[i+2]))
			i += 2
		default:
			out = append(out, ch)
		}
	}
	return out, nil
}

func isSchemeChar(ch byte, first bool) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z':
		return true
	case '0' <= ch && ch <= '9', ch == '+', ch == '-', ch == '.':
		return !first
	default:
		return false
	}
}

func isHex(ch byte) bool {
	return ('0' <= ch && ch <= '9') || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func unhex(ch byte) byte {
	switch {
	case '0' <= ch && ch <= '9':
		return ch - '0'
	case 'a' <= ch && ch <= 'f':
		return ch - 'a' + 10
	default:
		return ch - 'A' + 10
	}
}
