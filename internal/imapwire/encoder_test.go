package imapwire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aerc-mail/imapworker"
)

func TestEncoder(t *testing.T) {
	tests := []struct {
		name string
		enc  func(enc *Encoder)
		want string
	}{
		{"quoted", func(enc *Encoder) { enc.String(`a "b" \c`) }, `"a \"b\" \\c"`},
		{"literal", func(enc *Encoder) { enc.String("a\r\nb") }, "{4}\r\na\r\nb"},
		{"inbox", func(enc *Encoder) { enc.Mailbox("inbox") }, "INBOX"},
		{"mailbox_utf7", func(enc *Encoder) { enc.Mailbox("Entwürfe") }, `"Entw&APw-rfe"`},
		{"range", func(enc *Encoder) { enc.Range(1, 10) }, "1:10"},
		{"range_single", func(enc *Encoder) { enc.Range(7, 7) }, "7"},
		{"flags", func(enc *Encoder) {
			flags := []imapworker.Flag{imapworker.FlagSeen, imapworker.FlagDeleted}
			enc.List(len(flags), func(i int) { enc.Flag(flags[i]) })
		}, `(\Seen \Deleted)`},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			enc := NewEncoder(64)
			tc.enc(enc)
			assert.NoError(t, enc.Err())
			assert.Equal(t, tc.want, string(enc.Bytes()))
		})
	}
}

func TestEncoder_invalidFlag(t *testing.T) {
	enc := NewEncoder(16)
	enc.Flag("bad flag")
	assert.Error(t, enc.Err())
}

func TestEncoder_segments(t *testing.T) {
	enc := NewEncoder(64)
	enc.Atom("a0001 LOGIN").SP().String("user").SP().String("pässword").CRLF()

	segs := enc.Segments()
	if assert.Len(t, segs, 2) {
		assert.Equal(t, "a0001 LOGIN \"user\" {9}\r\n", string(segs[0]))
		assert.Equal(t, "pässword\r\n", string(segs[1]))
	}
}

func TestEncoder_zero(t *testing.T) {
	enc := NewEncoder(64)
	enc.Atom("a0001 LOGIN").SP().Quoted("user").SP().Quoted("secret").CRLF()
	buf := enc.Bytes()

	enc.Zero()
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %v = %q after Zero, want 0", i, b)
		}
	}
	assert.Empty(t, enc.Bytes())
}
