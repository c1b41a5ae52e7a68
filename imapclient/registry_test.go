package imapclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aerc-mail/imapworker"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.Register(untaggedTag, func(imapworker.Status, string) { got = append(got, "greeting") })
	r.Register("a0001", func(imapworker.Status, string) { got = append(got, "a0001") })
	r.Register("a0002", func(imapworker.Status, string) { got = append(got, "a0002") })
	assert.Equal(t, 2, r.Pending())

	assert.Panics(t, func() {
		r.Register("a0001", func(imapworker.Status, string) {})
	})

	cb, ok := r.Resolve("a0002")
	if assert.True(t, ok) {
		cb(imapworker.StatusOK, "")
	}
	_, ok = r.Resolve("a0002")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Pending())

	cb, ok = r.Resolve(untaggedTag)
	if assert.True(t, ok) {
		cb(imapworker.StatusOK, "")
	}
	assert.Equal(t, []string{"a0002", "greeting"}, got)

	r.Abandon()
	assert.Zero(t, r.Pending())
	_, ok = r.Resolve("a0001")
	assert.False(t, ok)
	assert.Equal(t, []string{"a0002", "greeting"}, got)
}
