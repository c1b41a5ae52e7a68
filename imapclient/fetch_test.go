package imapclient

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerc-mail/imapworker"
)

const testBodyStructure = `(("TEXT" "PLAIN" ("CHARSET" "ISO-8859-1") NIL NIL "BASE64" 4 1 NIL NIL NIL)` +
	`(("TEXT" "HTML" ("CHARSET" "utf-8") NIL NIL "QUOTED-PRINTABLE" 12 1 NIL NIL NIL)` +
	`("IMAGE" "PNG" ("NAME" "logo.png") "<logo@example.org>" "Logo" "BASE64" 3000 NIL NIL NIL) "RELATED" ("BOUNDARY" "y") NIL NIL)` +
	` "ALTERNATIVE" ("BOUNDARY" "x") NIL NIL)`

func TestClient_FetchRange(t *testing.T) {
	c, srv, _ := newTestClient(t, nil)
	var updated []int
	c.options.UpdateHandler = &UpdateHandler{
		Message: func(mbox *Mailbox, msg *Message) { updated = append(updated, msg.Index) },
	}
	mbox := selectMailbox(t, c, srv, "INBOX", 3)

	var res result
	c.FetchRange(1, 2, res.callback())
	assert.Equal(t, "a0002 FETCH 2:3 (UID FLAGS INTERNALDATE BODYSTRUCTURE "+
		"BODY.PEEK[HEADER.FIELDS (DATE FROM SUBJECT TO CC MESSAGE-ID REFERENCES CONTENT-TYPE IN-REPLY-TO REPLY-TO)])",
		srv.expect(t))
	assert.False(t, mbox.Messages[0].Fetching)
	assert.True(t, mbox.Messages[1].Fetching)
	assert.True(t, mbox.Messages[2].Fetching)

	header := "Subject: =?utf-8?q?caf=C3=A9?=\r\nFrom: a@example.org\r\n\r\n"
	feed(t, c, `* 2 FETCH (UID 42 FLAGS () INTERNALDATE "17-Jul-1996 02:44:25 -0700" `+
		`BODYSTRUCTURE `+testBodyStructure+
		fmt.Sprintf(" BODY[HEADER.FIELDS (SUBJECT FROM)] {%v}\r\n%v)\r\n", len(header), header))
	feed(t, c, "* 3 FETCH (UID 43 FLAGS (\\Seen \\Answered))\r\n")
	assert.Equal(t, []int{1, 2}, updated)
	assert.Zero(t, res.calls)

	feed(t, c, "a0002 OK FETCH completed\r\n")
	assert.Equal(t, imapworker.StatusOK, res.status)

	msg := mbox.Messages[1]
	assert.False(t, msg.Fetching)
	assert.True(t, msg.Populated)
	assert.Equal(t, int64(42), msg.UID)
	assert.Empty(t, msg.Flags)
	assert.True(t, msg.InternalDate.Equal(time.Date(1996, 7, 17, 9, 44, 25, 0, time.UTC)))
	assert.Equal(t, []HeaderField{
		{Key: "Subject", Value: "café"},
		{Key: "From", Value: "a@example.org"},
	}, msg.Headers)

	assert.Equal(t, "alternative", msg.MultipartSubtype)
	require.Len(t, msg.Parts, 2)
	plain := msg.Parts[0]
	assert.Equal(t, "text", plain.Type)
	assert.Equal(t, "plain", plain.Subtype)
	assert.Equal(t, "base64", plain.Encoding)
	assert.Equal(t, "1", plain.Section)
	assert.Equal(t, int64(4), plain.Size)
	assert.Equal(t, "ISO-8859-1", plain.Param("charset"))
	assert.Nil(t, plain.Content)

	related := msg.Parts[1]
	assert.Equal(t, "multipart", related.Type)
	assert.Equal(t, "related", related.MultipartSubtype)
	require.Len(t, related.Parts, 2)
	assert.Equal(t, "2.1", related.Parts[0].Section)
	png := msg.Part("2.2")
	require.NotNil(t, png)
	assert.Equal(t, "<logo@example.org>", png.ID)
	assert.Equal(t, "Logo", png.Description)
	assert.Equal(t, "logo.png", png.Param("name"))

	third := mbox.Messages[2]
	assert.False(t, third.Fetching)
	assert.False(t, third.Populated)
	assert.True(t, third.HasFlag(imapworker.FlagAnswered))
}

func TestClient_FetchPart(t *testing.T) {
	c, srv, _ := newTestClient(t, nil)
	mbox := selectMailbox(t, c, srv, "INBOX", 1)
	msg := mbox.Messages[0]
	feed(t, c, "* 1 FETCH (FLAGS () BODYSTRUCTURE "+testBodyStructure+")\r\n")

	var res result
	c.FetchPart(0, 0, res.callback())
	assert.Equal(t, "a0002 FETCH 1 BODY[1]", srv.expect(t))

	feed(t, c, "* 1 FETCH (BODY[1] {4}\r\n6Q==)\r\na0002 OK done\r\n")
	assert.Equal(t, imapworker.StatusOK, res.status)
	assert.Equal(t, []byte("é"), msg.Parts[0].Content)
	assert.True(t, msg.HasFlag(imapworker.FlagSeen))
	assert.False(t, msg.Populated)

	// A server-provided \Seen isn't duplicated
	feed(t, c, "* 1 FETCH (FLAGS (\\Seen) BODY[1] {4}\r\n6Q==)\r\n")
	assert.Len(t, msg.Flags, 1)
}

func TestClient_fetchInvalid(t *testing.T) {
	c, srv, hook := newTestClient(t, nil)

	var res result
	c.FetchRange(0, 0, res.callback())
	assert.Equal(t, imapworker.StatusPreError, res.status)
	assert.Equal(t, "no mailbox selected", res.text)

	mbox := selectMailbox(t, c, srv, "INBOX", 2)
	for _, r := range [][2]int{{-1, 0}, {1, 0}, {0, 2}} {
		res = result{}
		c.FetchRange(r[0], r[1], res.callback())
		assert.Equal(t, imapworker.StatusPreError, res.status, "range %v", r)
	}
	c.FetchPart(0, 0, res.callback())
	assert.Equal(t, imapworker.StatusPreError, res.status)
	srv.expectNothing(t)

	// Data for unknown messages is ignored
	hook.Reset()
	feed(t, c, "* 5 FETCH (UID 1)\r\n")
	assert.NotNil(t, hook.LastEntry())
	assert.Len(t, mbox.Messages, 2)

	// Wrong argument types are fatal
	c.buf = append(c.buf, "* 1 FETCH (UID ABC)\r\n"...)
	var protoErr *ProtocolError
	assert.ErrorAs(t, c.drain(), &protoErr)
}

func TestIsPartSection(t *testing.T) {
	for s, want := range map[string]bool{
		"1":      true,
		"2.1":    true,
		"10.2.3": true,
		"":       false,
		"1.":     false,
		"TEXT":   false,
		"1.MIME": false,
	} {
		assert.Equal(t, want, isPartSection(s), s)
	}
}
