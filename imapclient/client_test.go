package imapclient

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerc-mail/imapworker"
)

// testServer is the server end of a client connection. Lines written by the
// client are collected in lines.
type testServer struct {
	conn  net.Conn
	lines chan string
}

func newTestClient(t *testing.T, options *Options) (*Client, *testServer, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	if options == nil {
		options = &Options{}
	}
	options.Logger = logger
	if options.PollTimeout == 0 {
		options.PollTimeout = 5 * time.Millisecond
	}

	clientConn, serverConn := net.Pipe()
	srv := &testServer{conn: serverConn, lines: make(chan string, 64)}
	go func() {
		defer close(srv.lines)
		br := bufio.NewReader(serverConn)
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			srv.lines <- strings.TrimRight(line, "\r\n")
		}
	}()

	c := New(clientConn, options)
	t.Cleanup(func() {
		c.Close()
		serverConn.Close()
	})
	return c, srv, hook
}

// writeAsync sends data to the client. It completes as the client reads it.
func (srv *testServer) writeAsync(s string) {
	go srv.conn.Write([]byte(s))
}

func (srv *testServer) expect(t *testing.T) string {
	t.Helper()
	select {
	case line, ok := <-srv.lines:
		require.True(t, ok, "connection closed")
		return line
	case <-time.After(time.Second):
		require.FailNow(t, "timeout waiting for a command")
		return ""
	}
}

func (srv *testServer) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case line := <-srv.lines:
		assert.Fail(t, "unexpected command", line)
	case <-time.After(50 * time.Millisecond):
	}
}

// feed dispatches server data without going through the connection.
func feed(t *testing.T, c *Client, s string) {
	t.Helper()
	c.buf = append(c.buf, s...)
	require.NoError(t, c.drain())
}

func pollUntil(t *testing.T, c *Client, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !done() {
		require.True(t, time.Now().Before(deadline), "timeout")
		_, err := c.Poll()
		require.NoError(t, err)
	}
}

func tagOf(line string) string {
	tag, _, _ := strings.Cut(line, " ")
	return tag
}

type result struct {
	calls  int
	status imapworker.Status
	text   string
}

func (r *result) callback() Callback {
	return func(status imapworker.Status, text string) {
		r.calls++
		r.status = status
		r.text = text
	}
}

// selectMailbox selects a mailbox holding n messages.
func selectMailbox(t *testing.T, c *Client, srv *testServer, name string, n int) *Mailbox {
	t.Helper()
	var res result
	c.SelectMailbox(name, res.callback())
	line := srv.expect(t)
	require.True(t, strings.HasPrefix(line, tagOf(line)+" SELECT "), line)
	feed(t, c, fmt.Sprintf("* %v EXISTS\r\n"+
		"* 0 RECENT\r\n"+
		"* FLAGS (\\Seen \\Deleted \\Answered)\r\n"+
		"* OK [PERMANENTFLAGS (\\Seen \\Deleted \\*)] Limited\r\n"+
		"* OK [UIDNEXT 4392] Predicted next UID\r\n"+
		"%v OK [READ-WRITE] SELECT completed\r\n", n, tagOf(line)))
	require.Equal(t, 1, res.calls)
	require.Equal(t, imapworker.StatusOK, res.status)
	mbox := c.Selected()
	require.NotNil(t, mbox)
	return mbox
}

func TestClient_tagCorrelation(t *testing.T) {
	c, srv, _ := newTestClient(t, nil)

	var noop, capability result
	c.Noop(noop.callback())
	assert.Equal(t, "a0001 NOOP", srv.expect(t))
	c.Capability(capability.callback())
	assert.Equal(t, "a0002 CAPABILITY", srv.expect(t))
	assert.Equal(t, 2, c.registry.Pending())

	feed(t, c, "* CAPABILITY IMAP4rev1 IDLE\r\n")
	assert.Zero(t, noop.calls)
	assert.Zero(t, capability.calls)

	feed(t, c, "* 3 RECENT\r\na0002 OK CAPABILITY completed\r\n")
	assert.Zero(t, noop.calls)
	assert.Equal(t, 1, capability.calls)
	assert.True(t, c.Caps().Has(imapworker.CapIdle))

	feed(t, c, "a0001 NO [ALERT] try later\r\n")
	assert.Equal(t, 1, noop.calls)
	assert.Equal(t, imapworker.StatusNo, noop.status)
	assert.Equal(t, "try later", noop.text)
	assert.Equal(t, 1, capability.calls)
	assert.Zero(t, c.registry.Pending())
}

func TestClient_unknownTag(t *testing.T) {
	c, _, hook := newTestClient(t, nil)
	feed(t, c, "a0042 OK what\r\n")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestClient_protocolError(t *testing.T) {
	c, _, _ := newTestClient(t, nil)
	c.buf = append(c.buf, "* 3 EXISTS (\r\n"...)
	err := c.drain()
	var protoErr *ProtocolError
	if !assert.ErrorAs(t, err, &protoErr) {
		return
	}

	c, _, _ = newTestClient(t, nil)
	c.buf = append(c.buf, "* CAPABILITY (IMAP4rev1)\r\n"...)
	assert.ErrorAs(t, c.drain(), &protoErr)
}

func TestClient_partialResponse(t *testing.T) {
	c, _, _ := newTestClient(t, nil)
	var res result
	c.Noop(res.callback())

	feed(t, c, "a0001 O")
	assert.Zero(t, res.calls)
	feed(t, c, "K done\r")
	assert.Zero(t, res.calls)
	feed(t, c, "\n")
	assert.Equal(t, 1, res.calls)
	assert.Nil(t, c.buf)
}

func TestClient_Idle(t *testing.T) {
	c, srv, _ := newTestClient(t, &Options{IdleDelay: time.Millisecond})
	c.loggedIn = true
	c.caps = imapworker.NewCapSet("IMAP4rev1", "IDLE")

	require.NoError(t, c.maybeIdle(time.Now().Add(time.Second)))
	assert.Equal(t, "a0001 IDLE", srv.expect(t))
	assert.Equal(t, ModeIdle, c.Mode())
	feed(t, c, "+ idling\r\n")
	feed(t, c, "* 4 EXISTS\r\n")
	assert.Equal(t, ModeIdle, c.Mode())

	var res result
	c.Noop(res.callback())
	assert.Equal(t, ModeLine, c.Mode())
	assert.Equal(t, "DONE", srv.expect(t))
	assert.Equal(t, "a0002 NOOP", srv.expect(t))

	feed(t, c, "a0001 OK IDLE terminated\r\na0002 OK NOOP completed\r\n")
	assert.Equal(t, 1, res.calls)
	assert.Equal(t, ModeLine, c.Mode())
}

func TestClient_idleConditions(t *testing.T) {
	c, srv, _ := newTestClient(t, &Options{IdleDelay: time.Second})
	c.caps = imapworker.NewCapSet("IMAP4rev1", "IDLE")

	// Not logged in
	require.NoError(t, c.maybeIdle(time.Now().Add(time.Hour)))
	assert.Equal(t, ModeLine, c.Mode())

	c.loggedIn = true

	// Too early
	require.NoError(t, c.maybeIdle(time.Now()))
	assert.Equal(t, ModeLine, c.Mode())

	// Command outstanding
	var res result
	c.Noop(res.callback())
	srv.expect(t)
	require.NoError(t, c.maybeIdle(time.Now().Add(time.Hour)))
	assert.Equal(t, ModeLine, c.Mode())
	feed(t, c, "a0001 OK\r\n")

	// Server refuses
	require.NoError(t, c.maybeIdle(time.Now().Add(time.Hour)))
	assert.Equal(t, "a0002 IDLE", srv.expect(t))
	feed(t, c, "a0002 NO not now\r\n")
	assert.Equal(t, ModeLine, c.Mode())
	require.NoError(t, c.maybeIdle(time.Now().Add(time.Hour)))
	assert.Equal(t, ModeLine, c.Mode())
	srv.expectNothing(t)
}

func TestClient_idleRefresh(t *testing.T) {
	c, srv, _ := newTestClient(t, &Options{IdleRefresh: time.Minute})
	c.loggedIn = true
	c.caps = imapworker.NewCapSet("IMAP4rev1", "IDLE")

	require.NoError(t, c.Idle())
	assert.Equal(t, "a0001 IDLE", srv.expect(t))

	require.NoError(t, c.maybeIdle(time.Now().Add(30*time.Second)))
	srv.expectNothing(t)

	require.NoError(t, c.maybeIdle(time.Now().Add(2*time.Minute)))
	assert.Equal(t, "DONE", srv.expect(t))
	assert.Equal(t, "a0002 IDLE", srv.expect(t))
	assert.Equal(t, ModeIdle, c.Mode())
}

func TestClient_Poll(t *testing.T) {
	c, srv, _ := newTestClient(t, nil)
	var res result
	c.Noop(res.callback())
	srv.expect(t)

	received, err := c.Poll()
	require.NoError(t, err)
	assert.False(t, received)

	srv.writeAsync("a0001 OK NOOP completed\r\n")
	pollUntil(t, c, func() bool { return res.calls > 0 })
	assert.Equal(t, imapworker.StatusOK, res.status)
}

func TestClient_Close(t *testing.T) {
	c, srv, _ := newTestClient(t, nil)
	var res result
	c.Noop(res.callback())
	srv.expect(t)

	require.NoError(t, c.Close())
	assert.Zero(t, c.registry.Pending())
	_, err := c.Poll()
	assert.ErrorIs(t, err, ErrClosed)

	c.Noop(res.callback())
	assert.Equal(t, 1, res.calls)
	assert.Equal(t, imapworker.StatusPreError, res.status)
}
