package imapclient

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aerc-mail/imapworker"
	"github.com/aerc-mail/imapworker/internal/imapwire"
)

// ErrClosed is returned when using a closed client.
var ErrClosed = errors.New("imapclient: connection closed")

// Mode is the receive mode of a client.
type Mode int

const (
	// ModeWaiting is the mode of a client waiting for its TLS certificate
	// to be approved. Nothing is read from the connection.
	ModeWaiting Mode = iota
	ModeLine
	ModeIdle
)

func (m Mode) String() string {
	switch m {
	case ModeWaiting:
		return "waiting"
	case ModeLine:
		return "line"
	case ModeIdle:
		return "idle"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ProtocolError is a violation of the IMAP grammar by the server. It is fatal
// to the connection.
type ProtocolError struct {
	Response string
	Msg      string
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("imapclient: protocol error: %v (in %q)", err.Msg, err.Response)
}

const readChunkSize = 4096

type contHandler struct {
	tag string
	fn  func(text string) error
}

type selectRequest struct {
	name string
	cb   Callback
}

// Client is an IMAP connection state machine.
//
// A Client is driven by a single goroutine calling Poll in a loop; it is not
// safe for concurrent use. Commands are exposed as methods taking a
// completion callback, invoked from Poll when the server replies, or right
// away with imapworker.StatusPreError when the command is rejected locally.
type Client struct {
	conn    net.Conn
	options Options
	logger  logrus.FieldLogger
	tls     bool
	// host is the server name checked against the certificate on STARTTLS.
	host string

	mode      Mode
	closed    bool
	buf       []byte
	readBuf   []byte
	tagNum    int
	onApprove func()

	lastActivity time.Time
	idleStart    time.Time
	idleFailed   bool

	caps     imapworker.CapSet
	loggedIn bool
	selected string

	selectQueue  []selectRequest
	contHandlers []contHandler
	registry     *Registry
	cache        *Cache
}

// New creates a new client over an established connection.
//
// If conn is a *tls.Conn whose handshake has completed, the client starts in
// ModeWaiting and reports the server certificate to the CertCheck handler.
//
// This function doesn't perform I/O. A nil options pointer is equivalent to a
// zero options value.
func New(conn net.Conn, options *Options) *Client {
	return newClient(conn, options, nil)
}

func newClient(conn net.Conn, options *Options, verifyErr error) *Client {
	if options == nil {
		options = &Options{}
	}

	c := &Client{
		conn:         conn,
		options:      *options,
		logger:       options.logger(),
		mode:         ModeLine,
		readBuf:      make([]byte, readChunkSize),
		caps:         imapworker.NewCapSet(),
		registry:     NewRegistry(),
		cache:        &Cache{},
		lastActivity: time.Now(),
	}
	if tc, ok := conn.(*tls.Conn); ok {
		c.tls = true
		c.awaitApproval(tc, verifyErr)
	}
	return c
}

// Dial connects to an IMAP server. If implicitTLS is set, a TLS handshake is
// performed before anything else.
func Dial(address string, implicitTLS bool, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	dialer := &net.Dialer{Timeout: options.duration(options.DialTimeout, defaultDialTimeout)}
	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(address)
	var verifyErr error
	if implicitTLS {
		tc := tls.Client(conn, options.tlsConfig(host, &verifyErr))
		if err := handshakeTLS(tc, dialer.Timeout); err != nil {
			conn.Close()
			return nil, err
		}
		conn = tc
	}
	c := newClient(conn, options, verifyErr)
	c.host = host
	return c, nil
}

func handshakeTLS(tc *tls.Conn, timeout time.Duration) error {
	if err := tc.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	if err := tc.Handshake(); err != nil {
		return fmt.Errorf("TLS handshake failed: %w", err)
	}
	return tc.SetDeadline(time.Time{})
}

func (c *Client) awaitApproval(tc *tls.Conn, verifyErr error) {
	h := c.options.UpdateHandler
	certs := tc.ConnectionState().PeerCertificates
	if h == nil || h.CertCheck == nil || len(certs) == 0 {
		return
	}
	if verifyErr != nil {
		c.logger.WithError(verifyErr).Warn("server certificate not trusted")
	}
	c.mode = ModeWaiting
	h.CertCheck(certs[0], verifyErr)
}

// Approve resumes a client waiting for certificate approval.
func (c *Client) Approve() {
	if c.mode != ModeWaiting {
		return
	}
	c.logger.Debug("certificate approved")
	c.mode = ModeLine
	c.lastActivity = time.Now()
	if f := c.onApprove; f != nil {
		c.onApprove = nil
		f()
	}
}

// Mode returns the current receive mode.
func (c *Client) Mode() Mode {
	return c.mode
}

// Caps returns the capabilities advertised by the server.
func (c *Client) Caps() imapworker.CapSet {
	return c.caps
}

// LoggedIn reports whether authentication completed.
func (c *Client) LoggedIn() bool {
	return c.loggedIn
}

// Cache returns the mailbox cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Selected returns the currently selected mailbox, if any.
func (c *Client) Selected() *Mailbox {
	if c.selected == "" {
		return nil
	}
	return c.cache.Mailbox(c.selected)
}

// Close closes the connection. Outstanding commands are abandoned without
// invoking their callbacks.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.registry.Abandon()
	c.selectQueue = nil
	c.contHandlers = nil
	return c.conn.Close()
}

func (c *Client) write(b []byte) error {
	if c.closed {
		return ErrClosed
	}
	timeout := c.options.duration(c.options.WriteTimeout, defaultWriteTimeout)
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	if _, err := c.conn.Write(b); err != nil {
		c.Close()
		return err
	}
	if w := c.options.DebugWriter; w != nil {
		w.Write(b)
	}
	c.lastActivity = time.Now()
	return nil
}

// command is a command being built. The tag is allocated by beginCommand.
type command struct {
	*imapwire.Encoder
	tag       string
	name      string
	sensitive bool
}

func (c *Client) beginCommand(name string) *command {
	c.tagNum++
	tag := fmt.Sprintf("a%04d", c.tagNum)
	enc := imapwire.NewEncoder(256)
	enc.Atom(tag).SP().Atom(name)
	return &command{Encoder: enc, tag: tag, name: name}
}

func (cmd *command) wipe() {
	if cmd.sensitive {
		cmd.Zero()
	}
}

// send writes a command and registers its callback.
//
// If the client is idling, IDLE is terminated first. Credential-bearing
// commands are wiped from memory once written.
func (c *Client) send(cmd *command, cb Callback) error {
	cmd.CRLF()
	if err := cmd.Err(); err != nil {
		cmd.wipe()
		return err
	}
	if c.closed {
		cmd.wipe()
		return ErrClosed
	}
	if c.mode == ModeIdle {
		if err := c.stopIdle(); err != nil {
			cmd.wipe()
			return err
		}
	}

	c.registry.Register(cmd.tag, cb)

	logger := c.logger.WithField("tag", cmd.tag)
	if cmd.sensitive {
		logger.Debugf("-> %v <redacted>", cmd.name)
	} else {
		logger.Debugf("-> %v", strings.TrimRight(string(cmd.Bytes()), "\r\n"))
	}

	segs := cmd.Segments()
	if len(segs) == 1 {
		err := c.write(segs[0])
		cmd.wipe()
		return err
	}

	// Each literal is sent after a continuation request
	for i := 1; i < len(segs); i++ {
		seg, last := segs[i], i == len(segs)-1
		c.contHandlers = append(c.contHandlers, contHandler{
			tag: cmd.tag,
			fn: func(string) error {
				err := c.write(seg)
				if last || err != nil {
					cmd.wipe()
				}
				return err
			},
		})
	}
	return c.write(segs[0])
}

// sendOrFail sends a command, reporting a failure through the callback.
func (c *Client) sendOrFail(cmd *command, cb Callback) {
	if err := c.send(cmd, cb); err != nil {
		c.registry.Resolve(cmd.tag)
		c.removeContHandlers(cmd.tag)
		cmd.wipe()
		c.logger.WithError(err).Errorf("failed to send %v", cmd.name)
		cb(imapworker.StatusPreError, err.Error())
	}
}

func (c *Client) removeContHandlers(tag string) {
	l := c.contHandlers[:0]
	for _, h := range c.contHandlers {
		if h.tag != tag {
			l = append(l, h)
		}
	}
	c.contHandlers = l
}

// Poll reads available data and dispatches all complete responses, then
// enters or refreshes IDLE if due. It reports whether anything was received.
//
// An error is either a transport error or a *ProtocolError; in both cases
// the connection can't be used anymore.
func (c *Client) Poll() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	if c.mode == ModeWaiting {
		return false, nil
	}

	timeout := c.options.duration(c.options.PollTimeout, defaultPollTimeout)
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return false, err
	}
	n, err := c.conn.Read(c.readBuf)
	if n > 0 {
		c.buf = append(c.buf, c.readBuf[:n]...)
		if w := c.options.DebugWriter; w != nil {
			w.Write(c.readBuf[:n])
		}
		c.lastActivity = time.Now()
	}
	if err != nil && !isTimeout(err) {
		return n > 0, err
	}

	if err := c.drain(); err != nil {
		return true, err
	}
	if c.closed {
		return true, ErrClosed
	}
	if n == 0 {
		if err := c.maybeIdle(time.Now()); err != nil {
			return false, err
		}
	}
	return n > 0, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}

// drain parses and dispatches the complete responses held in the buffer.
func (c *Client) drain() error {
	for len(c.buf) > 0 && !c.closed && c.mode != ModeWaiting {
		resp, consumed, needed, err := imapwire.Parse(c.buf)
		if err != nil {
			line, _, _ := bytes.Cut(c.buf, []byte("\r\n"))
			return &ProtocolError{Response: string(line), Msg: err.Error()}
		}
		if needed > 0 {
			break
		}
		c.buf = c.buf[consumed:]
		if err := c.dispatch(resp); err != nil {
			return err
		}
	}
	if len(c.buf) == 0 {
		c.buf = nil
	}
	return nil
}
