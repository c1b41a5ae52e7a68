package worker

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerc-mail/imapworker/imapclient"
)

func newSelfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "imap.example.org"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}
}

// nextMessage waits for a message of the given type, dropping the others.
func nextMessage(t *testing.T, pipe *Pipe, typ MessageType) *Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "timeout waiting for %v", typ)
		msg, ok := pipe.GetMessage()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func TestWorker_untrustedCertificate(t *testing.T) {
	cert := newSelfSignedCert(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	commands := make(chan (<-chan string), 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		tc := tls.Server(conn, &tls.Config{Certificates: []tls.Certificate{cert}})
		if err := tc.Handshake(); err != nil {
			conn.Close()
			return
		}
		commands <- fakeServer(tc, "* OK [CAPABILITY IMAP4rev1 AUTH=PLAIN SASL-IR] ready\r\n", mailServer)
	}()

	logger, _ := test.NewNullLogger()
	pipe := NewPipe()
	w := New(pipe, &Options{
		Logger:        logger,
		SleepInterval: time.Millisecond,
		Client: imapclient.Options{
			TLSConfig: &tls.Config{RootCAs: x509.NewCertPool()},
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	var connected *Message
	connect := pipe.PostAction(MessageConnect, nil, &ConnectRequest{URI: []byte("imaps://user:pw@" + ln.Addr().String())}, func(msg *Message) {
		connected = msg
	})

	check := nextMessage(t, pipe, MessageConnectCertCheck)
	assert.Same(t, connect, check.InResponseTo)
	data, ok := check.Data.(*CertCheck)
	require.True(t, ok)
	assert.Equal(t, cert.Leaf.Raw, data.Certificate.Raw)
	assert.Contains(t, data.VerifyError, "unknown authority")
	assert.Nil(t, connected)

	d := &driver{pipe: pipe}
	answer := d.do(t, MessageConnectCertOkay, nil)
	assert.Equal(t, MessageOkay, answer.Type)

	var cmds <-chan string
	select {
	case cmds = <-commands:
	case <-time.After(2 * time.Second):
		t.Fatal("server didn't complete the handshake")
	}
	select {
	case line := <-cmds:
		assert.Contains(t, line, "AUTHENTICATE PLAIN")
	case <-time.After(2 * time.Second):
		t.Fatal("no command after approval")
	}

	if connected == nil {
		nextMessage(t, pipe, MessageOkay)
	}
	require.NotNil(t, connected)
	assert.Equal(t, MessageOkay, connected.Type)
}
