package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"github.com/aerc-mail/imapworker/worker"
)

var (
	configPath string
	debug      bool
	jsonLogs   bool
)

type config struct {
	Accounts []accountConfig `yaml:"accounts"`
}

type accountConfig struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	// Mailbox is watched once connected. Defaults to INBOX.
	Mailbox string `yaml:"mailbox"`
	// Fetch is the number of most recent messages fetched on select.
	Fetch            int               `yaml:"fetch"`
	TrustCertificate bool              `yaml:"trust-certificate"`
	Options          map[string]string `yaml:"options"`
}

func loadConfig(path string) (*config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %v: %w", path, err)
	}
	for i := range cfg.Accounts {
		acct := &cfg.Accounts[i]
		if acct.Name == "" {
			acct.Name = fmt.Sprintf("account%d", i+1)
		}
		if acct.Source == "" {
			return nil, fmt.Errorf("account %v: missing source", acct.Name)
		}
		if acct.Mailbox == "" {
			acct.Mailbox = "INBOX"
		}
		if acct.Fetch == 0 {
			acct.Fetch = 10
		}
	}
	return &cfg, nil
}

func main() {
	flag.StringVar(&configPath, "config", "accounts.yaml", "Accounts file")
	flag.BoolVar(&debug, "debug", false, "Log all commands and responses")
	flag.BoolVar(&jsonLogs, "json", false, "Log in JSON format")
	flag.Parse()

	logger := logrus.New()
	if jsonLogs {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if len(cfg.Accounts) == 0 {
		logger.Fatalf("No account configured in %v", configPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, acct := range cfg.Accounts {
		acct := acct
		acctLogger := logger.WithField("account", acct.Name)
		pipe := worker.NewPipe()
		w := worker.New(pipe, &worker.Options{Logger: acctLogger})
		g.Go(func() error {
			return w.Run(ctx)
		})
		g.Go(func() error {
			a := &account{config: acct, pipe: pipe, logger: acctLogger}
			return a.run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Worker failed: %v", err)
	}
}

// account drives a worker: it connects, selects the watched mailbox and logs
// what the worker reports.
type account struct {
	config accountConfig
	pipe   *worker.Pipe
	logger logrus.FieldLogger

	exists int
	err    error
}

func (a *account) run(ctx context.Context) error {
	a.configure()
	a.pipe.PostAction(worker.MessageConnect, nil, &worker.ConnectRequest{URI: []byte(a.config.Source)}, func(msg *worker.Message) {
		if msg.Type != worker.MessageOkay {
			return // reported as ERROR
		}
		a.logger.Info("Connected")
		a.pipe.PostAction(worker.MessageList, nil, nil, a.check("list mailboxes"))
		a.pipe.PostAction(worker.MessageSelectMailbox, nil, &worker.MailboxName{Name: a.config.Mailbox}, a.selected)
	})

	for {
		msg, ok := a.pipe.GetMessage()
		if a.err != nil {
			a.pipe.PostAction(worker.MessageShutdown, nil, nil, nil)
			return a.err
		}
		if !ok {
			select {
			case <-ctx.Done():
				a.pipe.PostAction(worker.MessageShutdown, nil, nil, nil)
				return nil
			case <-time.After(20 * time.Millisecond):
			}
			continue
		}
		a.handleMessage(msg)
	}
}

func (a *account) configure() {
	if len(a.config.Options) == 0 {
		return
	}
	keys := make([]string, 0, len(a.config.Options))
	for k := range a.config.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	req := &worker.ConfigureRequest{}
	for _, k := range keys {
		req.Values = append(req.Values, worker.ConfigValue{Key: k, Value: a.config.Options[k]})
	}
	a.pipe.PostAction(worker.MessageConfigure, nil, req, a.check("configure"))
}

func (a *account) check(what string) worker.Callback {
	return func(msg *worker.Message) {
		if msg.Type != worker.MessageOkay {
			a.logger.Errorf("Failed to %v: %v", what, msg.Data)
		}
	}
}

func (a *account) selected(msg *worker.Message) {
	if msg.Type != worker.MessageOkay {
		a.err = fmt.Errorf("failed to select %v: %v", a.config.Mailbox, msg.Data)
		return
	}
	a.logger.Infof("Selected %v, %v messages", a.config.Mailbox, a.exists)
	if a.exists == 0 {
		return
	}
	min := a.exists - a.config.Fetch
	if min < 0 {
		min = 0
	}
	a.pipe.PostAction(worker.MessageFetchMessages, nil, &worker.MessageRange{Min: min, Max: a.exists - 1}, a.check("fetch messages"))
}

func (a *account) handleMessage(msg *worker.Message) {
	switch data := msg.Data.(type) {
	case *worker.MailboxSnapshot:
		if data.Name == a.config.Mailbox {
			if a.exists > 0 && data.Exists > a.exists {
				a.logger.Infof("%v new messages in %v", data.Exists-a.exists, data.Name)
			}
			a.exists = data.Exists
		}
		a.logger.Debugf("Mailbox %v: %v messages, %v unseen", data.Name, data.Exists, data.Unseen)
	case *worker.MessageUpdate:
		m := data.Message
		if !m.Populated {
			return
		}
		a.logger.WithFields(logrus.Fields{
			"mailbox": data.Mailbox,
			"index":   m.Index,
			"uid":     m.UID,
		}).Infof("%v | %v | %v", m.InternalDate.Format(time.RFC822), m.Header("From"), m.Header("Subject"))
	case *worker.MessageDeletion:
		a.logger.Infof("Message %v expunged from %v", data.Index, data.Mailbox)
	case *worker.MailboxName:
		if msg.Type == worker.MessageMailboxDeleted {
			a.logger.Infof("Mailbox %v deleted", data.Name)
		}
	case *worker.CertCheck:
		fingerprint := sha256.Sum256(data.Certificate.Raw)
		logger := a.logger.WithFields(logrus.Fields{
			"subject":     data.Certificate.Subject.String(),
			"fingerprint": hex.EncodeToString(fingerprint[:]),
		})
		switch {
		case data.VerifyError == "":
			logger.Debug("Server certificate verified")
		case a.config.TrustCertificate:
			logger.Warnf("Accepting untrusted server certificate: %v", data.VerifyError)
		default:
			a.err = fmt.Errorf("certificate not trusted: %v", data.VerifyError)
			logger.Error("Rejecting server certificate, set trust-certificate to accept it")
			return
		}
		a.pipe.PostAction(worker.MessageConnectCertOkay, msg.InResponseTo, nil, a.check("approve certificate"))
	case *worker.ErrorInfo:
		// Errors answering CONNECT are fatal to the connection
		if msg.InResponseTo != nil && msg.InResponseTo.Type == worker.MessageConnect {
			a.err = fmt.Errorf("connection failed: %w", data)
		}
	}
}
