package worker

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// handleConfigure applies CONFIGURE values. Connection settings apply to the
// next CONNECT.
//
// Known keys are idle-delay, idle-refresh, poll-timeout and sleep-interval,
// taking durations such as "3s", and log-level, taking a logrus level name.
func (w *Worker) handleConfigure(action *Message) {
	req, err := payload[*ConfigureRequest](action)
	if err != nil {
		w.fail(action, err.Error())
		return
	}
	w.post(MessageAck, action, nil)

	var errs []string
	for _, v := range req.Values {
		if err := w.configure(v.Key, v.Value); err != nil {
			w.logger.WithError(err).Warnf("invalid configuration value for %v", v.Key)
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		w.fail(action, strings.Join(errs, "; "))
		return
	}
	w.post(MessageOkay, action, nil)
}

func (w *Worker) configure(key, value string) error {
	var dst *time.Duration
	switch key {
	case "idle-delay":
		dst = &w.clientOptions.IdleDelay
	case "idle-refresh":
		dst = &w.clientOptions.IdleRefresh
	case "poll-timeout":
		dst = &w.clientOptions.PollTimeout
	case "sleep-interval":
		dst = &w.sleepInterval
	case "log-level":
		return w.setLogLevel(value)
	default:
		return fmt.Errorf("unknown key %q", key)
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%v: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%v: duration must be positive", key)
	}
	*dst = d
	return nil
}

func (w *Worker) setLogLevel(value string) error {
	level, err := logrus.ParseLevel(value)
	if err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	switch logger := w.logger.(type) {
	case *logrus.Logger:
		logger.SetLevel(level)
	case *logrus.Entry:
		logger.Logger.SetLevel(level)
	default:
		return fmt.Errorf("log-level: cannot set level on %T", w.logger)
	}
	return nil
}
