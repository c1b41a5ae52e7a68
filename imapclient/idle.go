package imapclient

import (
	"time"

	"github.com/aerc-mail/imapworker"
)

// maybeIdle enters IDLE after a period of inactivity, and re-issues it when
// it has been running for too long.
//
// IDLE is only used once logged in, if the server supports it, and when no
// command is outstanding.
func (c *Client) maybeIdle(now time.Time) error {
	if !c.loggedIn || c.idleFailed || !c.caps.Has(imapworker.CapIdle) {
		return nil
	}

	switch c.mode {
	case ModeLine:
		delay := c.options.duration(c.options.IdleDelay, defaultIdleDelay)
		if c.registry.Pending() > 0 || len(c.selectQueue) > 0 || now.Sub(c.lastActivity) < delay {
			return nil
		}
	case ModeIdle:
		refresh := c.options.duration(c.options.IdleRefresh, defaultIdleRefresh)
		if now.Sub(c.idleStart) < refresh {
			return nil
		}
		c.logger.Debug("refreshing IDLE")
		if err := c.stopIdle(); err != nil {
			return err
		}
	default:
		return nil
	}
	return c.Idle()
}

// Idle sends an IDLE command.
//
// The client switches to ModeIdle right away. Unilateral data keeps being
// dispatched while idling. The next command sent terminates IDLE first.
//
// This command requires support for the IDLE extension.
func (c *Client) Idle() error {
	cmd := c.beginCommand("IDLE")
	logger := c.logger.WithField("tag", cmd.tag)
	err := c.send(cmd, func(status imapworker.Status, text string) {
		if err := imapworker.StatusError(status, text); err != nil {
			logger.WithError(err).Warn("IDLE failed, not trying again")
			c.idleFailed = true
			if c.mode == ModeIdle {
				c.mode = ModeLine
			}
		} else {
			logger.Debug("IDLE terminated")
		}
	})
	if err != nil {
		c.registry.Resolve(cmd.tag)
		return err
	}

	c.contHandlers = append(c.contHandlers, contHandler{
		tag: cmd.tag,
		fn: func(text string) error {
			logger.Debugf("idling: %v", text)
			return nil
		},
	})
	c.mode = ModeIdle
	c.idleStart = time.Now()
	return nil
}

// stopIdle writes the IDLE termination token and switches back to ModeLine.
// The IDLE command completes asynchronously.
func (c *Client) stopIdle() error {
	c.mode = ModeLine
	return c.write([]byte("DONE\r\n"))
}
