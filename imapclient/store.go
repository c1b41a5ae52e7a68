package imapclient

import (
	"fmt"

	"github.com/aerc-mail/imapworker"
)

// StoreMode is the operation performed by a STORE command.
type StoreMode int

const (
	StoreAdd StoreMode = iota
	StoreRemove
	StoreReplace
)

func (mode StoreMode) item() string {
	switch mode {
	case StoreAdd:
		return "+FLAGS"
	case StoreRemove:
		return "-FLAGS"
	case StoreReplace:
		return "FLAGS"
	default:
		panic(fmt.Errorf("imapclient: unknown store mode: %d", int(mode)))
	}
}

// checkRange validates a zero-based inclusive message range of the selected
// mailbox.
func (c *Client) checkRange(min, max int) (*Mailbox, error) {
	mbox := c.Selected()
	if mbox == nil {
		return nil, fmt.Errorf("no mailbox selected")
	}
	if min < 0 || max < min || max >= len(mbox.Messages) {
		if min == max {
			return nil, fmt.Errorf("no message with index %v", min)
		}
		return nil, fmt.Errorf("invalid message range %v-%v", min, max)
	}
	return mbox, nil
}

// Store sends a STORE command altering the flags of messages min to max.
//
// The server replies with the updated flags, which are applied to the cache
// like any other FETCH data.
func (c *Client) Store(min, max int, mode StoreMode, flags []imapworker.Flag, cb Callback) {
	if _, err := c.checkRange(min, max); err != nil {
		cb(imapworker.StatusPreError, err.Error())
		return
	}

	cmd := c.beginCommand("STORE")
	cmd.SP().Range(uint32(min+1), uint32(max+1))
	cmd.SP().Atom(mode.item()).SP().List(len(flags), func(i int) {
		cmd.Flag(flags[i])
	})
	c.sendOrFail(cmd, cb)
}
