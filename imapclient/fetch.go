package imapclient

import (
	"fmt"
	"strings"

	"github.com/aerc-mail/imapworker"
	"github.com/aerc-mail/imapworker/internal/imapwire"
	"github.com/aerc-mail/imapworker/internal/mimeutil"
)

// fetchHeaderFields are the header fields requested by FetchRange.
var fetchHeaderFields = []string{
	"DATE", "FROM", "SUBJECT", "TO", "CC", "MESSAGE-ID", "REFERENCES",
	"CONTENT-TYPE", "IN-REPLY-TO", "REPLY-TO",
}

// FetchRange fetches the metadata of messages min to max of the selected
// mailbox, inclusive and zero-based.
//
// Messages in the range are marked as fetching until the command completes.
// The whole range is requested even if some messages are already being
// fetched.
func (c *Client) FetchRange(min, max int, cb Callback) {
	mbox, err := c.checkRange(min, max)
	if err != nil {
		cb(imapworker.StatusPreError, err.Error())
		return
	}

	var msgs []*Message
	for i := min; i <= max; i++ {
		if msg := mbox.Message(i); msg != nil {
			msg.Fetching = true
			msgs = append(msgs, msg)
		}
	}

	cmd := c.beginCommand("FETCH")
	cmd.SP().Range(uint32(min+1), uint32(max+1)).SP()
	cmd.Atom("(UID FLAGS INTERNALDATE BODYSTRUCTURE BODY.PEEK[HEADER.FIELDS (")
	cmd.Atom(strings.Join(fetchHeaderFields, " ")).Atom(")])")
	c.sendOrFail(cmd, func(status imapworker.Status, text string) {
		for _, msg := range msgs {
			msg.Fetching = false
		}
		cb(status, text)
	})
}

// FetchPart fetches the content of a top-level body part of a message. The
// part is decoded and stored in the cache once received.
func (c *Client) FetchPart(index, part int, cb Callback) {
	mbox, err := c.checkRange(index, index)
	if err != nil {
		cb(imapworker.StatusPreError, err.Error())
		return
	}
	msg := mbox.Message(index)
	if msg == nil {
		cb(imapworker.StatusPreError, fmt.Sprintf("no message with index %v", index))
		return
	}
	if part < 0 || part >= len(msg.Parts) {
		cb(imapworker.StatusPreError, fmt.Sprintf("message %v has no part %v", index, part))
		return
	}

	cmd := c.beginCommand("FETCH")
	cmd.SP().Number(uint32(index + 1)).SP()
	cmd.Atom("BODY[").Atom(msg.Parts[part].Section).Atom("]")
	c.sendOrFail(cmd, cb)
}

// handleFetch applies a FETCH response to the cached message.
func (c *Client) handleFetch(resp *imapwire.Response) error {
	seq, err := expectNumber(resp, resp.Args, 0, "sequence number")
	if err != nil {
		return err
	}
	items, err := expectArg(resp, resp.Args, 1, imapwire.ArgList, "message attributes")
	if err != nil {
		return err
	}

	mbox := c.Selected()
	if mbox == nil {
		c.logger.Warn("FETCH without a selected mailbox")
		return nil
	}
	msg := mbox.Message(int(seq - 1))
	if msg == nil {
		c.logger.WithField("mailbox", mbox.Name).Warnf("FETCH for unknown message %v", seq)
		return nil
	}

	var seen FetchAttr
	l := items.List
	for i := 0; i < len(l); {
		if l[i].Type != imapwire.ArgAtom {
			return protocolError(resp, "expected attribute name, got %v", l[i].Type)
		}
		name := strings.ToUpper(l[i].Str)
		i++

		switch name {
		case "UID":
			uid, err := expectNumber(resp, l, i, "UID")
			if err != nil {
				return err
			}
			msg.UID = uid
			seen |= FetchUID
		case "FLAGS":
			flags, err := readFlags(resp, l, i)
			if err != nil {
				return err
			}
			msg.Flags = flags
			seen |= FetchFlags
		case "INTERNALDATE":
			s, err := expectString(resp, l, i, "INTERNALDATE")
			if err != nil {
				return err
			}
			if t, err := parseInternalDate(s); err != nil {
				c.logger.WithError(err).Warn("invalid INTERNALDATE")
			} else {
				msg.InternalDate = t
			}
			seen |= FetchInternalDate
		case "BODYSTRUCTURE":
			if err := c.readBodyStructure(resp, l, i, msg); err != nil {
				return err
			}
			seen |= FetchBodyStructure
		case "BODY":
			if i < len(l) && l[i].Type == imapwire.ArgList {
				// Non-extensible body structure
				if err := c.readBodyStructure(resp, l, i, msg); err != nil {
					return err
				}
				seen |= FetchBodyStructure
				break
			}
			section, err := expectArg(resp, l, i, imapwire.ArgResponse, "body section")
			if err != nil {
				return err
			}
			i++
			if i < len(l) && l[i].Type == imapwire.ArgAtom && strings.HasPrefix(l[i].Str, "<") {
				i++ // origin octet
			}
			value, err := expectNString(resp, l, i, "body section content")
			if err != nil {
				return err
			}
			attr, err := c.handleBodySection(resp, section, value, mbox, msg)
			if err != nil {
				return err
			}
			seen |= attr
		default:
			c.logger.Debugf("ignoring FETCH attribute %v", name)
		}
		i++ // value
	}

	msg.markSeen(seen)
	c.options.UpdateHandler.message(mbox, msg)
	return nil
}

func (c *Client) handleBodySection(resp *imapwire.Response, section *imapwire.Arg, value string, mbox *Mailbox, msg *Message) (FetchAttr, error) {
	if len(section.List) == 0 {
		c.logger.Debug("ignoring full message body")
		return 0, nil
	}

	spec := &section.List[0]
	switch {
	case spec.Type == imapwire.ArgAtom && strings.HasPrefix(strings.ToUpper(spec.Str), "HEADER"):
		var headers []HeaderField
		err := mimeutil.ParseHeaders([]byte(value), func(k, v string) {
			headers = append(headers, HeaderField{Key: k, Value: v})
		})
		if err != nil {
			c.logger.WithError(err).Warn("malformed header fields")
		}
		msg.Headers = headers
		return FetchHeaders, nil
	case spec.Type == imapwire.ArgNumber, spec.Type == imapwire.ArgAtom && isPartSection(spec.Str):
		part := msg.Part(spec.Str)
		if part == nil {
			c.logger.Warnf("body section %v of unknown part", spec.Str)
			return 0, nil
		}
		content, err := mimeutil.DecodeContent([]byte(value), part.Encoding, part.Param("charset"))
		if err != nil {
			c.logger.WithError(err).WithField("section", part.Section).Warn("failed to decode part content")
		}
		part.Content = content
		if !msg.HasFlag(imapworker.FlagSeen) {
			msg.Flags = append(msg.Flags, imapworker.FlagSeen)
		}
		return 0, nil
	case spec.Type == imapwire.ArgAtom:
		c.logger.Debugf("ignoring body section %v", spec.Str)
		return 0, nil
	default:
		return 0, protocolError(resp, "expected section spec, got %v", spec.Type)
	}
}

// isPartSection reports whether s is a part number such as "2.1".
func isPartSection(s string) bool {
	if s == "" {
		return false
	}
	for _, field := range strings.Split(s, ".") {
		if field == "" {
			return false
		}
		for i := 0; i < len(field); i++ {
			if field[i] < '0' || field[i] > '9' {
				return false
			}
		}
	}
	return true
}

// readBodyStructure replaces the part list of a message.
func (c *Client) readBodyStructure(resp *imapwire.Response, args []imapwire.Arg, i int, msg *Message) error {
	arg, err := expectArg(resp, args, i, imapwire.ArgList, "body structure")
	if err != nil {
		return err
	}
	if len(arg.List) > 0 && arg.List[0].Type == imapwire.ArgList {
		parts, subtype, err := readMultipart(resp, arg, "")
		if err != nil {
			return err
		}
		msg.Parts = parts
		msg.MultipartSubtype = subtype
		return nil
	}

	part, err := readBody(resp, arg, "1")
	if err != nil {
		return err
	}
	msg.Parts = []*Part{part}
	msg.MultipartSubtype = ""
	return nil
}

func readBody(resp *imapwire.Response, arg *imapwire.Arg, section string) (*Part, error) {
	if len(arg.List) > 0 && arg.List[0].Type == imapwire.ArgList {
		parts, subtype, err := readMultipart(resp, arg, section)
		if err != nil {
			return nil, err
		}
		return &Part{
			Type:             "multipart",
			Subtype:          subtype,
			Section:          section,
			MultipartSubtype: subtype,
			Parts:            parts,
		}, nil
	}

	l := arg.List
	typ, err := expectString(resp, l, 0, "body type")
	if err != nil {
		return nil, err
	}
	subtype, err := expectString(resp, l, 1, "body subtype")
	if err != nil {
		return nil, err
	}
	part := &Part{
		Type:    strings.ToLower(typ),
		Subtype: strings.ToLower(subtype),
		Section: section,
	}

	if len(l) > 2 && l[2].Type == imapwire.ArgList {
		params := l[2].List
		for j := 0; j+1 < len(params); j += 2 {
			k, err := expectString(resp, params, j, "body parameter")
			if err != nil {
				return nil, err
			}
			v, err := expectNString(resp, params, j+1, "body parameter value")
			if err != nil {
				return nil, err
			}
			part.Params = append(part.Params, Param{Key: k, Value: v})
		}
	} else if len(l) > 2 && !l[2].IsNIL() {
		return nil, protocolError(resp, "expected body parameter list, got %v", l[2].Type)
	}

	if part.ID, err = expectNString(resp, l, 3, "body id"); err != nil {
		return nil, err
	}
	if part.Description, err = expectNString(resp, l, 4, "body description"); err != nil {
		return nil, err
	}
	encoding, err := expectNString(resp, l, 5, "body encoding")
	if err != nil {
		return nil, err
	}
	part.Encoding = strings.ToLower(encoding)
	if part.Size, err = expectNumber(resp, l, 6, "body size"); err != nil {
		return nil, err
	}
	return part, nil
}

// readMultipart reads the children of a multipart body, followed by its
// subtype. Child sections are numbered under the given prefix.
func readMultipart(resp *imapwire.Response, arg *imapwire.Arg, prefix string) ([]*Part, string, error) {
	var parts []*Part
	l := arg.List
	i := 0
	for ; i < len(l) && l[i].Type == imapwire.ArgList; i++ {
		section := fmt.Sprint(i + 1)
		if prefix != "" {
			section = prefix + "." + section
		}
		part, err := readBody(resp, &l[i], section)
		if err != nil {
			return nil, "", err
		}
		parts = append(parts, part)
	}
	subtype, err := expectString(resp, l, i, "multipart subtype")
	if err != nil {
		return nil, "", err
	}
	return parts, strings.ToLower(subtype), nil
}
