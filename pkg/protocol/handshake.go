package protocol

import (
	"strings"

	"github.com/kibitz/kibitz/pkg/option"
)

// Discovery is what an engine revealed during the handshake.
type Discovery struct {
	Name     string
	Author   string
	Options  *option.Set
	Complete bool // terminator seen
}

// Handshake accumulates handshake replies for one dialect.
type Handshake struct {
	dialect Dialect
	result  Discovery
}

// NewHandshake returns an empty accumulator for d.
func NewHandshake(d Dialect) *Handshake {
	return &Handshake{
		dialect: d,
		result:  Discovery{Options: option.NewSet()},
	}
}

// Feed consumes one line and reports whether the terminator was seen.
// Malformed lines are ignored.
func (h *Handshake) Feed(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || h.result.Complete {
		return h.result.Complete
	}

	if h.dialect.IsTerminator(line) {
		h.result.Complete = true
		return true
	}

	if field, value, ok := ParseIDLine(line); ok {
		switch field {
		case IDName:
			h.result.Name = value
		case IDAuthor:
			h.result.Author = value
		}
		return false
	}

	// option discovery is only defined for UCI
	if h.dialect.Protocol() != UCI {
		return false
	}
	if name, opt, ok := ParseOptionLine(line); ok {
		h.result.Options.Put(name, opt)
	}
	return false
}

// Result returns the discovery accumulated so far.
func (h *Handshake) Result() Discovery {
	return h.result
}
