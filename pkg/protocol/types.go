// Package protocol defines the line-oriented text dialects spoken with
// chess engines over standard input/output.
//
// Only the UCI dialect is implemented. WinBoard is a recognised value whose
// operations are all no-ops; callers must not assume every dialect behaves
// the same and should restrict analysis features to implemented dialects.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol identifies an engine dialect. Its integer value is what gets persisted.
type Protocol int

const (
	// UCI is the Universal Chess Interface.
	UCI Protocol = 1
	// WinBoard is the xboard/WinBoard dialect (stub).
	WinBoard Protocol = 2
)

// String returns the lower-case dialect name.
func (p Protocol) String() string {
	switch p {
	case UCI:
		return "uci"
	case WinBoard:
		return "winboard"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// Validate checks that p is a known dialect.
func (p Protocol) Validate() error {
	switch p {
	case UCI, WinBoard:
		return nil
	default:
		return fmt.Errorf("invalid protocol: %d", int(p))
	}
}

// ParseProtocol accepts either the persisted integer or the dialect name.
func ParseProtocol(s string) (Protocol, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		p := Protocol(n)
		return p, p.Validate()
	}
	switch strings.ToLower(s) {
	case "uci":
		return UCI, nil
	case "winboard", "xboard", "cecp":
		return WinBoard, nil
	}
	return 0, fmt.Errorf("invalid protocol: %q", s)
}

// Command words of the UCI dialect.
const (
	CmdUCI       = "uci"
	CmdSetOption = "setoption"
	CmdPosition  = "position"
	CmdGo        = "go"
	CmdStop      = "stop"
	CmdQuit      = "quit"

	ReplyUCIOk = "uciok"
)

// Dialect formats outgoing command lines and recognises the handshake terminator.
// Methods return the lines to write; an empty slice means nothing is sent.
type Dialect interface {
	Protocol() Protocol
	Implemented() bool
	Discover() []string
	IsTerminator(line string) bool
	SetOption(name, value string) []string
	Position(fen, moves string) []string
	GoInfinite() []string
	Stop() []string
	Quit() []string
}

// DialectFor returns the dialect implementation for p. Unknown values get the no-op dialect.
func DialectFor(p Protocol) Dialect {
	if p == UCI {
		return uciDialect{}
	}
	return stubDialect{proto: p}
}

type uciDialect struct{}

func (uciDialect) Protocol() Protocol { return UCI }
func (uciDialect) Implemented() bool  { return true }
func (uciDialect) Discover() []string { return []string{CmdUCI} }

func (uciDialect) IsTerminator(line string) bool {
	return strings.Contains(line, ReplyUCIOk)
}

func (uciDialect) SetOption(name, value string) []string {
	return []string{fmt.Sprintf("%s name %s value %s", CmdSetOption, name, value)}
}

func (uciDialect) Position(fen, moves string) []string {
	line := fmt.Sprintf("%s fen %s", CmdPosition, fen)
	if moves = strings.TrimSpace(moves); moves != "" {
		line += " moves " + moves
	}
	return []string{line}
}

func (uciDialect) GoInfinite() []string { return []string{CmdGo + " infinite"} }
func (uciDialect) Stop() []string       { return []string{CmdStop} }
func (uciDialect) Quit() []string       { return []string{CmdQuit} }

type stubDialect struct {
	proto Protocol
}

func (d stubDialect) Protocol() Protocol           { return d.proto }
func (stubDialect) Implemented() bool              { return false }
func (stubDialect) Discover() []string             { return nil }
func (stubDialect) IsTerminator(string) bool       { return false }
func (stubDialect) SetOption(_, _ string) []string { return nil }
func (stubDialect) Position(_, _ string) []string  { return nil }
func (stubDialect) GoInfinite() []string           { return nil }
func (stubDialect) Stop() []string                 { return nil }
func (stubDialect) Quit() []string                 { return nil }
