package analysis

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/kibitz/kibitz/pkg/config"
	"github.com/kibitz/kibitz/pkg/protocol"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// DecodeMove returns the from and to squares of a coordinate-notation move
// such as "e2e4" or "e7e8q".
func DecodeMove(move string) (chess.Square, chess.Square, error) {
	if len(move) < 4 || len(move) > 5 {
		return chess.NoSquare, chess.NoSquare, fmt.Errorf("invalid move %q", move)
	}
	from, err := parseSquare(move[0:2])
	if err != nil {
		return chess.NoSquare, chess.NoSquare, fmt.Errorf("invalid move %q: %w", move, err)
	}
	to, err := parseSquare(move[2:4])
	if err != nil {
		return chess.NoSquare, chess.NoSquare, fmt.Errorf("invalid move %q: %w", move, err)
	}
	return from, to, nil
}

func parseSquare(s string) (chess.Square, error) {
	f, r := s[0], s[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return chess.NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return chess.NewSquare(chess.File(f-'a'), chess.Rank(r-'1')), nil
}

// ValidatePosition checks that fen parses and that moves, if any, are legal
// from it. It returns the resulting position's FEN.
func ValidatePosition(fen, moves string) (string, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		fen = StartFEN
	}

	opt, err := chess.FEN(fen)
	if err != nil {
		return "", fmt.Errorf("invalid FEN: %w", err)
	}
	game := chess.NewGame(opt)

	for _, mv := range strings.Fields(moves) {
		m, err := chess.UCINotation{}.Decode(game.Position(), mv)
		if err != nil {
			return "", fmt.Errorf("invalid move %q: %w", mv, err)
		}
		if err := game.Move(m); err != nil {
			return "", fmt.Errorf("illegal move %q: %w", mv, err)
		}
	}
	return game.Position().String(), nil
}

// Eligible reports whether cfg can be used for analysis: it needs a binary
// and an implemented dialect.
func Eligible(cfg *config.EngineConfig) bool {
	if cfg == nil || strings.TrimSpace(cfg.Binary) == "" {
		return false
	}
	return protocol.DialectFor(cfg.Protocol).Implemented()
}
