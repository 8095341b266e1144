package analysis

import (
	"strings"
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kibitz/kibitz/pkg/config"
	"github.com/kibitz/kibitz/pkg/protocol"
)

func TestApplySlots(t *testing.T) {
	tests := []struct {
		line string
		slot int
	}{
		{"info depth 3 pv e2e4", 0},
		{"info multipv 0 pv e2e4", 0},
		{"info multipv 4 pv e2e4", 4},
		{"info multipv 5 pv e2e4", -1},
		{"info multipv -1 pv e2e4", -1},
		{"info multipv 2 pv", -1},
		{"info depth 3", -1},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			var s State
			assert.Equal(t, tt.slot, s.Apply(protocol.ParseInfo(tt.line)))
		})
	}
}

func TestApplyUndecodableFirstMove(t *testing.T) {
	var s State
	slot := s.Apply(protocol.ParseInfo("info pv 0000 e2e4"))
	require.Equal(t, 0, slot)
	assert.Equal(t, []string{"0000", "e2e4"}, s.Lines[0].Moves)
	assert.Equal(t, chess.NoSquare, s.Lines[0].From)
	assert.Equal(t, chess.NoSquare, s.Lines[0].To)
}

func TestStateString(t *testing.T) {
	var s State
	assert.Equal(t, "-", s.ScoreString())

	s.Apply(protocol.ParseInfo("info depth 12 seldepth 18 score cp 34 nodes 100 nps 5 pv e2e4 e7e5"))
	assert.Equal(t, "cp 34", s.ScoreString())
	assert.Equal(t, "depth 12/18 score cp 34 nodes 100 nps 5 | 0: e2e4 e7e5", s.String())
	assert.Equal(t, "12", s.Label(protocol.LabelDepth))

	s.Apply(protocol.ParseInfo("info score mate 2"))
	assert.Equal(t, "mate 2", s.ScoreString())
}

func TestDecodeMove(t *testing.T) {
	from, to, err := DecodeMove("e7e8q")
	require.NoError(t, err)
	assert.Equal(t, chess.E7, from)
	assert.Equal(t, chess.E8, to)

	for _, bad := range []string{"", "e2", "e2e9", "i2e4", "e2e4e5"} {
		_, _, err := DecodeMove(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidatePosition(t *testing.T) {
	fen, err := ValidatePosition("", "e2e4 e7e5")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fen, "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq"), fen)

	_, err = ValidatePosition("not a fen", "")
	assert.Error(t, err)

	_, err = ValidatePosition(StartFEN, "e2e5")
	assert.Error(t, err)
}

func TestEligible(t *testing.T) {
	assert.True(t, Eligible(config.NewEngineConfig("sf", "/usr/bin/stockfish", protocol.UCI)))
	assert.False(t, Eligible(config.NewEngineConfig("wb", "/usr/bin/crafty", protocol.WinBoard)))
	assert.False(t, Eligible(config.NewEngineConfig("empty", "", protocol.UCI)))
	assert.False(t, Eligible(nil))
}
