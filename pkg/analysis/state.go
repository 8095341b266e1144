package analysis

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/kibitz/kibitz/pkg/protocol"
)

// MaxLines is the number of principal variation slots kept.
const MaxLines = 5

// PVLine is one principal variation. From and To describe its first move
// and are chess.NoSquare when it could not be decoded.
type PVLine struct {
	Moves []string
	From  chess.Square
	To    chess.Square
}

// Empty reports whether the slot has never received a variation.
func (l PVLine) Empty() bool { return len(l.Moves) == 0 }

// First returns the first move in coordinate notation, or "".
func (l PVLine) First() string {
	if l.Empty() {
		return ""
	}
	return l.Moves[0]
}

// State is the display state built from search output.
type State struct {
	Nodes    string
	NPS      string
	Depth    string
	SelDepth string
	Time     string
	TBHits   string

	// Score fields are stored as reported and never interpreted.
	ScoreCP int
	Mate    int
	IsMate  bool
	Scored  bool

	Lines [MaxLines]PVLine

	// Updates counts the lines that changed the state.
	Updates int
}

// Label returns the display value of l.
func (s State) Label(l protocol.Label) string {
	switch l {
	case protocol.LabelNodes:
		return s.Nodes
	case protocol.LabelNPS:
		return s.NPS
	case protocol.LabelDepth:
		return s.Depth
	case protocol.LabelSelDepth:
		return s.SelDepth
	case protocol.LabelTime:
		return s.Time
	case protocol.LabelTBHits:
		return s.TBHits
	}
	return ""
}

func (s *State) setLabel(l protocol.Label, v string) {
	switch l {
	case protocol.LabelNodes:
		s.Nodes = v
	case protocol.LabelNPS:
		s.NPS = v
	case protocol.LabelDepth:
		s.Depth = v
	case protocol.LabelSelDepth:
		s.SelDepth = v
	case protocol.LabelTime:
		s.Time = v
	case protocol.LabelTBHits:
		s.TBHits = v
	}
}

// Apply folds one parsed line into the state and returns the slot index of
// an accepted variation, or -1 when the line carried none.
func (s *State) Apply(info protocol.Info) int {
	changed := false
	for l, v := range info.Labels {
		s.setLabel(l, v)
		changed = true
	}

	if info.Score != nil {
		s.Scored = true
		s.IsMate = info.Score.IsMate
		if info.Score.IsMate {
			s.Mate = info.Score.Mate
		} else {
			s.ScoreCP = info.Score.CP
		}
		changed = true
	}

	slot := -1
	if idx := lineIndex(info); idx >= 0 && len(info.PV) > 0 {
		line := PVLine{Moves: append([]string(nil), info.PV...)}
		// null moves and garbage keep the moves but no squares
		line.From, line.To, _ = DecodeMove(info.PV[0])
		s.Lines[idx] = line
		slot = idx
		changed = true
	}

	if changed {
		s.Updates++
	}
	return slot
}

// lineIndex maps the multipv value to a slot. A line without multipv uses
// slot 0; values outside the slots are rejected with -1.
func lineIndex(info protocol.Info) int {
	if !info.HasMultiPV {
		return 0
	}
	if info.MultiPV < 0 || info.MultiPV >= MaxLines {
		return -1
	}
	return info.MultiPV
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	for i, l := range s.Lines {
		c.Lines[i].Moves = append([]string(nil), l.Moves...)
	}
	return c
}

// ScoreString renders the stored score for logs and the command line.
func (s State) ScoreString() string {
	switch {
	case !s.Scored:
		return "-"
	case s.IsMate:
		return fmt.Sprintf("mate %d", s.Mate)
	default:
		return fmt.Sprintf("cp %d", s.ScoreCP)
	}
}

// String renders a one-line summary.
func (s State) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "depth %s/%s score %s nodes %s nps %s",
		orDash(s.Depth), orDash(s.SelDepth), s.ScoreString(), orDash(s.Nodes), orDash(s.NPS))
	for i, l := range s.Lines {
		if l.Empty() {
			continue
		}
		fmt.Fprintf(&b, " | %d: %s", i, strings.Join(l.Moves, " "))
	}
	return b.String()
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
