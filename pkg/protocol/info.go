package protocol

import (
	"strconv"
	"strings"
)

// Label is a labelled search statistic in an "info" line.
type Label string

const (
	LabelNodes    Label = "nodes"
	LabelNPS      Label = "nps"
	LabelDepth    Label = "depth"
	LabelSelDepth Label = "seldepth"
	LabelTime     Label = "time"
	LabelTBHits   Label = "tbhits"
)

// DisplayLabels lists the statistics a consumer shows verbatim.
var DisplayLabels = []Label{LabelNodes, LabelNPS, LabelDepth, LabelSelDepth, LabelTime, LabelTBHits}

var displayLabelSet = map[string]Label{
	string(LabelNodes):    LabelNodes,
	string(LabelNPS):      LabelNPS,
	string(LabelDepth):    LabelDepth,
	string(LabelSelDepth): LabelSelDepth,
	string(LabelTime):     LabelTime,
	string(LabelTBHits):   LabelTBHits,
}

// Score is an evaluation in centipawns or a mate distance.
// The sign convention is the engine's; no interpretation is applied.
type Score struct {
	CP     int
	Mate   int
	IsMate bool
}

// Info holds the fields found in one search output line. Only fields present
// in the line are set; consumers keep their previous value for the rest.
type Info struct {
	Labels     map[Label]string
	Score      *Score
	MultiPV    int
	HasMultiPV bool
	PV         []string
	Text       string
}

// Int returns a display label as an integer.
func (i Info) Int(l Label) (int64, bool) {
	raw, ok := i.Labels[l]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Has reports whether label l was present.
func (i Info) Has(l Label) bool {
	_, ok := i.Labels[l]
	return ok
}

// ParseInfo splits line into lower-cased whitespace tokens and extracts the
// labelled fields. Each label's value is the token immediately following it.
// "pv" takes every remaining token; "string" takes the rest of the line verbatim.
func ParseInfo(line string) Info {
	info := Info{Labels: make(map[Label]string)}
	tokens := strings.Fields(strings.ToLower(line))

	next := func(i int) (string, bool) {
		if i+1 < len(tokens) {
			return tokens[i+1], true
		}
		return "", false
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if l, ok := displayLabelSet[tok]; ok {
			if v, ok := next(i); ok {
				info.Labels[l] = v
				i++
			}
			continue
		}

		switch tok {
		case "score":
			kind, ok := next(i)
			if !ok {
				continue
			}
			if kind != "cp" && kind != "mate" {
				continue
			}
			if v, ok := next(i + 1); ok {
				if n, err := strconv.Atoi(v); err == nil {
					info.Score = newScore(kind == "mate", n)
				}
				i += 2
			}
		case "mate":
			if v, ok := next(i); ok {
				if n, err := strconv.Atoi(v); err == nil {
					info.Score = newScore(true, n)
					i++
				}
			}
		case "multipv":
			if v, ok := next(i); ok {
				if n, err := strconv.Atoi(v); err == nil {
					info.MultiPV = n
					info.HasMultiPV = true
				}
				i++
			}
		case "pv":
			if i+1 < len(tokens) {
				info.PV = append([]string(nil), tokens[i+1:]...)
			}
			return info
		case "string":
			info.Text = textAfter(line, "string")
			return info
		}
	}
	return info
}

func newScore(mate bool, n int) *Score {
	if mate {
		return &Score{Mate: n, IsMate: true}
	}
	return &Score{CP: n}
}

// textAfter returns the unlowered text following the first standalone word w.
func textAfter(line, w string) string {
	fields := strings.Fields(line)
	for i, f := range fields {
		if strings.EqualFold(f, w) {
			return strings.Join(fields[i+1:], " ")
		}
	}
	return ""
}
