package stores

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/kibitz/kibitz/pkg/analysis"
	"github.com/kibitz/kibitz/pkg/telemetry"
)

// SessionRecorder stores the variations of one session. It satisfies
// analysis.Recorder.
type SessionRecorder struct {
	store     Store
	sessionID string
	count     atomic.Int64
}

// NewSessionRecorder returns a recorder appending to sessionID.
func NewSessionRecorder(store Store, sessionID string) *SessionRecorder {
	return &SessionRecorder{store: store, sessionID: sessionID}
}

// RecordLine stores the variation in slot together with the current statistics.
func (r *SessionRecorder) RecordLine(ctx context.Context, slot int, s analysis.State) error {
	line := LineFromState(r.sessionID, slot, s)
	if err := r.store.RecordLine(ctx, line); err != nil {
		return err
	}
	r.count.Add(1)
	return nil
}

// Count returns the number of lines stored so far.
func (r *SessionRecorder) Count() int {
	return int(r.count.Load())
}

// LineFromState converts the variation in slot to a Line. Non-numeric
// statistics are stored as zero.
func LineFromState(sessionID string, slot int, s analysis.State) *Line {
	line := &Line{
		SessionID: sessionID,
		MultiPV:   slot,
		Depth:     int(atoi(s.Depth)),
		SelDepth:  int(atoi(s.SelDepth)),
		Nodes:     atoi(s.Nodes),
		NPS:       atoi(s.NPS),
		PV:        strings.Join(s.Lines[slot].Moves, " "),
	}
	if s.Scored {
		if s.IsMate {
			mate := s.Mate
			line.Mate = &mate
		} else {
			cp := s.ScoreCP
			line.ScoreCP = &cp
		}
	}
	return line
}

func atoi(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// EventRecorder returns an event subscriber that appends every event to store.
// Failures are logged and otherwise ignored.
func EventRecorder(store Store, logger zerolog.Logger) telemetry.EventSubscriber {
	return func(ev telemetry.Event) {
		rec := &EngineEvent{
			EventID:   ev.ID,
			Engine:    ev.Engine,
			Type:      ev.Type,
			Level:     ev.Level,
			Message:   ev.Message,
			Timestamp: ev.Timestamp.UTC(),
		}
		if ev.SessionID != "" {
			id := ev.SessionID
			rec.SessionID = &id
		}
		if err := store.AppendEvent(context.Background(), rec); err != nil {
			logger.Warn().Err(err).Str("event", ev.Type).Msg("Failed to store event")
		}
	}
}
