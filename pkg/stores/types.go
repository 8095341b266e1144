package stores

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SessionStatus represents the status of an analysis session
type SessionStatus string

const (
	SessionStatusRunning  SessionStatus = "running"
	SessionStatusFinished SessionStatus = "finished"
	SessionStatusFailed   SessionStatus = "failed"
)

// Session represents one analysis run
type Session struct {
	ID         string        `json:"id"`
	Engine     string        `json:"engine"`
	FEN        string        `json:"fen"`
	Moves      string        `json:"moves"`
	Status     SessionStatus `json:"status"`
	Error      *string       `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Line is a principal variation recorded during a session
type Line struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	MultiPV    int       `json:"multipv"`
	Depth      int       `json:"depth"`
	SelDepth   int       `json:"seldepth"`
	Nodes      int64     `json:"nodes"`
	NPS        int64     `json:"nps"`
	ScoreCP    *int      `json:"score_cp,omitempty"`
	Mate       *int      `json:"mate,omitempty"`
	PV         string    `json:"pv"` // space separated moves
	RecordedAt time.Time `json:"recorded_at"`
}

// EngineEvent is a persisted status or lifecycle event
type EngineEvent struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	SessionID *string   `json:"session_id,omitempty"`
	Engine    string    `json:"engine"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Session operations
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	FinishSession(ctx context.Context, id string, errMsg *string) error
	ListSessions(ctx context.Context, limit, offset int) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error

	// Line operations
	RecordLine(ctx context.Context, line *Line) error
	ListLines(ctx context.Context, sessionID string) ([]*Line, error)

	// Event operations
	AppendEvent(ctx context.Context, event *EngineEvent) error
	ListEvents(ctx context.Context, engine *string, limit int) ([]*EngineEvent, error)

	// Utility
	HealthCheck(ctx context.Context) error
}

var _ Store = (*SQLiteStore)(nil)
