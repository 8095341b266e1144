package analysis

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kibitz/kibitz/pkg/engine"
	"github.com/kibitz/kibitz/pkg/protocol"
)

// DefaultBuffer is the capacity of the hand-off channel between the engine's
// reader goroutine and the driver.
const DefaultBuffer = 256

// Source is an engine whose output can be listened to.
type Source interface {
	Listen(fn engine.Listener)
}

// Recorder persists variations as they arrive.
type Recorder interface {
	RecordLine(ctx context.Context, slot int, s State) error
}

// UpdateFunc is called with a copy of the state after each change.
type UpdateFunc func(s State)

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithRecorder records every accepted variation.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// WithBuffer sets the hand-off channel capacity.
func WithBuffer(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.buffer = n
		}
	}
}

// Driver turns raw engine output into State.
type Driver struct {
	src      Source
	logger   zerolog.Logger
	recorder Recorder
	buffer   int

	mu       sync.Mutex
	state    State
	handlers []UpdateFunc
	lines    chan string
	done     chan struct{}
	closed   bool
	dropped  int
}

// NewDriver returns a driver for src. Call Start to begin listening.
func NewDriver(src Source, opts ...Option) *Driver {
	d := &Driver{
		src:    src,
		logger: zerolog.Nop(),
		buffer: DefaultBuffer,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("component", "analysis").Logger()
	return d
}

// OnUpdate registers fn. Callbacks run on the driver goroutine in
// registration order.
func (d *Driver) OnUpdate(fn UpdateFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, fn)
}

// Start registers the listener and starts the driver goroutine. It replaces
// any listener already set on the source.
func (d *Driver) Start() {
	d.mu.Lock()
	if d.lines != nil {
		d.mu.Unlock()
		return
	}
	d.lines = make(chan string, d.buffer)
	d.done = make(chan struct{})
	d.closed = false
	lines, done := d.lines, d.done
	d.mu.Unlock()

	go d.run(lines, done)
	d.src.Listen(d.handoff)
}

// handoff runs on the engine's reader goroutine and must not block.
func (d *Driver) handoff(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.lines == nil {
		return
	}
	select {
	case d.lines <- line:
	default:
		d.dropped++
	}
}

func (d *Driver) run(lines <-chan string, done chan<- struct{}) {
	defer close(done)
	for line := range lines {
		d.process(line)
	}
}

func (d *Driver) process(line string) {
	info := protocol.ParseInfo(line)

	d.mu.Lock()
	before := d.state.Updates
	slot := d.state.Apply(info)
	if d.state.Updates == before {
		d.mu.Unlock()
		return
	}
	snap := d.state.Clone()
	handlers := append([]UpdateFunc(nil), d.handlers...)
	d.mu.Unlock()

	for _, fn := range handlers {
		fn(snap)
	}

	if slot >= 0 && d.recorder != nil {
		if err := d.recorder.RecordLine(context.Background(), slot, snap); err != nil {
			d.logger.Warn().Err(err).Int("slot", slot).Msg("Failed to record line")
		}
	}
}

// Snapshot returns a copy of the current state. Safe from any goroutine.
func (d *Driver) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Clone()
}

// Reset clears the state, for example before a new position is searched.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = State{}
}

// Dropped returns the number of lines discarded because the driver fell behind.
func (d *Driver) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Close removes the listener and waits until queued lines are processed.
func (d *Driver) Close() {
	d.src.Listen(nil)

	d.mu.Lock()
	if d.lines == nil || d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.lines)
	done := d.done
	d.lines = nil
	d.mu.Unlock()

	<-done
	if n := d.Dropped(); n > 0 {
		d.logger.Warn().Int("dropped", n).Msg("Analysis fell behind engine output")
	}
}
