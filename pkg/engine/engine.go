package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kibitz/kibitz/pkg/config"
	"github.com/kibitz/kibitz/pkg/option"
	"github.com/kibitz/kibitz/pkg/protocol"
	"github.com/kibitz/kibitz/pkg/telemetry"
)

// Default timings.
const (
	DefaultHandshakeTimeout = time.Second
	DefaultSettleDelay      = 50 * time.Millisecond
	DefaultWriteTimeout     = 2 * time.Second
)

// State is the lifecycle state of an Engine.
type State int

const (
	StateStopped State = iota
	StateIdle
	StateSearching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	default:
		return "stopped"
	}
}

// StatusSink receives human-readable, non-fatal status messages such as a
// spawn failure or a handshake that did not complete.
type StatusSink interface {
	ShowStatus(msg string)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(msg string)

// ShowStatus calls f(msg).
func (f StatusFunc) ShowStatus(msg string) { f(msg) }

// Identity is what the engine reported about itself during discovery.
type Identity struct {
	Name   string
	Author string
}

// Option configures an Engine.
type Option func(*Engine)

// WithStatusSink sets the collaborator that receives status messages.
func WithStatusSink(s StatusSink) Option {
	return func(e *Engine) { e.status = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records engine metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer records engine spans.
func WithTracer(t *telemetry.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithHandshakeTimeout bounds the discovery handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(e *Engine) { e.handshakeTimeout = d }
}

// WithSettleDelay sets the pause after a stop command.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) { e.settleDelay = d }
}

// WithWriteTimeout bounds a single command write.
func WithWriteTimeout(d time.Duration) Option {
	return func(e *Engine) { e.writeTimeout = d }
}

// Engine drives one engine process described by an EngineConfig.
//
// Discovery updates the option set of the config in place, so a config taken
// from a Registry reflects what the engine reported once Start returns.
// Operations are serialized internally; the listener runs on the reader
// goroutine and must not call back into the Engine synchronously.
type Engine struct {
	cfg     *config.EngineConfig
	dialect protocol.Dialect

	status           StatusSink
	logger           zerolog.Logger
	metrics          *telemetry.Metrics
	tracer           *telemetry.Tracer
	handshakeTimeout time.Duration
	settleDelay      time.Duration
	writeTimeout     time.Duration

	mu        sync.Mutex
	proc      *process
	running   bool
	searching bool
	identity  Identity

	listener atomic.Pointer[Listener]
}

// New returns a stopped engine for cfg.
func New(cfg *config.EngineConfig, opts ...Option) *Engine {
	cfg.Normalize()
	e := &Engine{
		cfg:              cfg,
		dialect:          protocol.DialectFor(cfg.Protocol),
		status:           StatusFunc(func(string) {}),
		logger:           zerolog.Nop(),
		handshakeTimeout: DefaultHandshakeTimeout,
		settleDelay:      DefaultSettleDelay,
		writeTimeout:     DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "engine").Str("engine", cfg.Name).Logger()
	return e
}

// Name returns the configured engine name.
func (e *Engine) Name() string { return e.cfg.Name }

// Config returns the configuration the engine was created from.
func (e *Engine) Config() *config.EngineConfig { return e.cfg }

// Dialect returns the protocol dialect of the engine.
func (e *Engine) Dialect() protocol.Dialect { return e.dialect }

// Info returns the identity reported during the last discovery.
func (e *Engine) Info() Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refresh()
	switch {
	case !e.running:
		return StateStopped
	case e.searching:
		return StateSearching
	default:
		return StateIdle
	}
}

// PID returns the process id of the running engine, or 0.
func (e *Engine) PID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refresh()
	if !e.running {
		return 0
	}
	return e.proc.cmd.Process.Pid
}

// refresh downgrades the state if the process has died since the last call.
func (e *Engine) refresh() {
	if !e.running || !e.proc.exited() {
		return
	}
	e.logger.Warn().AnErr("exit", e.proc.waitErr).Msg("Engine process exited")
	e.running = false
	e.searching = false
	e.metrics.RecordStopped()
}

// Listen registers fn as the single output listener, replacing any previous
// one. Lines already read are not replayed. A nil fn removes the listener.
func (e *Engine) Listen(fn Listener) {
	if fn == nil {
		e.listener.Store(nil)
		return
	}
	e.listener.Store(&fn)
}

// Start spawns the engine and runs the discovery handshake.
//
// A spawn failure is reported once to the status sink and returned as a
// KindSpawn error. A handshake that does not complete is reported but does
// not fail Start. The handshake is bounded by the handshake timeout and is
// not cancelled by ctx.
func (e *Engine) Start(ctx context.Context) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refresh()
	if e.running {
		return newError(KindInvalidState, e.cfg.Name, "start", ErrAlreadyRunning)
	}

	ctx, span := e.tracer.StartEngineSpan(ctx, e.cfg.Name, "start")
	span.SetAttributes(telemetry.AttrProtocol.String(e.cfg.Protocol.String()))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}()

	proc, err := spawn(e.cfg.Name, e.cfg.Binary, e.cfg.Args, e.writeTimeout, &e.listener, e.metrics, e.logger)
	if err != nil {
		e.metrics.RecordStart(e.cfg.Name, string(KindSpawn))
		e.metrics.RecordError(e.cfg.Name, string(KindSpawn))
		e.status.ShowStatus(fmt.Sprintf("Unable to start engine %s: %v", e.cfg.Name, err))
		e.logger.Error().Err(err).Str("binary", e.cfg.Binary).Msg("Failed to start engine")
		return newError(KindSpawn, e.cfg.Name, "start", err)
	}

	e.proc = proc
	e.running = true
	e.searching = false
	e.identity = Identity{}
	e.metrics.RecordStart(e.cfg.Name, "ok")
	e.logger.Info().Int("pid", proc.cmd.Process.Pid).Str("binary", e.cfg.Binary).Msg("Engine started")

	e.discover(ctx)
	return nil
}

// discover runs the handshake and merges the discovered options into the
// configuration. Dialects without discovery skip it.
func (e *Engine) discover(ctx context.Context) {
	lines := e.dialect.Discover()
	if len(lines) == 0 {
		return
	}

	_, span := e.tracer.StartEngineSpan(ctx, e.cfg.Name, "handshake")
	defer span.End()

	started := time.Now()
	for _, line := range lines {
		if err := e.proc.send(line); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to send discovery command")
			break
		}
	}

	hs := protocol.NewHandshake(e.dialect)
	deadline := time.NewTimer(e.handshakeTimeout)
	defer deadline.Stop()

	var failure *Error
wait:
	for {
		select {
		case line, ok := <-e.proc.queue:
			if !ok {
				failure = newError(KindProcessExited, e.cfg.Name, "handshake", fmt.Errorf("output closed before handshake completed"))
				break wait
			}
			if hs.Feed(line) {
				break wait
			}
		case <-deadline.C:
			failure = newError(KindHandshakeTimeout, e.cfg.Name, "handshake",
				fmt.Errorf("no %s reply within %s", e.dialect.Protocol(), e.handshakeTimeout))
			break wait
		}
	}

	elapsed := time.Since(started)
	e.metrics.RecordHandshake(e.cfg.Name, elapsed)

	res := hs.Result()
	e.identity = Identity{Name: res.Name, Author: res.Author}

	// only a complete handshake replaces the option set; a partial one patches
	// the parsed names into it and keeps every other stored option
	if res.Complete {
		e.cfg.Options = res.Options.MergeFrom(e.cfg.Options)
	} else if res.Options.Len() > 0 {
		e.cfg.Options = e.cfg.Options.Patch(res.Options)
	}

	span.SetAttributes(telemetry.AttrOptions.Int(res.Options.Len()))

	if failure != nil {
		telemetry.RecordError(span, failure)
		e.metrics.RecordError(e.cfg.Name, string(failure.Kind))
		e.logger.Warn().Err(failure).Dur("elapsed", elapsed).Int("options", res.Options.Len()).Msg("Discovery incomplete")
		e.status.ShowStatus(fmt.Sprintf("Engine %s may not implement the protocol correctly", e.cfg.Name))
		return
	}

	telemetry.RecordSuccess(span)
	e.logger.Info().
		Str("id", res.Name).
		Str("author", res.Author).
		Int("options", res.Options.Len()).
		Dur("elapsed", elapsed).
		Msg("Discovery complete")
}

// SendLine writes one command line to the engine.
func (e *Engine) SendLine(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sendLocked("send", text)
}

func (e *Engine) sendLocked(op string, lines ...string) error {
	e.refresh()
	if !e.running {
		return newError(KindInvalidState, e.cfg.Name, op, ErrNotRunning)
	}
	for _, line := range lines {
		if err := e.proc.send(line); err != nil {
			e.metrics.RecordError(e.cfg.Name, string(KindIO))
			return newError(KindIO, e.cfg.Name, op, err)
		}
	}
	return nil
}

// SendOptions sends the current value of every option the dialect can set.
// Options of unknown type are never sent.
func (e *Engine) SendOptions() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refresh()
	if !e.running {
		return newError(KindInvalidState, e.cfg.Name, "send options", ErrNotRunning)
	}

	var lines []string
	e.cfg.Options.Each(func(name string, opt option.Option) bool {
		if opt.Kind() == option.KindUnknown {
			return true
		}
		lines = append(lines, e.dialect.SetOption(name, wireValue(opt))...)
		return true
	})
	return e.sendLocked("send options", lines...)
}

// wireValue renders an option value for a set-option command. Empty strings
// use the placeholder engines print for them.
func wireValue(opt option.Option) string {
	v := opt.ValueString()
	if v == "" && opt.Kind() == option.KindString {
		return "<empty>"
	}
	return v
}

// Search starts an infinite search from fen followed by moves (space separated,
// may be empty). A running search is stopped first.
func (e *Engine) Search(fen, moves string) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refresh()
	if !e.running {
		return newError(KindInvalidState, e.cfg.Name, "search", ErrNotRunning)
	}

	_, span := e.tracer.StartEngineSpan(context.Background(), e.cfg.Name, "search")
	span.SetAttributes(telemetry.AttrFEN.String(fen))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if e.searching {
		if err := e.stopLocked(); err != nil {
			return err
		}
	}

	lines := append(e.dialect.Position(fen, moves), e.dialect.GoInfinite()...)
	if err := e.sendLocked("search", lines...); err != nil {
		return err
	}
	e.searching = true
	e.metrics.RecordSearch(e.cfg.Name)
	return nil
}

// StopSearch stops the running search and waits for the settle delay so
// trailing output drains before the next command.
func (e *Engine) StopSearch() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refresh()
	if !e.running {
		return newError(KindInvalidState, e.cfg.Name, "stop", ErrNotRunning)
	}
	if !e.searching {
		return newError(KindInvalidState, e.cfg.Name, "stop", ErrNotSearching)
	}
	return e.stopLocked()
}

func (e *Engine) stopLocked() error {
	err := e.sendLocked("stop", e.dialect.Stop()...)
	e.searching = false
	time.Sleep(e.settleDelay)
	return err
}

// Exit stops any search, asks the engine to quit and then kills the process
// regardless of the reply. The reader goroutine finishes on its own once the
// output pipe closes.
func (e *Engine) Exit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refresh()
	if !e.running {
		return newError(KindInvalidState, e.cfg.Name, "exit", ErrNotRunning)
	}

	_, span := e.tracer.StartEngineSpan(context.Background(), e.cfg.Name, "exit")
	defer span.End()

	if e.searching {
		if err := e.stopLocked(); err != nil {
			e.logger.Debug().Err(err).Msg("Failed to stop search before exit")
		}
	}

	e.proc.closing.Store(true)
	for _, line := range e.dialect.Quit() {
		if err := e.proc.send(line); err != nil {
			e.logger.Debug().Err(err).Msg("Failed to send quit")
			break
		}
	}
	e.proc.kill()

	e.running = false
	e.searching = false
	e.metrics.RecordStopped()
	e.logger.Info().Msg("Engine stopped")
	return nil
}

// Receive pops the next queued output line, waiting until ctx is done.
// The queue only holds lines not yet consumed by discovery. It returns
// ErrNotRunning when the engine was never started or its output has ended.
func (e *Engine) Receive(ctx context.Context) (string, error) {
	e.mu.Lock()
	proc := e.proc
	e.mu.Unlock()

	if proc == nil {
		return "", newError(KindInvalidState, e.cfg.Name, "receive", ErrNotRunning)
	}

	select {
	case line, ok := <-proc.queue:
		if !ok {
			return "", newError(KindInvalidState, e.cfg.Name, "receive", ErrNotRunning)
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
