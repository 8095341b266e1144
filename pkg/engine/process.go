package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kibitz/kibitz/pkg/protocol"
	"github.com/kibitz/kibitz/pkg/telemetry"
)

// QueueCapacity bounds the per-process output queue.
const QueueCapacity = 1024

// Listener receives every raw output line of a running engine. It runs on the
// reader goroutine; implementations that touch shared state must hand off.
type Listener func(line string)

// process is the runtime half of an engine: it exists from a successful
// spawn until Exit or the death of the child.
type process struct {
	name    string
	cmd     *exec.Cmd
	stdin   *os.File
	encoder *protocol.Encoder

	// queue holds output lines in arrival order. When full the oldest line
	// is discarded. The reader closes it at end of output.
	queue chan string

	// done is closed once the child has been reaped.
	done    chan struct{}
	waitErr error

	// closing suppresses listener calls once Exit has begun.
	closing atomic.Bool

	listener *atomic.Pointer[Listener]
	metrics  *telemetry.Metrics
	logger   zerolog.Logger
}

// deadlineWriter arms a write deadline before every write so a child that
// stops reading cannot block the caller forever.
type deadlineWriter struct {
	f       *os.File
	timeout time.Duration
}

func (w deadlineWriter) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		_ = w.f.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	return w.f.Write(p)
}

func spawn(name, binary string, args []string, writeTimeout time.Duration,
	listener *atomic.Pointer[Listener], metrics *telemetry.Metrics, logger zerolog.Logger) (*process, error) {

	cmd := exec.Command(binary, args...)

	// stdin is a plain pipe rather than cmd.StdinPipe so that the write end
	// supports deadlines.
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	cmd.Stdin = stdinR

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, err
	}
	stdinR.Close()

	p := &process{
		name:     name,
		cmd:      cmd,
		stdin:    stdinW,
		encoder:  protocol.NewEncoder(deadlineWriter{f: stdinW, timeout: writeTimeout}),
		queue:    make(chan string, QueueCapacity),
		done:     make(chan struct{}),
		listener: listener,
		metrics:  metrics,
		logger:   logger,
	}
	go p.read(stdout)
	return p, nil
}

// read owns the stdout pipe. It ends when the child closes its output, then
// reaps the child.
func (p *process) read(stdout io.Reader) {
	defer close(p.done)
	defer close(p.queue)

	dec := protocol.NewDecoder(stdout)
	for {
		line, err := dec.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Debug().Err(err).Msg("Engine output ended")
			}
			break
		}

		p.logger.Trace().Str("dir", "recv").Msg(line)
		p.metrics.RecordLine(p.name)

		// the listener sees a line before any queue consumer can
		if fn := p.listener.Load(); fn != nil && !p.closing.Load() {
			(*fn)(line)
		}
		if line != "" {
			p.push(line)
		}
	}

	p.waitErr = p.cmd.Wait()
	p.logger.Debug().AnErr("wait", p.waitErr).Msg("Engine process reaped")
}

// push enqueues line, discarding the oldest queued line when the queue is full.
// The reader is the only producer, so at most one retry is needed.
func (p *process) push(line string) {
	select {
	case p.queue <- line:
		return
	default:
	}

	select {
	case <-p.queue:
		p.metrics.RecordQueueDrop(p.name)
	default:
	}

	select {
	case p.queue <- line:
	default:
		p.metrics.RecordQueueDrop(p.name)
	}
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *process) send(line string) error {
	p.logger.Trace().Str("dir", "send").Msg(line)
	return p.encoder.Encode(line)
}

// kill closes stdin and terminates the child without waiting for it.
func (p *process) kill() {
	_ = p.stdin.Close()
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Debug().Err(err).Msg("Failed to kill engine process")
	}
}
