package audio

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Engine defaults.
const (
	// DefaultQueueSize bounds the playback queue. Small on purpose: the
	// queue depth is the worst-case added playback latency.
	DefaultQueueSize = 10

	// DefaultDequeueTimeout is how long the loop waits for real audio
	// before writing a silence frame. Must stay below FrameDuration or
	// the device buffer can underrun between writes.
	DefaultDequeueTimeout = 10 * time.Millisecond
)

// ErrShutdownTimeout is returned when the playback loop does not exit
// within the shutdown deadline.
var ErrShutdownTimeout = errors.New("audio: playback engine did not stop in time")

// EngineConfig holds playback engine tuning parameters.
type EngineConfig struct {
	QueueSize      int
	DequeueTimeout time.Duration
}

// DefaultEngineConfig returns the standard engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		QueueSize:      DefaultQueueSize,
		DequeueTimeout: DefaultDequeueTimeout,
	}
}

// EngineStats is a snapshot of engine counters.
type EngineStats struct {
	Writes        int64 `json:"writes"`
	SilenceWrites int64 `json:"silence_writes"`
	RealWrites    int64 `json:"real_writes"`
	Dropped       int64 `json:"dropped"`
}

// Engine continuously feeds a Sink, substituting silence whenever no real
// audio is queued. Keeping the device fed on every iteration eliminates
// startup latency and first-syllable clipping.
//
// Exactly one sink write happens per loop iteration: a dequeued chunk, or
// one silence frame after DequeueTimeout. The loop exits when the shutdown
// sentinel (a nil chunk) is dequeued, without a further write.
//
// Overflow policy: drop-newest. Enqueue never blocks the producer; when
// the queue is full the incoming chunk is dropped and counted. A short
// audible glitch is preferred over unbounded playback latency.
type Engine struct {
	sink    Sink
	logger  *slog.Logger
	queue   chan Chunk
	timeout time.Duration
	silence Chunk

	speaking   bool
	speakingMu sync.Mutex

	errMu    sync.Mutex
	writeErr error

	done         chan struct{}
	shutdownOnce sync.Once

	writes        atomic.Int64
	silenceWrites atomic.Int64
	dropped       atomic.Int64
}

// NewEngine creates a playback engine for the given sink. The engine does
// not start until Run is called.
func NewEngine(sink Sink, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.DequeueTimeout <= 0 {
		cfg.DequeueTimeout = DefaultDequeueTimeout
	}

	return &Engine{
		sink:    sink,
		logger:  logger,
		queue:   make(chan Chunk, cfg.QueueSize),
		timeout: cfg.DequeueTimeout,
		silence: Silence(sink.FrameBytes()),
		done:    make(chan struct{}),
	}
}

// Enqueue hands a chunk to the playback loop. It never blocks: if the
// queue is full the chunk is dropped (drop-newest) and false is returned.
// Empty chunks are ignored.
func (e *Engine) Enqueue(chunk Chunk) bool {
	if len(chunk) == 0 {
		return true
	}

	select {
	case e.queue <- chunk:
		return true
	default:
		e.dropped.Add(1)
		e.logger.Warn("playback queue full, dropping chunk",
			"bytes", len(chunk),
			"dropped_total", e.dropped.Load(),
		)
		return false
	}
}

// Run drives the sink until the shutdown sentinel is dequeued or a sink
// write fails. A write error is fatal: resynchronizing a realtime clock
// after an I/O fault is not attempted.
func (e *Engine) Run() error {
	defer close(e.done)

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(e.timeout)

		select {
		case chunk := <-e.queue:
			if chunk == nil {
				// Shutdown sentinel. No further writes.
				e.setSpeaking(false)
				return nil
			}
			e.setSpeaking(true)
			if err := e.sink.Write(chunk); err != nil {
				e.setSpeaking(false)
				e.fail(err)
				return err
			}
			e.writes.Add(1)

		case <-timer.C:
			e.setSpeaking(false)
			if err := e.sink.Write(e.silence); err != nil {
				e.fail(err)
				return err
			}
			e.writes.Add(1)
			e.silenceWrites.Add(1)
		}
	}
}

// Shutdown sends the sentinel and waits for the loop to exit. The wait is
// bounded: a loop stuck in a device write longer than timeout returns
// ErrShutdownTimeout rather than hanging teardown.
func (e *Engine) Shutdown(timeout time.Duration) error {
	var err error
	e.shutdownOnce.Do(func() {
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()

		select {
		case e.queue <- nil:
		case <-e.done:
			// Loop already exited (sink failure).
			return
		case <-deadline.C:
			err = ErrShutdownTimeout
			return
		}

		select {
		case <-e.done:
		case <-deadline.C:
			err = ErrShutdownTimeout
		}
	})
	return err
}

// Speaking reports whether the engine is currently emitting real audio.
// True for the full duration of a real-chunk write, false during silence.
// Safe to poll from any goroutine.
func (e *Engine) Speaking() bool {
	e.speakingMu.Lock()
	defer e.speakingMu.Unlock()
	return e.speaking
}

// Done is closed when the playback loop has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err returns the fatal sink error, if any.
func (e *Engine) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.writeErr
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() EngineStats {
	writes := e.writes.Load()
	silence := e.silenceWrites.Load()
	return EngineStats{
		Writes:        writes,
		SilenceWrites: silence,
		RealWrites:    writes - silence,
		Dropped:       e.dropped.Load(),
	}
}

func (e *Engine) setSpeaking(v bool) {
	e.speakingMu.Lock()
	e.speaking = v
	e.speakingMu.Unlock()
}

func (e *Engine) fail(err error) {
	e.errMu.Lock()
	e.writeErr = err
	e.errMu.Unlock()
	e.logger.Error("sink write failed, stopping playback", "error", err)
}
