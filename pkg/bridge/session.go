// Package bridge runs one realtime voice session: it configures the
// upstream model, routes its events to playback and the client, and
// forwards captured audio upstream.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicebridge/voicebridge/pkg/audio"
	"github.com/voicebridge/voicebridge/pkg/realtime"
	"github.com/voicebridge/voicebridge/pkg/turn"
)

// engineShutdownTimeout bounds the wait for the playback loop to drain
// during teardown.
const engineShutdownTimeout = 2 * time.Second

// UpstreamClient is the slice of the realtime client a session uses.
type UpstreamClient interface {
	ConfigureSession(opts realtime.SessionOptions) error
	SendAudio(pcm []byte) error
	Events() <-chan realtime.Event
	Err() error
	Close() error
}

// Session owns the per-conversation components and their lifecycle. One
// session maps to one upstream connection and one client.
type Session struct {
	ID string

	client  UpstreamClient
	engine  *audio.Engine
	emitter Emitter
	tracker *turn.Tracker
	router  *Router
	logger  *slog.Logger
	opts    realtime.SessionOptions

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewSession assembles a session. engine may be nil when the client plays
// audio itself.
func NewSession(client UpstreamClient, engine *audio.Engine, emitter Emitter, opts realtime.SessionOptions, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With("session_id", id)

	tracker := turn.NewTracker(logger)
	return &Session{
		ID:      id,
		client:  client,
		engine:  engine,
		emitter: emitter,
		tracker: tracker,
		router:  NewRouter(engine, tracker, emitter, logger),
		logger:  logger,
		opts:    opts,
		stopped: make(chan struct{}),
	}
}

// Tracker exposes the turn state machine, e.g. to register an OnChange
// callback before Run.
func (s *Session) Tracker() *turn.Tracker {
	return s.tracker
}

// SendAudio forwards one captured chunk upstream.
func (s *Session) SendAudio(pcm []byte) error {
	return s.client.SendAudio(pcm)
}

// Stop ends the session from outside Run. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// Run configures the upstream session and processes events until the
// upstream closes, a component fails, Stop is called, or the context is
// canceled. The first failure tears everything down.
func (s *Session) Run(ctx context.Context) error {
	if err := s.client.ConfigureSession(s.opts); err != nil {
		err = fmt.Errorf("configure session: %w", err)
		s.emitter.Error("configure_failed", err.Error())
		s.client.Close()
		return err
	}
	s.emitter.Ready()
	s.logger.Info("session started", "vad_mode", s.opts.VADMode, "voice", s.opts.Voice)

	errc := make(chan error, 2)

	if s.engine != nil {
		go func() {
			if err := s.engine.Run(); err != nil {
				errc <- fmt.Errorf("playback: %w", err)
			}
		}()
	}

	go func() {
		for ev := range s.client.Events() {
			s.router.HandleEvent(ev)
		}
		// nil here means the upstream closed cleanly.
		errc <- s.client.Err()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case <-s.stopped:
	case runErr = <-errc:
	}

	s.teardown()

	if runErr != nil {
		s.emitter.Error("session_failed", runErr.Error())
		s.logger.Error("session ended with error", "error", runErr)
		return runErr
	}
	s.logger.Info("session ended")
	return nil
}

func (s *Session) teardown() {
	s.client.Close()
	if s.engine != nil {
		if err := s.engine.Shutdown(engineShutdownTimeout); err != nil {
			s.logger.Warn("playback shutdown", "error", err)
		}
	}
	s.tracker.Reset()
}
