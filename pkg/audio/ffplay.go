package audio

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// FFPlaySink plays PCM16 frames through an ffplay subprocess reading raw
// s16le from stdin. Requires ffplay (part of ffmpeg) in PATH. Writes
// block on the subprocess pipe, which provides the realtime pacing the
// playback engine relies on.
type FFPlaySink struct {
	logger *slog.Logger

	deviceRate int // ffplay output rate; resampled from SampleRate if different
	volume     int

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool
}

// FFPlayOption configures an FFPlaySink.
type FFPlayOption func(*FFPlaySink)

// WithDeviceRate makes the sink resample output to the given device rate.
func WithDeviceRate(rate int) FFPlayOption {
	return func(s *FFPlaySink) {
		if rate > 0 {
			s.deviceRate = rate
		}
	}
}

// WithVolume sets the ffplay volume (0-100).
func WithVolume(volume int) FFPlayOption {
	return func(s *FFPlaySink) {
		if volume > 0 && volume <= 100 {
			s.volume = volume
		}
	}
}

// NewFFPlaySink starts an ffplay subprocess for the speaker.
func NewFFPlaySink(logger *slog.Logger, opts ...FFPlayOption) (*FFPlaySink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, fmt.Errorf("audio: ffplay is required for speaker playback: %w", err)
	}

	s := &FFPlaySink{
		logger:     logger,
		deviceRate: SampleRate,
		volume:     80,
	}
	for _, opt := range opts {
		opt(s)
	}

	// ffplay does not accept ffmpeg-style -ac; use -ch_layout.
	cmd := exec.Command("ffplay",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-nodisp",
		"-volume", fmt.Sprintf("%d", s.volume),
		"-f", "s16le",
		"-ch_layout", "mono",
		"-ar", fmt.Sprintf("%d", s.deviceRate),
		"-i", "-",
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("audio: open ffplay stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("audio: start ffplay: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin

	logger.Info("speaker playback started",
		"backend", "ffplay",
		"sample_rate", SampleRate,
		"device_rate", s.deviceRate,
	)

	return s, nil
}

// Write plays one frame, blocking on the subprocess pipe.
func (s *FFPlaySink) Write(frame Chunk) error {
	s.mu.Lock()
	stdin := s.stdin
	closed := s.closed
	s.mu.Unlock()

	if closed || stdin == nil {
		return io.ErrClosedPipe
	}

	out := []byte(frame)
	if s.deviceRate != SampleRate {
		out = ResampleBytes(out, SampleRate, s.deviceRate)
	}

	if _, err := stdin.Write(out); err != nil {
		return fmt.Errorf("audio: ffplay write: %w", err)
	}
	return nil
}

// FrameBytes returns the standard frame size at the bridge sample rate.
func (s *FFPlaySink) FrameBytes() int {
	return FrameBytes
}

// Close stops the playback process.
func (s *FFPlaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.logger.Info("speaker playback stopped")
	return nil
}

// Ensure FFPlaySink implements Sink.
var _ Sink = (*FFPlaySink)(nil)
