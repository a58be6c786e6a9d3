package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
)

// FFmpegSource captures microphone audio through an ffmpeg subprocess
// emitting raw s16le on stdout. Requires ffmpeg in PATH.
type FFmpegSource struct {
	logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	closed bool
}

// NewFFmpegSource starts an ffmpeg capture for the platform's default
// input device at the fixed bridge format.
func NewFFmpegSource(logger *slog.Logger) (*FFmpegSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("audio: ffmpeg is required for microphone capture: %w", err)
	}

	args, err := captureArgs(runtime.GOOS)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command("ffmpeg", args...)
	cmd.Stderr = io.Discard
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio: open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("audio: start ffmpeg capture: %w", err)
	}

	logger.Info("microphone capture started",
		"backend", "ffmpeg",
		"sample_rate", SampleRate,
		"frame_bytes", FrameBytes,
	)

	return &FFmpegSource{logger: logger, cmd: cmd, stdout: stdout}, nil
}

func captureArgs(goos string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", SampleRate),
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", SampleRate),
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("audio: microphone capture is not implemented for %s", goos)
	}
}

// Read returns the next captured frame. Blocks until a full frame has
// arrived. Returns io.EOF after Close or when ffmpeg exits.
func (s *FFmpegSource) Read(ctx context.Context) (Chunk, error) {
	s.mu.Lock()
	stdout := s.stdout
	closed := s.closed
	s.mu.Unlock()

	if closed || stdout == nil {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := make(Chunk, FrameBytes)
	if _, err := io.ReadFull(stdout, frame); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, err
	}
	return frame, nil
}

// Close kills the capture process.
func (s *FFmpegSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.logger.Info("microphone capture stopped")
	return nil
}

// Ensure FFmpegSource implements Source.
var _ Source = (*FFmpegSource)(nil)
