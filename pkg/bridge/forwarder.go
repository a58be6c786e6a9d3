package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/voicebridge/voicebridge/pkg/audio"
)

// AudioSender is the upstream half the forwarder needs.
type AudioSender interface {
	SendAudio(pcm []byte) error
}

// Forwarder pumps captured audio from a local source into the upstream
// session, one chunk per read, until the source drains or the context is
// canceled.
type Forwarder struct {
	src    audio.Source
	sender AudioSender
	logger *slog.Logger
}

// NewForwarder creates a forwarder from src to sender.
func NewForwarder(src audio.Source, sender AudioSender, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{src: src, sender: sender, logger: logger}
}

// Run forwards until the source reports io.EOF (clean end) or an error.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		chunk, err := f.src.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				f.logger.Info("capture source drained")
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read capture source: %w", err)
		}
		if len(chunk) == 0 {
			continue
		}
		if err := f.sender.SendAudio(chunk); err != nil {
			return fmt.Errorf("forward audio upstream: %w", err)
		}
	}
}
