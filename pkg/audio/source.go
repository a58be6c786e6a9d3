package audio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Source captures fixed-size PCM16 frames from a microphone or other
// input. Read blocks until the next frame is available and returns io.EOF
// once the source is closed.
type Source interface {
	Read(ctx context.Context) (Chunk, error)
	io.Closer
}

// MockSource generates synthetic frames (silence or a sine wave) at the
// capture cadence. Used in tests and on machines without a microphone.
type MockSource struct {
	logger *slog.Logger

	mu     sync.Mutex
	closed bool

	frequency float64 // Hz, 0 = silence
	amplitude float64
	phase     float64

	ticker *time.Ticker
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// NewMockSource creates a synthetic capture source.
func NewMockSource(logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockSource{
		logger:    logger,
		amplitude: 0.5,
		ticker:    time.NewTicker(FrameDuration),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Read returns the next synthetic frame at the capture cadence.
func (m *MockSource) Read(ctx context.Context) (Chunk, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, io.EOF
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.ticker.C:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, io.EOF
	}
	return m.generateFrame(), nil
}

func (m *MockSource) generateFrame() Chunk {
	samples := make([]int16, FrameBytes/BytesPerSample)
	if m.frequency > 0 {
		for i := range samples {
			v := m.amplitude * math.Sin(2*math.Pi*m.frequency*m.phase/float64(SampleRate))
			samples[i] = int16(v * 32767)
			m.phase++
			if m.phase >= float64(SampleRate) {
				m.phase = 0
			}
		}
	}
	return FromSamples(samples)
}

// Close stops the source. Subsequent Reads return io.EOF.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.ticker.Stop()
	return nil
}

// Ensure MockSource implements Source.
var _ Source = (*MockSource)(nil)
