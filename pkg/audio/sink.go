package audio

import (
	"io"
	"sync"
	"time"
)

// Sink is a blocking destination for fixed-size PCM16 frames. Writes pace
// the playback loop: the sink's own buffering is the realtime clock, so
// Write must not return before the frame has been accepted by the device.
type Sink interface {
	// Write plays one frame. Frames are FrameBytes() long except for the
	// final partial frame of a chunk.
	Write(frame Chunk) error

	// FrameBytes returns the fixed frame size this sink expects.
	FrameBytes() int

	// Close releases the device. After Close, Write returns an error.
	io.Closer
}

// WriteRecord captures a single sink write for inspection in tests.
type WriteRecord struct {
	Frame    Chunk
	Silence  bool
	At       time.Time
	Speaking bool
}

// MockSink records every write without touching hardware.
type MockSink struct {
	mu      sync.Mutex
	records []WriteRecord
	closed  bool

	// OnWrite, if set, is called synchronously inside Write before the
	// frame is recorded. Used to observe engine state mid-write.
	OnWrite func(frame Chunk) (speaking bool)

	// WriteErr, if set, is returned by every Write call.
	WriteErr error

	// Delay simulates the blocking time of a device write.
	Delay time.Duration
}

// NewMockSink creates a recording sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Write records the frame.
func (m *MockSink) Write(frame Chunk) error {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}

	rec := WriteRecord{
		Frame:   append(Chunk(nil), frame...),
		Silence: isSilence(frame),
		At:      time.Now(),
	}
	if m.OnWrite != nil {
		rec.Speaking = m.OnWrite(frame)
	}
	m.records = append(m.records, rec)
	return nil
}

// FrameBytes returns the standard frame size.
func (m *MockSink) FrameBytes() int {
	return FrameBytes
}

// Close marks the sink closed.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Records returns a copy of all writes so far.
func (m *MockSink) Records() []WriteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WriteRecord, len(m.records))
	copy(out, m.records)
	return out
}

// WriteCount returns the total number of writes so far.
func (m *MockSink) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// RealFrames returns only the non-silence frames, in write order.
func (m *MockSink) RealFrames() []Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Chunk
	for _, r := range m.records {
		if !r.Silence {
			out = append(out, r.Frame)
		}
	}
	return out
}

func isSilence(frame Chunk) bool {
	for _, b := range frame {
		if b != 0 {
			return false
		}
	}
	return true
}

// Ensure MockSink implements Sink.
var _ Sink = (*MockSink)(nil)
