package audio

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func startEngine(t *testing.T, sink Sink, cfg EngineConfig) (*Engine, chan error) {
	t.Helper()
	eng := NewEngine(sink, cfg, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- eng.Run() }()
	return eng, errCh
}

func shutdownEngine(t *testing.T, eng *Engine, errCh chan error) {
	t.Helper()
	if err := eng.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after shutdown")
	}
}

func chunkOf(b byte, n int) Chunk {
	c := make(Chunk, n)
	for i := range c {
		c[i] = b
	}
	return c
}

func TestEngine_FIFOOrder(t *testing.T) {
	sink := NewMockSink()
	eng, errCh := startEngine(t, sink, DefaultEngineConfig())

	chunks := []Chunk{
		chunkOf(1, 100),
		chunkOf(2, 50),
		chunkOf(3, 200),
		chunkOf(4, 10),
	}
	for _, c := range chunks {
		if !eng.Enqueue(c) {
			t.Fatalf("Enqueue rejected chunk")
		}
	}

	// Let the loop drain everything.
	time.Sleep(100 * time.Millisecond)
	shutdownEngine(t, eng, errCh)

	real := sink.RealFrames()
	if len(real) != len(chunks) {
		t.Fatalf("got %d real frames, want %d", len(real), len(chunks))
	}
	for i, c := range chunks {
		if !bytes.Equal(real[i], c) {
			t.Errorf("frame %d out of order: got first byte %d, want %d", i, real[i][0], c[0])
		}
	}
}

func TestEngine_SilenceWhenIdle(t *testing.T) {
	sink := NewMockSink()
	eng, errCh := startEngine(t, sink, DefaultEngineConfig())

	// No chunks enqueued: every iteration must still write.
	time.Sleep(100 * time.Millisecond)
	shutdownEngine(t, eng, errCh)

	stats := eng.Stats()
	if stats.Writes < 5 {
		t.Errorf("expected at least 5 writes in 100ms, got %d", stats.Writes)
	}
	if stats.RealWrites != 0 {
		t.Errorf("expected 0 real writes, got %d", stats.RealWrites)
	}
	for i, r := range sink.Records() {
		if !r.Silence {
			t.Errorf("write %d was not silence", i)
		}
		if len(r.Frame) != sink.FrameBytes() {
			t.Errorf("silence frame %d has %d bytes, want %d", i, len(r.Frame), sink.FrameBytes())
		}
	}
}

func TestEngine_SpeakingTracksWrites(t *testing.T) {
	sink := NewMockSink()
	eng := NewEngine(sink, DefaultEngineConfig(), nil)

	// Snapshot the speaking flag inside each blocking write.
	sink.OnWrite = func(frame Chunk) bool {
		return eng.Speaking()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- eng.Run() }()

	eng.Enqueue(chunkOf(7, 100))
	time.Sleep(60 * time.Millisecond)
	shutdownEngine(t, eng, errCh)

	for i, r := range sink.Records() {
		if r.Silence && r.Speaking {
			t.Errorf("write %d: speaking=true during silence write", i)
		}
		if !r.Silence && !r.Speaking {
			t.Errorf("write %d: speaking=false during real-chunk write", i)
		}
	}
	if eng.Speaking() {
		t.Error("speaking should be false after shutdown")
	}
}

func TestEngine_NoSilenceBetweenCloseChunks(t *testing.T) {
	// A (100 bytes) then B (50 bytes) with a 5ms gap under a 10ms dequeue
	// timeout: B must play immediately after A with no silence between.
	sink := NewMockSink()
	eng, errCh := startEngine(t, sink, DefaultEngineConfig())

	a := chunkOf(0xAA, 100)
	b := chunkOf(0xBB, 50)

	eng.Enqueue(a)
	time.Sleep(5 * time.Millisecond)
	eng.Enqueue(b)

	time.Sleep(50 * time.Millisecond)
	shutdownEngine(t, eng, errCh)

	records := sink.Records()
	idxA, idxB := -1, -1
	for i, r := range records {
		if r.Silence {
			continue
		}
		switch r.Frame[0] {
		case 0xAA:
			idxA = i
		case 0xBB:
			idxB = i
		}
	}
	if idxA < 0 || idxB < 0 {
		t.Fatalf("missing writes: idxA=%d idxB=%d", idxA, idxB)
	}
	if idxB != idxA+1 {
		t.Errorf("silence interleaved between A and B: idxA=%d idxB=%d", idxA, idxB)
	}
}

func TestEngine_OverflowDropsNewest(t *testing.T) {
	sink := NewMockSink()
	cfg := DefaultEngineConfig()
	cfg.QueueSize = 4

	// Fill the queue before the loop starts draining it.
	eng := NewEngine(sink, cfg, nil)
	for i := 0; i < cfg.QueueSize; i++ {
		if !eng.Enqueue(chunkOf(byte(i+1), 20)) {
			t.Fatalf("Enqueue %d rejected below capacity", i)
		}
	}

	// (N+1)-th chunk must be dropped, not block or corrupt.
	if eng.Enqueue(chunkOf(0xFF, 20)) {
		t.Error("Enqueue succeeded on a full queue, want drop")
	}
	if got := eng.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- eng.Run() }()
	time.Sleep(60 * time.Millisecond)
	shutdownEngine(t, eng, errCh)

	real := sink.RealFrames()
	if len(real) != cfg.QueueSize {
		t.Fatalf("got %d real frames, want %d", len(real), cfg.QueueSize)
	}
	for i, frame := range real {
		if frame[0] != byte(i+1) {
			t.Errorf("frame %d: first byte = %d, want %d", i, frame[0], i+1)
		}
		if frame[0] == 0xFF {
			t.Error("dropped chunk was played")
		}
	}
}

func TestEngine_ShutdownStopsWrites(t *testing.T) {
	sink := NewMockSink()
	eng, errCh := startEngine(t, sink, DefaultEngineConfig())

	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	if err := eng.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("shutdown took %v, want well under 100ms", elapsed)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after sentinel")
	}

	count := sink.WriteCount()
	time.Sleep(50 * time.Millisecond)
	if after := sink.WriteCount(); after != count {
		t.Errorf("writes continued after shutdown: %d -> %d", count, after)
	}

	// Shutdown is idempotent.
	if err := eng.Shutdown(time.Second); err != nil {
		t.Errorf("second Shutdown failed: %v", err)
	}
}

func TestEngine_SinkErrorIsFatal(t *testing.T) {
	sink := NewMockSink()
	sinkErr := errors.New("device gone")
	sink.WriteErr = sinkErr

	eng := NewEngine(sink, DefaultEngineConfig(), nil)
	errCh := make(chan error, 1)
	go func() { errCh <- eng.Run() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, sinkErr) {
			t.Fatalf("Run error = %v, want %v", err, sinkErr)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not exit on sink error")
	}

	if !errors.Is(eng.Err(), sinkErr) {
		t.Errorf("Err() = %v, want %v", eng.Err(), sinkErr)
	}

	// Shutdown after failure must not hang.
	if err := eng.Shutdown(100 * time.Millisecond); err != nil {
		t.Errorf("Shutdown after failure = %v, want nil", err)
	}
}

func TestEngine_EnqueueEmptyChunk(t *testing.T) {
	sink := NewMockSink()
	eng, errCh := startEngine(t, sink, DefaultEngineConfig())

	if !eng.Enqueue(nil) {
		t.Error("Enqueue(nil) should be a no-op, not a drop")
	}
	if !eng.Enqueue(Chunk{}) {
		t.Error("Enqueue(empty) should be a no-op, not a drop")
	}

	time.Sleep(30 * time.Millisecond)
	shutdownEngine(t, eng, errCh)

	if real := sink.RealFrames(); len(real) != 0 {
		t.Errorf("empty chunks produced %d real writes", len(real))
	}
}
