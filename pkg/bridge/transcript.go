package bridge

import (
	"strings"
	"sync"
)

// TranscriptBuffer accumulates streaming transcript fragments until the
// turn completes. Safe for concurrent use.
type TranscriptBuffer struct {
	mu    sync.Mutex
	parts []string
}

// Append adds a fragment to the current turn.
func (b *TranscriptBuffer) Append(s string) {
	if s == "" {
		return
	}
	b.mu.Lock()
	b.parts = append(b.parts, s)
	b.mu.Unlock()
}

// Flush joins the accumulated fragments and resets the buffer.
func (b *TranscriptBuffer) Flush() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := strings.Join(b.parts, "")
	b.parts = b.parts[:0]
	return text
}

// Empty reports whether any fragments are buffered.
func (b *TranscriptBuffer) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.parts) == 0
}
