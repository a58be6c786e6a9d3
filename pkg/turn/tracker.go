// Package turn tracks conversation turn-taking state for a voice session.
//
// The tracker is driven solely by upstream control events (speech
// detection, response lifecycle), never by local audio timing. It assumes
// at most one active AI turn; overlapping turn events are a protocol
// violation and are logged, then the tracker self-heals by jumping to the
// state the event implies.
package turn

import (
	"log/slog"
	"sync"
)

// State is the current position in the conversation turn cycle.
type State int

const (
	// Idle: nobody is speaking, waiting for the user.
	Idle State = iota
	// Listening: the user is speaking.
	Listening
	// Processing: the user finished, waiting for the model.
	Processing
	// Speaking: the model's audio response is arriving.
	Speaking
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	case Speaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Tracker is the turn state machine. Safe for concurrent use.
type Tracker struct {
	logger *slog.Logger

	mu    sync.Mutex
	state State

	onChange func(from, to State)
}

// NewTracker creates a tracker in the Idle state.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger}
}

// OnChange registers a callback invoked after every state change, outside
// the tracker's lock. Set before the session starts.
func (t *Tracker) OnChange(fn func(from, to State)) {
	t.onChange = fn
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SpeechStarted handles a speech_started event: the user began talking.
func (t *Tracker) SpeechStarted() {
	t.transition(Idle, Listening, "speech_started")
}

// SpeechStopped handles a speech_stopped event: the user went quiet and
// the model is now working on a reply.
func (t *Tracker) SpeechStopped() {
	t.transition(Listening, Processing, "speech_stopped")
}

// ResponseAudio handles an audio delta. The first delta of a turn marks
// the Processing -> Speaking transition; later deltas are no-ops.
func (t *Tracker) ResponseAudio() {
	t.mu.Lock()
	if t.state == Speaking {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.transition(Processing, Speaking, "audio_delta")
}

// ResponseDone handles a response_done event: the turn is over.
func (t *Tracker) ResponseDone() {
	t.transition(Speaking, Idle, "response_done")
}

// Reset forces the tracker to Idle. Used on upstream error events and
// connection loss.
func (t *Tracker) Reset() {
	t.mu.Lock()
	from := t.state
	t.state = Idle
	t.mu.Unlock()

	if from != Idle && t.onChange != nil {
		t.onChange(from, Idle)
	}
}

func (t *Tracker) transition(expectedFrom, to State, event string) {
	t.mu.Lock()
	from := t.state
	if from != expectedFrom {
		t.logger.Warn("unexpected turn event for current state",
			"event", event,
			"state", from.String(),
			"forced_to", to.String(),
		)
	}
	t.state = to
	t.mu.Unlock()

	if from != to && t.onChange != nil {
		t.onChange(from, to)
	}
}
