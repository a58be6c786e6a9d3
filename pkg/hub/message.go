// Package hub provides a thread-safe websocket broadcast hub for session
// monitoring, using the channel-based fan-out pattern.
package hub

import (
	"encoding/json"
	"time"
)

// Event is a monitor update broadcast to every connected observer.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"ts"` // Unix milliseconds

	// Turn state changes
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Transcript lines
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text,omitempty"`

	// Errors
	Error string `json:"error,omitempty"`
}

// Event types published by running sessions.
const (
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
	EventTurnState      = "turn_state"
	EventTranscript     = "transcript"
	EventError          = "error"
)

// NewTurnStateEvent records a turn state change.
func NewTurnStateEvent(sessionID, from, to string) Event {
	return Event{
		Type:      EventTurnState,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
		From:      from,
		To:        to,
	}
}

// NewTranscriptEvent records a finalized transcript line.
func NewTranscriptEvent(sessionID, speaker, text string) Event {
	return Event{
		Type:      EventTranscript,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
		Speaker:   speaker,
		Text:      text,
	}
}

// NewSessionEvent records a session starting or ending.
func NewSessionEvent(eventType, sessionID string) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewErrorEvent records a session failure.
func NewErrorEvent(sessionID, errText string) Event {
	return Event{
		Type:      EventError,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
		Error:     errText,
	}
}

// Encode returns the JSON wire form of the event.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
