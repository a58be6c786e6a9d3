// Package protocol defines the WebSocket message types exchanged between
// the bridge server and browser clients.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Server → Client messages
	TypeReady         MessageType = "ready"          // Session configured, start sending audio
	TypeSpeechStarted MessageType = "speech_started" // VAD detected the user talking
	TypeSpeechStopped MessageType = "speech_stopped" // VAD detected the user went quiet
	TypeTranscript    MessageType = "transcript"     // Finalized transcript line
	TypeAudioOutput   MessageType = "audio_output"   // PCM16 chunk of the model's reply
	TypeError         MessageType = "error"          // Session failure

	// Client → Server messages
	TypeAudioInput MessageType = "audio_input" // PCM16 chunk from the client mic
	TypeStop       MessageType = "stop"        // End the session
)

// Speaker labels for transcript messages
const (
	SpeakerUser = "user"
	SpeakerAI   = "ai"
)

// TranscriptData is the payload of a transcript message.
type TranscriptData struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Message is the wire format for all client-facing messages. The data
// field holds an object for transcript messages and a base64 string for
// audio messages.
type Message struct {
	Type   MessageType     `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`   // error kind
	Detail string          `json:"message,omitempty"` // error detail
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeAudio decodes the base64 audio payload of an audio message
func (m *Message) DecodeAudio() ([]byte, error) {
	if len(m.Data) == 0 {
		return nil, nil
	}
	var payload string
	if err := json.Unmarshal(m.Data, &payload); err != nil {
		return nil, fmt.Errorf("audio payload is not a string: %w", err)
	}
	if payload == "" {
		return nil, nil
	}
	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return pcm, nil
}

// Transcript decodes the payload of a transcript message
func (m *Message) Transcript() (TranscriptData, error) {
	var td TranscriptData
	if err := json.Unmarshal(m.Data, &td); err != nil {
		return TranscriptData{}, fmt.Errorf("decode transcript payload: %w", err)
	}
	return td, nil
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// NewReadyMessage signals that the upstream session is configured
func NewReadyMessage() *Message {
	return &Message{Type: TypeReady}
}

// NewSpeechStartedMessage relays a speech detection event
func NewSpeechStartedMessage() *Message {
	return &Message{Type: TypeSpeechStarted}
}

// NewSpeechStoppedMessage relays the end of detected speech
func NewSpeechStoppedMessage() *Message {
	return &Message{Type: TypeSpeechStopped}
}

// NewTranscriptMessage creates a finalized transcript line
func NewTranscriptMessage(speaker, text string) *Message {
	data, _ := json.Marshal(TranscriptData{Speaker: speaker, Text: text})
	return &Message{Type: TypeTranscript, Data: data}
}

// NewAudioOutputMessage wraps a PCM16 chunk of the model's reply
func NewAudioOutputMessage(pcm []byte) *Message {
	data, _ := json.Marshal(base64.StdEncoding.EncodeToString(pcm))
	return &Message{Type: TypeAudioOutput, Data: data}
}

// NewAudioInputMessage wraps a PCM16 chunk from the client mic
func NewAudioInputMessage(pcm []byte) *Message {
	data, _ := json.Marshal(base64.StdEncoding.EncodeToString(pcm))
	return &Message{Type: TypeAudioInput, Data: data}
}

// NewErrorMessage reports a session failure to the client
func NewErrorMessage(kind, detail string) *Message {
	return &Message{Type: TypeError, Error: kind, Detail: detail}
}

// NewStopMessage asks the server to end the session
func NewStopMessage() *Message {
	return &Message{Type: TypeStop}
}
