package realtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Event is a decoded server event from the realtime API. The concrete
// types below cover every event the bridge acts on; anything else decodes
// to Unknown so callers can skip it without special-casing wire names.
type Event interface {
	isEvent()
}

// SessionCreated confirms the session is ready for configuration.
type SessionCreated struct {
	ID string
}

// SpeechStarted reports that server-side VAD detected the user talking.
type SpeechStarted struct{}

// SpeechStopped reports that server-side VAD detected the user went quiet.
type SpeechStopped struct{}

// InputTranscript carries the completed transcription of the user's turn.
type InputTranscript struct {
	Text string
}

// TranscriptDelta is a streaming fragment of the model's spoken reply.
type TranscriptDelta struct {
	Text string
}

// TranscriptDone carries the full transcript of the model's reply.
type TranscriptDone struct {
	Text string
}

// AudioDelta is a decoded PCM16 chunk of the model's spoken reply.
type AudioDelta struct {
	Audio []byte
}

// ResponseDone marks the end of a model turn.
type ResponseDone struct{}

// ServerError is an error event reported by the API.
type ServerError struct {
	Code    string
	Message string
}

// Unknown is any event type the bridge does not act on.
type Unknown struct {
	Type string
}

func (SessionCreated) isEvent()  {}
func (SpeechStarted) isEvent()   {}
func (SpeechStopped) isEvent()   {}
func (InputTranscript) isEvent() {}
func (TranscriptDelta) isEvent() {}
func (TranscriptDone) isEvent()  {}
func (AudioDelta) isEvent()      {}
func (ResponseDone) isEvent()    {}
func (ServerError) isEvent()     {}
func (Unknown) isEvent()         {}

func (e ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime api error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("realtime api error: %s", e.Message)
}

// wireEvent is the superset of fields across the server events we decode.
type wireEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta"`
	Transcript string `json:"transcript"`
	Session    struct {
		ID string `json:"id"`
	} `json:"session"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseEvent decodes one server message. Unrecognized types return Unknown;
// malformed JSON or undecodable audio payloads return an error.
func ParseEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode server event: %w", err)
	}

	switch w.Type {
	case "session.created":
		return SessionCreated{ID: w.Session.ID}, nil
	case "input_audio_buffer.speech_started":
		return SpeechStarted{}, nil
	case "input_audio_buffer.speech_stopped":
		return SpeechStopped{}, nil
	case "conversation.item.input_audio_transcription.completed":
		return InputTranscript{Text: w.Transcript}, nil
	case "response.audio_transcript.delta":
		return TranscriptDelta{Text: w.Delta}, nil
	case "response.audio_transcript.done":
		return TranscriptDone{Text: w.Transcript}, nil
	case "response.audio.delta":
		pcm, err := base64.StdEncoding.DecodeString(w.Delta)
		if err != nil {
			return nil, fmt.Errorf("decode audio delta: %w", err)
		}
		return AudioDelta{Audio: pcm}, nil
	case "response.done", "response.completed":
		return ResponseDone{}, nil
	case "error", "response.error":
		return ServerError{Code: w.Error.Code, Message: w.Error.Message}, nil
	default:
		return Unknown{Type: w.Type}, nil
	}
}
