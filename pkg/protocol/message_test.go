package protocol

import (
	"encoding/json"
	"testing"
)

func TestTranscriptMessage(t *testing.T) {
	msg := NewTranscriptMessage(SpeakerUser, "hello there")

	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	// Transcript payloads ride inside a nested data object.
	var raw struct {
		Type string `json:"type"`
		Data struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if raw.Type != string(TypeTranscript) {
		t.Errorf("type = %v, want %v", raw.Type, TypeTranscript)
	}
	if raw.Data.Speaker != SpeakerUser {
		t.Errorf("data.speaker = %q, want %q", raw.Data.Speaker, SpeakerUser)
	}
	if raw.Data.Text != "hello there" {
		t.Errorf("data.text = %q, want %q", raw.Data.Text, "hello there")
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	td, err := parsed.Transcript()
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if td.Speaker != SpeakerUser || td.Text != "hello there" {
		t.Errorf("Transcript() = %+v", td)
	}
}

func TestAudioMessageRoundTrip(t *testing.T) {
	pcm := make([]byte, 960)
	for i := range pcm {
		pcm[i] = byte(i % 256)
	}

	msg := NewAudioOutputMessage(pcm)
	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeAudioOutput {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeAudioOutput)
	}

	decoded, err := parsed.DecodeAudio()
	if err != nil {
		t.Fatalf("DecodeAudio() error = %v", err)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(pcm))
	}
	for i := range pcm {
		if decoded[i] != pcm[i] {
			t.Fatalf("byte %d = %d, want %d", i, decoded[i], pcm[i])
		}
	}
}

func TestDecodeAudio_Invalid(t *testing.T) {
	msg := &Message{Type: TypeAudioInput, Data: json.RawMessage(`"!!!not-base64!!!"`)}
	if _, err := msg.DecodeAudio(); err == nil {
		t.Error("expected error for invalid base64 payload")
	}

	notString := &Message{Type: TypeAudioInput, Data: json.RawMessage(`{"x":1}`)}
	if _, err := notString.DecodeAudio(); err == nil {
		t.Error("expected error for non-string audio payload")
	}

	empty := &Message{Type: TypeAudioInput}
	pcm, err := empty.DecodeAudio()
	if err != nil {
		t.Errorf("DecodeAudio on empty payload = %v, want nil", err)
	}
	if pcm != nil {
		t.Errorf("DecodeAudio on empty payload returned %d bytes", len(pcm))
	}
}

func TestErrorMessage(t *testing.T) {
	msg := NewErrorMessage("upstream_closed", "connection reset")

	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	// The error detail rides on the "message" key on the wire.
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if raw["error"] != "upstream_closed" {
		t.Errorf("error field = %v, want upstream_closed", raw["error"])
	}
	if raw["message"] != "connection reset" {
		t.Errorf("message field = %v, want %q", raw["message"], "connection reset")
	}
}

func TestControlMessages(t *testing.T) {
	tests := []struct {
		msg  *Message
		want MessageType
	}{
		{NewReadyMessage(), TypeReady},
		{NewSpeechStartedMessage(), TypeSpeechStarted},
		{NewSpeechStoppedMessage(), TypeSpeechStopped},
		{NewStopMessage(), TypeStop},
	}

	for _, tt := range tests {
		data, err := tt.msg.Bytes()
		if err != nil {
			t.Fatalf("Bytes() error = %v", err)
		}
		parsed, err := ParseMessage(data)
		if err != nil {
			t.Fatalf("ParseMessage() error = %v", err)
		}
		if parsed.Type != tt.want {
			t.Errorf("Type = %v, want %v", parsed.Type, tt.want)
		}

		// Control messages carry no payload fields on the wire.
		var raw map[string]interface{}
		json.Unmarshal(data, &raw)
		if len(raw) != 1 {
			t.Errorf("%v message has %d fields, want 1: %v", tt.want, len(raw), raw)
		}
	}
}

func TestParseInvalidMessage(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}

	msg, err := ParseMessage([]byte("{}"))
	if err != nil {
		t.Fatalf("ParseMessage({}) error = %v", err)
	}
	if msg.Type != "" {
		t.Errorf("Type = %v, want empty", msg.Type)
	}
}
