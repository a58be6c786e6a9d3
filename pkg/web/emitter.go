package web

import (
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/voicebridge/voicebridge/pkg/hub"
	"github.com/voicebridge/voicebridge/pkg/protocol"
)

// wsEmitter delivers session output to one browser connection and mirrors
// transcripts and errors to the monitor hub. Writes are serialized; the
// session's event loop and teardown may emit concurrently.
type wsEmitter struct {
	conn    *websocket.Conn
	logger  *slog.Logger
	monitor *hub.Hub

	mu        sync.Mutex
	sessionID string
}

func (e *wsEmitter) bind(sessionID string) {
	e.mu.Lock()
	e.sessionID = sessionID
	e.mu.Unlock()
}

func (e *wsEmitter) write(m *protocol.Message) {
	data, err := m.Bytes()
	if err != nil {
		e.logger.Error("encode client message", "error", err)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		e.logger.Debug("client write failed", "type", m.Type, "error", err)
	}
}

func (e *wsEmitter) id() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

func (e *wsEmitter) Ready() {
	e.write(protocol.NewReadyMessage())
}

func (e *wsEmitter) SpeechStarted() {
	e.write(protocol.NewSpeechStartedMessage())
}

func (e *wsEmitter) SpeechStopped() {
	e.write(protocol.NewSpeechStoppedMessage())
}

func (e *wsEmitter) Transcript(speaker, text string) {
	e.write(protocol.NewTranscriptMessage(speaker, text))
	if e.monitor != nil {
		e.monitor.Publish(hub.NewTranscriptEvent(e.id(), speaker, text))
	}
}

func (e *wsEmitter) Audio(pcm []byte) {
	e.write(protocol.NewAudioOutputMessage(pcm))
}

func (e *wsEmitter) Error(kind, detail string) {
	e.write(protocol.NewErrorMessage(kind, detail))
	if e.monitor != nil {
		e.monitor.Publish(hub.NewErrorEvent(e.id(), kind+": "+detail))
	}
}
