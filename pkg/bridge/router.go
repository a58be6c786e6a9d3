package bridge

import (
	"log/slog"

	"github.com/voicebridge/voicebridge/pkg/audio"
	"github.com/voicebridge/voicebridge/pkg/protocol"
	"github.com/voicebridge/voicebridge/pkg/realtime"
	"github.com/voicebridge/voicebridge/pkg/turn"
)

// Emitter delivers session output to the user-facing side: a WebSocket
// client, a console, or a test double. Implementations must tolerate
// concurrent calls.
type Emitter interface {
	Ready()
	SpeechStarted()
	SpeechStopped()
	Transcript(speaker, text string)
	Audio(pcm []byte)
	Error(kind, detail string)
}

// Router demultiplexes decoded upstream events: audio chunks go to the
// playback engine and emitter, turn events drive the tracker and are
// relayed, transcript fragments are buffered until the turn completes.
type Router struct {
	engine  *audio.Engine
	tracker *turn.Tracker
	emitter Emitter
	logger  *slog.Logger

	reply TranscriptBuffer
}

// NewRouter creates a router. engine may be nil when playback happens on
// the client side.
func NewRouter(engine *audio.Engine, tracker *turn.Tracker, emitter Emitter, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		engine:  engine,
		tracker: tracker,
		emitter: emitter,
		logger:  logger,
	}
}

// HandleEvent processes one upstream event. Unrecognized events are
// skipped; errors reported by the API are relayed but do not end the
// session.
func (r *Router) HandleEvent(ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.SessionCreated:
		r.logger.Debug("upstream session created", "session_id", e.ID)

	case realtime.SpeechStarted:
		r.tracker.SpeechStarted()
		r.emitter.SpeechStarted()

	case realtime.SpeechStopped:
		r.tracker.SpeechStopped()
		r.emitter.SpeechStopped()

	case realtime.InputTranscript:
		if e.Text != "" {
			r.emitter.Transcript(protocol.SpeakerUser, e.Text)
		}

	case realtime.TranscriptDelta:
		r.reply.Append(e.Text)

	case realtime.TranscriptDone:
		text := e.Text
		buffered := r.reply.Flush()
		if text == "" {
			text = buffered
		}
		if text != "" {
			r.emitter.Transcript(protocol.SpeakerAI, text)
		}

	case realtime.AudioDelta:
		if len(e.Audio) == 0 {
			return
		}
		r.tracker.ResponseAudio()
		if r.engine != nil {
			// Enqueue never blocks; the engine logs drops itself.
			r.engine.Enqueue(e.Audio)
		}
		r.emitter.Audio(e.Audio)

	case realtime.ResponseDone:
		// Safety net for turns that never delivered a transcript.done.
		if leftover := r.reply.Flush(); leftover != "" {
			r.emitter.Transcript(protocol.SpeakerAI, leftover)
		}
		r.tracker.ResponseDone()

	case realtime.ServerError:
		r.logger.Error("upstream error event", "code", e.Code, "message", e.Message)
		r.emitter.Error("upstream_error", e.Message)
		r.tracker.Reset()

	case realtime.Unknown:
		r.logger.Debug("skipping upstream event", "type", e.Type)
	}
}
