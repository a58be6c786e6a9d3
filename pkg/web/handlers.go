package web

import (
	"context"

	"github.com/gofiber/contrib/websocket"

	"github.com/voicebridge/voicebridge/internal/config"
	"github.com/voicebridge/voicebridge/pkg/bridge"
	"github.com/voicebridge/voicebridge/pkg/hub"
	"github.com/voicebridge/voicebridge/pkg/protocol"
	"github.com/voicebridge/voicebridge/pkg/realtime"
	"github.com/voicebridge/voicebridge/pkg/turn"
)

// handleRelay runs one full voice session per connection: it dials the
// upstream model, relays its events back to the browser, and forwards the
// browser's mic audio upstream. The connection, the upstream socket, and
// the session live and die together.
func (s *Server) handleRelay(c *websocket.Conn) {
	s.activeSessions.Add(1)
	defer s.activeSessions.Add(-1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := realtime.NewClient(realtime.Config{
		Endpoint:   s.cfg.Endpoint,
		APIKey:     s.cfg.APIKey,
		Deployment: s.cfg.Deployment,
		APIVersion: s.cfg.APIVersion,
	}, s.logger)

	em := &wsEmitter{conn: c, logger: s.logger, monitor: s.monitor}

	if err := client.Connect(ctx); err != nil {
		s.logger.Error("upstream connect failed", "error", err)
		em.Error("upstream_connect_failed", err.Error())
		return
	}

	sess := bridge.NewSession(client, nil, em, SessionOptions(s.cfg), s.logger)
	em.bind(sess.ID)
	sess.Tracker().OnChange(func(from, to turn.State) {
		s.monitor.Publish(hub.NewTurnStateEvent(sess.ID, from.String(), to.String()))
	})
	s.monitor.Publish(hub.NewSessionEvent(hub.EventSessionStarted, sess.ID))
	defer s.monitor.Publish(hub.NewSessionEvent(hub.EventSessionEnded, sess.ID))

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(ctx)
		// Unblock the read loop if the session ended first.
		c.Close()
	}()

	s.readClient(c, sess)

	sess.Stop()
	<-done
}

// readClient consumes browser messages until the socket closes or the
// client asks to stop.
func (s *Server) readClient(c *websocket.Conn, sess *bridge.Session) {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			s.logger.Warn("unparseable client message", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeAudioInput:
			pcm, err := msg.DecodeAudio()
			if err != nil {
				s.logger.Warn("bad audio payload from client", "error", err)
				continue
			}
			if len(pcm) == 0 {
				continue
			}
			if err := sess.SendAudio(pcm); err != nil {
				s.logger.Warn("forward client audio", "error", err)
				return
			}

		case protocol.TypeStop:
			return

		default:
			s.logger.Debug("ignoring client message", "type", msg.Type)
		}
	}
}

// SessionOptions maps the bridge configuration onto upstream session
// options.
func SessionOptions(cfg config.Config) realtime.SessionOptions {
	return realtime.SessionOptions{
		Instructions:    cfg.Instructions,
		Voice:           cfg.Voice,
		VADMode:         string(cfg.VAD.Mode),
		VADThreshold:    cfg.VAD.Threshold,
		SilenceDuration: cfg.VAD.SilenceDuration,
		PrefixPadding:   cfg.VAD.PrefixPadding,
	}
}
