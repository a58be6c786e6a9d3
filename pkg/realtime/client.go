// Package realtime provides a WebSocket client for the Azure OpenAI
// Realtime API for low-latency speech-to-speech conversations.
package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 120 * time.Second
	writeTimeout     = 10 * time.Second
	pingInterval     = 30 * time.Second

	// eventBuffer absorbs bursts of audio deltas between reads.
	eventBuffer = 64
)

// Config holds the connection parameters for one realtime session.
type Config struct {
	// Endpoint is the Azure resource endpoint, e.g.
	// https://myresource.openai.azure.com.
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

// SessionOptions configure the model's behavior for the session.
type SessionOptions struct {
	Instructions string
	Voice        string

	// VADMode selects turn detection: "semantic" or "server".
	VADMode         string
	VADThreshold    float64
	SilenceDuration time.Duration
	PrefixPadding   time.Duration
}

// Client manages the WebSocket connection to the realtime API. Decoded
// server events are delivered on the Events channel; the channel closes
// when the connection drops or Close is called.
type Client struct {
	cfg    Config
	logger *slog.Logger

	ws   *websocket.Conn
	wsMu sync.Mutex

	events chan Event

	closeOnce sync.Once
	closed    chan struct{}

	errMu   sync.Mutex
	readErr error
}

// NewClient creates a client. Call Connect before any other method.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		events: make(chan Event, eventBuffer),
		closed: make(chan struct{}),
	}
}

// wsURL converts the resource endpoint to the realtime WebSocket URL.
func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	u.Path = "/openai/realtime"
	q := url.Values{}
	q.Set("api-version", c.cfg.APIVersion)
	q.Set("deployment", c.cfg.Deployment)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the realtime endpoint and starts the read and keepalive
// loops.
func (c *Client) Connect(ctx context.Context) error {
	wsURL, err := c.wsURL()
	if err != nil {
		return err
	}

	header := make(map[string][]string)
	header["api-key"] = []string{c.cfg.APIKey}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("connect to realtime API: %w", err)
	}
	c.ws = conn

	c.ws.SetPingHandler(func(appData string) error {
		c.wsMu.Lock()
		defer c.wsMu.Unlock()
		return c.ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
	})

	c.logger.Info("connected to realtime API", "deployment", c.cfg.Deployment)

	go c.readPump()
	go c.keepAlive()

	return nil
}

// Events returns the channel of decoded server events. The channel is
// closed when the read loop exits.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err reports why the read loop exited, nil for a clean close.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

func (c *Client) readPump() {
	defer close(c.events)

	for {
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				c.errMu.Lock()
				c.readErr = fmt.Errorf("realtime read: %w", err)
				c.errMu.Unlock()
			}
			return
		}

		ev, err := ParseEvent(message)
		if err != nil {
			c.logger.Warn("skipping undecodable server event", "error", err)
			continue
		}

		select {
		case c.events <- ev:
		case <-c.closed:
			return
		}
	}
}

func (c *Client) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.wsMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.wsMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// ConfigureSession sends the session.update that selects audio formats,
// voice, instructions, and turn detection.
func (c *Client) ConfigureSession(opts SessionOptions) error {
	voice := opts.Voice
	if voice == "" {
		voice = "alloy"
	}

	var turnDetection map[string]interface{}
	if opts.VADMode == "semantic" {
		turnDetection = map[string]interface{}{
			"type": "semantic_vad",
		}
	} else {
		turnDetection = map[string]interface{}{
			"type":                "server_vad",
			"threshold":           opts.VADThreshold,
			"prefix_padding_ms":   opts.PrefixPadding.Milliseconds(),
			"silence_duration_ms": opts.SilenceDuration.Milliseconds(),
		}
	}

	msg := map[string]interface{}{
		"type": "session.update",
		"session": map[string]interface{}{
			"modalities":          []string{"text", "audio"},
			"instructions":        opts.Instructions,
			"voice":               voice,
			"input_audio_format":  "pcm16",
			"output_audio_format": "pcm16",
			"input_audio_transcription": map[string]interface{}{
				"model": "whisper-1",
			},
			"turn_detection": turnDetection,
		},
	}

	return c.sendJSON(msg)
}

// SendAudio forwards a PCM16 chunk to the model's input buffer.
func (c *Client) SendAudio(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	msg := map[string]interface{}{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(pcm),
	}
	return c.sendJSON(msg)
}

// CommitAudio commits the input buffer, forcing the model to treat the
// buffered audio as a finished utterance.
func (c *Client) CommitAudio() error {
	return c.sendJSON(map[string]string{"type": "input_audio_buffer.commit"})
}

// ClearAudio discards any uncommitted input audio.
func (c *Client) ClearAudio() error {
	return c.sendJSON(map[string]string{"type": "input_audio_buffer.clear"})
}

// CancelResponse interrupts the model's current reply.
func (c *Client) CancelResponse() error {
	return c.sendJSON(map[string]string{"type": "response.cancel"})
}

// Close shuts the connection down. Safe to call more than once and
// concurrently with the read loop.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.ws != nil {
			c.wsMu.Lock()
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			c.wsMu.Unlock()
			c.ws.Close()
		}
	})
	return nil
}

func (c *Client) sendJSON(v interface{}) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.ws == nil {
		return fmt.Errorf("not connected")
	}
	select {
	case <-c.closed:
		return fmt.Errorf("connection closed")
	default:
	}

	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}
