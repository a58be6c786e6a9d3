// talk: local voice conversation in the terminal. Captures the default
// microphone, streams it to the Azure OpenAI Realtime API, and plays the
// model's reply through the speaker while printing both transcripts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voicebridge/voicebridge/internal/config"
	"github.com/voicebridge/voicebridge/internal/log"
	"github.com/voicebridge/voicebridge/pkg/audio"
	"github.com/voicebridge/voicebridge/pkg/bridge"
	"github.com/voicebridge/voicebridge/pkg/protocol"
	"github.com/voicebridge/voicebridge/pkg/realtime"
	"github.com/voicebridge/voicebridge/pkg/web"
)

// consoleEmitter prints session output to the terminal. Audio is a no-op
// because the playback engine drives the speaker directly.
type consoleEmitter struct{}

func (consoleEmitter) Ready() {
	fmt.Println("Connected. Speak when ready, Ctrl+C to quit.")
	fmt.Println()
}

func (consoleEmitter) SpeechStarted() {
	fmt.Println("[listening]")
}

func (consoleEmitter) SpeechStopped() {
	fmt.Println("[thinking]")
}

func (consoleEmitter) Transcript(speaker, text string) {
	switch speaker {
	case protocol.SpeakerUser:
		fmt.Printf("You: %s\n", text)
	default:
		fmt.Printf("AI:  %s\n", text)
	}
}

func (consoleEmitter) Audio(pcm []byte) {}

func (consoleEmitter) Error(kind, detail string) {
	fmt.Fprintf(os.Stderr, "error (%s): %s\n", kind, detail)
}

func main() {
	voice := flag.String("voice", "", "voice name (overrides AZURE_OPENAI_VOICE)")
	vadMode := flag.String("vad", "", "turn detection: semantic or server (overrides VAD_MODE)")
	deviceRate := flag.Int("device-rate", 0, "speaker sample rate when the device cannot play 24kHz")
	volume := flag.Int("volume", 0, "playback volume 1-100")
	flag.Parse()

	cfg := config.Load()
	if *voice != "" {
		cfg.Voice = *voice
	}
	if *vadMode != "" {
		cfg.VAD.Mode = config.VADMode(*vadMode)
	}

	log.Init(cfg.LogLevel)
	logger := log.L().With("component", "talk")

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "talk: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger, *deviceRate, *volume); err != nil {
		fmt.Fprintf(os.Stderr, "talk: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, deviceRate, volume int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sinkOpts []audio.FFPlayOption
	if deviceRate > 0 {
		sinkOpts = append(sinkOpts, audio.WithDeviceRate(deviceRate))
	}
	if volume > 0 {
		sinkOpts = append(sinkOpts, audio.WithVolume(volume))
	}

	sink, err := audio.NewFFPlaySink(logger, sinkOpts...)
	if err != nil {
		return err
	}
	defer sink.Close()

	mic, err := audio.NewFFmpegSource(logger)
	if err != nil {
		return err
	}
	defer mic.Close()

	engine := audio.NewEngine(sink, audio.DefaultEngineConfig(), logger)

	client := realtime.NewClient(realtime.Config{
		Endpoint:   cfg.Endpoint,
		APIKey:     cfg.APIKey,
		Deployment: cfg.Deployment,
		APIVersion: cfg.APIVersion,
	}, logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}

	sess := bridge.NewSession(client, engine, consoleEmitter{}, web.SessionOptions(cfg), logger)
	forwarder := bridge.NewForwarder(mic, sess, logger)

	sessionDone := make(chan error, 1)
	go func() { sessionDone <- sess.Run(ctx) }()

	fwdDone := make(chan error, 1)
	go func() { fwdDone <- forwarder.Run(ctx) }()

	var runErr error
	sessionJoined := false
	select {
	case <-ctx.Done():
		fmt.Println("\nhanging up")
	case err := <-sessionDone:
		runErr, sessionJoined = err, true
	case err := <-fwdDone:
		runErr = err
	}

	// Stop capture first so no audio arrives after teardown begins.
	mic.Close()
	sess.Stop()
	if !sessionJoined {
		if err := <-sessionDone; runErr == nil {
			runErr = err
		}
	}
	return runErr
}
