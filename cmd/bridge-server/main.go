// bridge-server: WebSocket relay between browser clients and the Azure
// OpenAI Realtime API. Browsers capture and play audio; the server owns
// the upstream connection, turn tracking, and transcripts.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicebridge/voicebridge/internal/config"
	"github.com/voicebridge/voicebridge/internal/log"
	"github.com/voicebridge/voicebridge/pkg/web"
)

var version = "1.0.0"

func main() {
	host := flag.String("host", "", "listen host (overrides VOICE_SERVER_HOST)")
	port := flag.String("port", "", "listen port (overrides VOICE_SERVER_PORT)")
	flag.Parse()

	cfg := config.Load()
	if *host != "" {
		cfg.Host = *host
	}
	if *port != "" {
		cfg.Port = *port
	}

	log.Init(cfg.LogLevel)
	logger := log.L().With("component", "bridge-server")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting voicebridge server",
		"version", version,
		"deployment", cfg.Deployment,
		"vad_mode", cfg.VAD.Mode,
	)

	srv := web.NewServer(cfg, logger)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errc:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("goodbye")
}
