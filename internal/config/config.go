// Package config loads voicebridge configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// VADMode selects how the upstream model detects end of speech.
// The two modes are mutually exclusive.
type VADMode string

const (
	// VADSemantic is context-aware turn detection with no fixed
	// silence threshold. It tolerates natural pauses and filler words.
	VADSemantic VADMode = "semantic"

	// VADServer is threshold-based turn detection: a response is
	// triggered after a fixed silence duration.
	VADServer VADMode = "server"
)

// Defaults applied when the corresponding env var is unset.
const (
	DefaultDeployment = "gpt-realtime"
	DefaultAPIVersion = "2025-04-01-preview"
	DefaultVoice      = "alloy"
	DefaultHost       = "0.0.0.0"
	DefaultPort       = "8765"
)

// VADConfig holds turn-detection parameters.
// Threshold, SilenceDuration and PrefixPadding only apply in VADServer mode.
type VADConfig struct {
	Mode            VADMode
	Threshold       float64       // speech sensitivity, 0.0-1.0
	SilenceDuration time.Duration // silence before the turn ends
	PrefixPadding   time.Duration // audio kept from before speech start
}

// Config is the full bridge configuration. It is immutable after Load;
// components receive it (or a sub-struct) at construction.
type Config struct {
	// Upstream endpoint
	Endpoint   string // AZURE_OPENAI_ENDPOINT
	APIKey     string // AZURE_OPENAI_API_KEY
	Deployment string // AZURE_OPENAI_DEPLOYMENT
	APIVersion string // AZURE_OPENAI_API_VERSION
	Region     string // AZURE_OPENAI_REGION (WebRTC token endpoint only)

	// Session behaviour
	Voice        string // AZURE_OPENAI_VOICE
	Instructions string // VOICE_INSTRUCTIONS
	VAD          VADConfig

	// Server
	Host     string // VOICE_SERVER_HOST
	Port     string // VOICE_SERVER_PORT
	LogLevel string // LOG_LEVEL
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
		Deployment: envOr("AZURE_OPENAI_DEPLOYMENT", DefaultDeployment),
		APIVersion: envOr("AZURE_OPENAI_API_VERSION", DefaultAPIVersion),
		Region:     os.Getenv("AZURE_OPENAI_REGION"),

		Voice:        envOr("AZURE_OPENAI_VOICE", DefaultVoice),
		Instructions: envOr("VOICE_INSTRUCTIONS", "You are a helpful assistant. Keep responses concise and natural."),
		VAD:          loadVAD(),

		Host:     envOr("VOICE_SERVER_HOST", DefaultHost),
		Port:     envOr("VOICE_SERVER_PORT", DefaultPort),
		LogLevel: envOr("LOG_LEVEL", "info"),
	}
}

func loadVAD() VADConfig {
	mode := VADMode(envOr("VAD_MODE", string(VADSemantic)))
	return VADConfig{
		Mode:            mode,
		Threshold:       envFloat("VAD_THRESHOLD", 0.5),
		SilenceDuration: envMillis("VAD_SILENCE_MS", 700*time.Millisecond),
		PrefixPadding:   envMillis("VAD_PREFIX_PADDING_MS", 300*time.Millisecond),
	}
}

// Validate checks that the configuration is usable for an upstream session.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("config: AZURE_OPENAI_ENDPOINT is required")
	}
	if c.APIKey == "" {
		return errors.New("config: AZURE_OPENAI_API_KEY is required")
	}
	return c.VAD.Validate()
}

// Validate checks VAD parameters.
func (v *VADConfig) Validate() error {
	switch v.Mode {
	case VADSemantic, VADServer:
	default:
		return fmt.Errorf("config: unknown VAD mode %q (want %q or %q)", v.Mode, VADSemantic, VADServer)
	}
	if v.Threshold < 0 || v.Threshold > 1 {
		return fmt.Errorf("config: VAD threshold must be between 0 and 1, got %v", v.Threshold)
	}
	if v.SilenceDuration < 0 {
		return fmt.Errorf("config: VAD silence duration must be non-negative, got %v", v.SilenceDuration)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
