package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/voicebridge/voicebridge/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Endpoint:   "https://example.openai.azure.com",
		APIKey:     "test-key",
		Deployment: "gpt-realtime",
		APIVersion: "2025-04-01-preview",
		Region:     "eastus2",
		Voice:      "alloy",
		VAD: config.VADConfig{
			Mode:            config.VADServer,
			Threshold:       0.5,
			SilenceDuration: 700 * time.Millisecond,
			PrefixPadding:   300 * time.Millisecond,
		},
		Host: "127.0.0.1",
		Port: "8765",
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(testConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["sessions"].(float64) != 0 {
		t.Errorf("sessions = %v, want 0", body["sessions"])
	}
}

func TestRelayRequiresUpgrade(t *testing.T) {
	s := NewServer(testConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUpgradeRequired)
	}
}

func TestEphemeralSession(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]string

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotKey = r.Header.Get("api-key")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"sess_abc","client_secret":{"value":"ek_123"}}`))
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.Endpoint = upstream.URL
	s := NewServer(cfg, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/session",
		strings.NewReader(`{"voice":"verse"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if !strings.Contains(gotPath, "/openai/realtimeapi/sessions") {
		t.Errorf("upstream path = %q", gotPath)
	}
	if !strings.Contains(gotPath, "api-version=2025-04-01-preview") {
		t.Errorf("upstream path missing api-version: %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api-key header = %q, want test-key", gotKey)
	}
	if gotBody["model"] != "gpt-realtime" || gotBody["voice"] != "verse" {
		t.Errorf("upstream body = %v", gotBody)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["id"] != "sess_abc" {
		t.Errorf("id = %v, want sess_abc", body["id"])
	}
	want := "https://eastus2.realtimeapi-preview.ai.azure.com/v1/realtimertc"
	if body["webrtc_url"] != want {
		t.Errorf("webrtc_url = %v, want %v", body["webrtc_url"], want)
	}
}

func TestEphemeralSession_UpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.Endpoint = upstream.URL
	s := NewServer(cfg, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	resp, err := s.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestSessionOptionsMapping(t *testing.T) {
	cfg := testConfig()
	cfg.Instructions = "be brief"

	opts := SessionOptions(cfg)
	if opts.Instructions != "be brief" {
		t.Errorf("Instructions = %q", opts.Instructions)
	}
	if opts.Voice != "alloy" {
		t.Errorf("Voice = %q", opts.Voice)
	}
	if opts.VADMode != "server" {
		t.Errorf("VADMode = %q, want server", opts.VADMode)
	}
	if opts.VADThreshold != 0.5 {
		t.Errorf("VADThreshold = %v", opts.VADThreshold)
	}
	if opts.SilenceDuration != 700*time.Millisecond {
		t.Errorf("SilenceDuration = %v", opts.SilenceDuration)
	}
}
