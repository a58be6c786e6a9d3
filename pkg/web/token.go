package web

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/voicebridge/voicebridge/internal/httpc"
)

// sessionRequest is the optional body for POST /api/session.
type sessionRequest struct {
	Voice string `json:"voice"`
}

// handleEphemeralSession mints a short-lived session key for browser
// clients that connect to the model directly over WebRTC. The server's
// API key never reaches the browser.
func (s *Server) handleEphemeralSession(c *fiber.Ctx) error {
	var req sessionRequest
	if err := c.BodyParser(&req); err != nil {
		req = sessionRequest{}
	}
	voice := req.Voice
	if voice == "" {
		voice = s.cfg.Voice
	}

	payload, err := json.Marshal(map[string]string{
		"model": s.cfg.Deployment,
		"voice": voice,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	url := fmt.Sprintf("%s/openai/realtimeapi/sessions?api-version=%s",
		strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.APIVersion)

	resp, err := httpc.PostJSON(url, payload, map[string]string{"api-key": s.cfg.APIKey})
	if err != nil {
		s.logger.Error("mint ephemeral session", "error", err)
		return fiber.NewError(fiber.StatusBadGateway, "session endpoint unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "read session response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Error("session endpoint rejected request",
			"status", resp.StatusCode, "body", string(body))
		return fiber.NewError(fiber.StatusBadGateway,
			fmt.Sprintf("session endpoint returned %d", resp.StatusCode))
	}

	var session map[string]interface{}
	if err := json.Unmarshal(body, &session); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "malformed session response")
	}
	if s.cfg.Region != "" {
		session["webrtc_url"] = fmt.Sprintf(
			"https://%s.realtimeapi-preview.ai.azure.com/v1/realtimertc", s.cfg.Region)
	}

	return c.JSON(session)
}
