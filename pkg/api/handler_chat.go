package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/homescout-ai/homescout/pkg/session"
)

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// chatHandler handles POST /api/chat. The body is always a well-formed
// envelope; the status field, not the HTTP code alone, tells the client
// whether the turn succeeded.
func (s *Server) chatHandler(c *echo.Context) error {
	// 1. Bind and validate. A turn without a session id starts a fresh
	// conversation; the minted id is echoed for the client to reuse.
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope("The request body must be JSON with a message field."))
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, errorEnvelope("Please type a message."))
	}
	if req.SessionID == "" {
		req.SessionID = session.NewID()
	}

	// 2. Run the turn.
	outcome, err := s.orch.Chat(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("chat turn failed",
			"session_id", req.SessionID, "error", err)
		env := errorEnvelope(userMessageForError(err))
		env.SessionID = req.SessionID
		return c.JSON(statusForError(err), env)
	}

	return c.JSON(http.StatusOK, &ChatEnvelope{Status: "success", SessionID: req.SessionID, Data: outcome.Data()})
}

func errorEnvelope(message string) *ChatEnvelope {
	return &ChatEnvelope{Status: "error", Data: &ErrorData{Message: message}}
}
