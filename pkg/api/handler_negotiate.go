package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// NegotiateRequest is the POST /api/negotiate body.
type NegotiateRequest struct {
	Address        string `json:"address"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	AdditionalInfo string `json:"additional_info"`
}

// negotiateHandler handles POST /api/negotiate. The call is synchronous and
// blocks until the phone call reaches a terminal state.
func (s *Server) negotiateHandler(c *echo.Context) error {
	var req NegotiateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &NegotiateResponse{
			Message: "The request body must be JSON with address, name, and email fields.",
		})
	}

	record, err := s.orch.Negotiate(c.Request().Context(), req.Address, req.Name, req.Email, req.AdditionalInfo)
	if err != nil {
		s.logger.Error("negotiation failed", "address", req.Address, "error", err)
		return c.JSON(statusForError(err), &NegotiateResponse{
			Message: userMessageForError(err),
		})
	}

	return c.JSON(http.StatusOK, &NegotiateResponse{
		Success:       record.Success,
		Message:       "Negotiation call completed.",
		LeverageScore: record.LeverageScore,
		Findings:      record.FindingSummaries(),
		CallSummary:   record.CallSummary,
		NextActions:   record.NextActions,
	})
}
