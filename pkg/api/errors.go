package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/homescout-ai/homescout/pkg/config"
	"github.com/homescout-ai/homescout/pkg/llm"
	"github.com/homescout-ai/homescout/pkg/models"
	"github.com/homescout-ai/homescout/pkg/telephony"
)

// statusForError maps a coordinator error to an HTTP status code.
func statusForError(err error) int {
	var validErr *models.ValidationError
	if errors.As(err, &validErr) {
		return http.StatusBadRequest
	}
	if errors.Is(err, config.ErrMissingKey) {
		return http.StatusServiceUnavailable
	}
	var llmErr *llm.Error
	if errors.As(err, &llmErr) && llmErr.Kind == llm.KindAuth {
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, telephony.ErrCallTimeout) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// userMessageForError renders an error safe for direct display.
func userMessageForError(err error) string {
	var validErr *models.ValidationError
	if errors.As(err, &validErr) {
		return validErr.Error()
	}
	var missing *config.MissingKeyError
	if errors.As(err, &missing) {
		return fmt.Sprintf("This feature is not configured: the %s environment variable is missing.", missing.Key)
	}
	var llmErr *llm.Error
	if errors.As(err, &llmErr) && llmErr.Kind == llm.KindAuth {
		return "The language model rejected our credentials. Check LLM_API_KEY."
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, telephony.ErrCallTimeout) {
		return "The operation took too long and was cancelled. Please try again."
	}
	return "Something went wrong on our side. Please try again."
}
