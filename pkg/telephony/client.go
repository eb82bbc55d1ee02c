// Package telephony drives outbound voice calls through the provider's REST
// API: refresh the assistant's brief, create the call, poll until it
// terminates, and fetch the post-call analysis summary.
package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/homescout-ai/homescout/pkg/config"
)

// Call status values reported by the provider.
const (
	StatusEnded    = "ended"
	StatusFailed   = "failed"
	StatusTimedOut = "timed_out"
)

// Polling policy for WaitForCall.
const (
	PollInterval = 3 * time.Second
	PollDeadline = 10 * time.Minute
)

// ErrCallTimeout indicates the call did not terminate within the deadline.
var ErrCallTimeout = errors.New("call did not terminate before deadline")

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telephony API returned %d: %s", e.StatusCode, e.Body)
}

// CallState is one snapshot of an in-flight or terminated call.
type CallState struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Analysis struct {
		Summary string `json:"summary"`
	} `json:"analysis"`
}

// Terminal reports whether the call reached a final state.
func (s *CallState) Terminal() bool {
	return s.Status == StatusEnded || s.Status == StatusFailed || s.Status == StatusTimedOut
}

// Client is the voice-call surface the negotiation agent consumes.
type Client interface {
	UpdateAssistant(ctx context.Context, systemPrompt, firstMessage string) error
	CreateCall(ctx context.Context, customerPhone string) (string, error)
	GetCall(ctx context.Context, callID string) (*CallState, error)
	WaitForCall(ctx context.Context, callID string) (*CallState, error)
}

// RESTClient implements Client against the provider's HTTP API.
type RESTClient struct {
	baseURL       string
	apiKey        string
	assistantID   string
	phoneNumberID string
	httpClient    *http.Client
	logger        *slog.Logger

	// pollInterval is overridable for tests.
	pollInterval time.Duration
	pollDeadline time.Duration
}

// NewRESTClient builds a client from configuration. Missing identifiers are
// reported as the config package's typed error.
func NewRESTClient(cfg *config.Config) (*RESTClient, error) {
	if err := cfg.RequireTelephony(); err != nil {
		return nil, err
	}
	return &RESTClient{
		baseURL:       cfg.TelephonyBaseURL,
		apiKey:        cfg.TelephonyAPIKey,
		assistantID:   cfg.TelephonyAssistantID,
		phoneNumberID: cfg.TelephonyPhoneNumberID,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        slog.Default().With("component", "telephony"),
		pollInterval:  PollInterval,
		pollDeadline:  PollDeadline,
	}, nil
}

// UpdateAssistant rewrites the assistant's system prompt and opening line
// before a call. A non-2xx fails the whole negotiation.
func (c *RESTClient) UpdateAssistant(ctx context.Context, systemPrompt, firstMessage string) error {
	payload := map[string]any{
		"firstMessage": firstMessage,
		"model": map[string]any{
			"provider": "openai",
			"model":    "gpt-4.1-nano",
			"messages": []map[string]string{
				{"role": "system", "content": systemPrompt},
			},
		},
	}
	_, err := c.do(ctx, http.MethodPatch, "/assistant/"+c.assistantID, payload)
	return err
}

type createCallResponse struct {
	ID string `json:"id"`
}

// CreateCall starts an outbound call to customerPhone and returns the call id.
func (c *RESTClient) CreateCall(ctx context.Context, customerPhone string) (string, error) {
	payload := map[string]any{
		"assistantId":   c.assistantID,
		"phoneNumberId": c.phoneNumberID,
		"customer":      map[string]string{"number": customerPhone},
	}
	body, err := c.do(ctx, http.MethodPost, "/call/phone", payload)
	if err != nil {
		return "", err
	}

	var resp createCallResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode create-call response: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("create-call response missing id")
	}
	c.logger.Info("call created", "call_id", resp.ID)
	return resp.ID, nil
}

// GetCall fetches the current call state.
func (c *RESTClient) GetCall(ctx context.Context, callID string) (*CallState, error) {
	body, err := c.do(ctx, http.MethodGet, "/call/"+callID, nil)
	if err != nil {
		return nil, err
	}
	var state CallState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("decode call state: %w", err)
	}
	return &state, nil
}

// WaitForCall polls until the call terminates, then waits for the analysis
// summary to materialize. Transient poll errors are tolerated.
func (c *RESTClient) WaitForCall(ctx context.Context, callID string) (*CallState, error) {
	deadline := time.NewTimer(c.pollDeadline)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var last *CallState
	for {
		state, err := c.GetCall(ctx, callID)
		if err != nil {
			c.logger.Warn("poll failed, will retry", "call_id", callID, "error", err)
		} else {
			last = state
			if state.Terminal() {
				// Summary may lag the terminal status by a few polls.
				if state.Status != StatusEnded || state.Analysis.Summary != "" {
					return state, nil
				}
				c.logger.Debug("call ended, waiting for analysis", "call_id", callID)
			}
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			if last != nil && last.Terminal() {
				return last, nil
			}
			return last, ErrCallTimeout
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}

// do issues one request with bearer auth and returns the response body.
func (c *RESTClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}
	return respBody, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
