// Package llm is the single gateway through which every agent talks to the
// chat model. It owns retries, per-attempt timeouts, and the JSON repair
// pipeline so downstream code sees either usable text or a typed *Error.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/homescout-ai/homescout/pkg/config"
)

// Client is the minimal chat-completion surface the gateway needs. Any
// OpenAI-compatible backend (or a test stub) satisfies it.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Retry and timeout policy.
const (
	maxAttempts    = 3
	attemptTimeout = 30 * time.Second
	backoffBase    = 500 * time.Millisecond
	backoffFactor  = 2
	backoffCap     = 8 * time.Second

	// jsonRepairBudget is the number of stricter re-issues after the local
	// repair passes fail.
	jsonRepairBudget = 1

	// httpPoolSize bounds idle connections to the provider.
	httpPoolSize = 32
)

// Request is one completion call.
type Request struct {
	System      string
	User        string
	WantJSON    bool
	MaxTokens   int
	Temperature float32
}

// Gateway issues chat completions with retry and JSON repair.
type Gateway struct {
	client Client
	model  string
	logger *slog.Logger
}

// NewGateway builds a Gateway from configuration. A missing API key is
// reported as the config package's typed error.
func NewGateway(cfg *config.Config) (*Gateway, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	clientCfg.BaseURL = cfg.LLMBaseURL
	clientCfg.HTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        httpPoolSize,
			MaxIdleConnsPerHost: httpPoolSize,
		},
	}

	return &Gateway{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.LLMModel,
		logger: slog.Default().With("component", "llm"),
	}, nil
}

// NewGatewayWithClient wires an explicit client, used by tests and by any
// caller that already holds a configured backend.
func NewGatewayWithClient(client Client, model string) *Gateway {
	return &Gateway{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "llm"),
	}
}

// Complete issues one completion. When req.WantJSON is set the returned
// string is guaranteed to parse as JSON, or the call fails with KindParse.
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	text, err := g.completeOnce(ctx, req, "")
	if err != nil {
		return "", err
	}
	if !req.WantJSON {
		return text, nil
	}

	repaired, ok := RepairJSON(text)
	for attempt := 0; !ok && attempt < jsonRepairBudget; attempt++ {
		g.logger.Warn("model output failed JSON repair, re-issuing with strict instruction",
			"attempt", attempt+1)
		text, err = g.completeOnce(ctx, req, strictJSONInstruction)
		if err != nil {
			return "", err
		}
		repaired, ok = RepairJSON(text)
	}
	if !ok {
		return "", &Error{Kind: KindParse, Err: fmt.Errorf("output is not valid JSON after repair: %.120q", text)}
	}
	return repaired, nil
}

// CompleteJSON runs Complete with WantJSON forced and unmarshals the result.
func (g *Gateway) CompleteJSON(ctx context.Context, req Request, out any) error {
	req.WantJSON = true
	text, err := g.Complete(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &Error{Kind: KindParse, Err: fmt.Errorf("decode into %T: %w", out, err)}
	}
	return nil
}

const strictJSONInstruction = "Respond with ONLY a single valid JSON document. No prose, no markdown fences, no explanation."

// completeOnce runs the retry loop for a single logical completion.
func (g *Gateway) completeOnce(ctx context.Context, req Request, extraSystem string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 3)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.System,
		})
	}
	if extraSystem != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: extraSystem,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: req.User,
	})

	ccr := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var lastErr *Error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			g.logger.Info("retrying completion", "attempt", attempt+1, "backoff", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &Error{Kind: KindTransient, Err: ctx.Err()}
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		resp, err := g.client.CreateChatCompletion(attemptCtx, ccr)
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				lastErr = &Error{Kind: KindTransient, Err: errors.New("completion returned no choices")}
				continue
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = classify(err)
		if !lastErr.Retryable() {
			return "", lastErr
		}
	}
	return "", lastErr
}

// backoffDelay computes the jittered exponential delay before attempt n.
func backoffDelay(attempt int) time.Duration {
	delay := backoffBase
	for i := 1; i < attempt; i++ {
		delay *= backoffFactor
	}
	if delay > backoffCap {
		delay = backoffCap
	}
	// jitter within ±25%
	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(delay) * jitter)
}

// classify maps a transport failure to a typed gateway error.
func classify(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return &Error{Kind: KindAuth, Err: err}
		case apiErr.HTTPStatusCode == http.StatusBadRequest:
			return &Error{Kind: KindBadRequest, Err: err}
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimit, Err: err}
		case apiErr.HTTPStatusCode >= 500:
			return &Error{Kind: KindTransient, Err: err}
		}
		return &Error{Kind: KindBadRequest, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTransient, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindTransient, Err: err}
	}
	return &Error{Kind: KindTransient, Err: err}
}
