// Package search wraps the web-search MCP server behind a small Provider
// interface. The server exposes two tools: search_engine returns organic
// results for a query, scrape_as_markdown fetches one page as markdown.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/homescout-ai/homescout/pkg/config"
	"github.com/homescout-ai/homescout/pkg/models"
	"github.com/homescout-ai/homescout/pkg/version"
)

// Provider is the search surface the research and community agents consume.
type Provider interface {
	Search(ctx context.Context, query string) ([]models.SearchHit, error)
	ScrapeMarkdown(ctx context.Context, url string) (string, error)
}

const (
	toolSearchEngine = "search_engine"
	toolScrape       = "scrape_as_markdown"

	// initTimeout is the transport + handshake deadline.
	initTimeout = 30 * time.Second

	// operationTimeout is the per-call deadline. Scrapes of heavy listing
	// pages are legitimately slow.
	operationTimeout = 90 * time.Second

	// maxRateLimitAttempts counts total tries on 429.
	maxRateLimitAttempts = 3

	retryBackoffMin = 250 * time.Millisecond
	retryBackoffMax = 750 * time.Millisecond
)

// MCPProvider talks to the provider over streamable HTTP with bearer auth.
// The session is created lazily on first use and recreated after transport
// failures.
type MCPProvider struct {
	endpoint string
	token    string

	mu      sync.Mutex
	client  *mcpsdk.Client
	session *mcpsdk.ClientSession

	logger *slog.Logger
}

// NewMCPProvider builds the provider from configuration. A missing token is
// reported as the config package's typed error.
func NewMCPProvider(cfg *config.Config) (*MCPProvider, error) {
	if err := cfg.RequireSearch(); err != nil {
		return nil, err
	}
	return &MCPProvider{
		endpoint: cfg.SearchProviderURL,
		token:    cfg.SearchProviderAPIKey,
		logger:   slog.Default().With("component", "search"),
	}, nil
}

// Search runs the search_engine tool and parses the organic results.
func (p *MCPProvider) Search(ctx context.Context, query string) ([]models.SearchHit, error) {
	out, err := p.callTool(ctx, toolSearchEngine, map[string]any{
		"query":  query,
		"engine": "google",
	})
	if err != nil {
		return nil, err
	}
	return parseSearchOutput(out), nil
}

// ScrapeMarkdown fetches one page as markdown via scrape_as_markdown.
func (p *MCPProvider) ScrapeMarkdown(ctx context.Context, url string) (string, error) {
	return p.callTool(ctx, toolScrape, map[string]any{"url": url})
}

// Close tears down the MCP session if one was established.
func (p *MCPProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	p.client = nil
	return err
}

// callTool runs one tool with rate-limit retries and one transport-recovery
// retry.
func (p *MCPProvider) callTool(ctx context.Context, tool string, args map[string]any) (string, error) {
	var lastErr error
	recreated := false

	for attempt := 1; attempt <= maxRateLimitAttempts; attempt++ {
		out, err := p.callToolOnce(ctx, tool, args)
		if err == nil {
			return out, nil
		}
		lastErr = err

		switch KindOf(err) {
		case ProviderRateLimit:
			if attempt == maxRateLimitAttempts {
				return "", err
			}
			backoff := retryBackoffMin + rand.N(retryBackoffMax-retryBackoffMin)
			p.logger.Info("provider rate limited, backing off",
				"tool", tool, "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", &ProviderError{Kind: ProviderTransient, Op: tool, Err: ctx.Err()}
			}
		case ProviderTransient:
			if recreated {
				return "", err
			}
			recreated = true
			p.logger.Warn("transport failure, recreating session", "tool", tool, "error", err)
			p.resetSession()
		default:
			return "", err
		}
	}
	return "", lastErr
}

func (p *MCPProvider) callToolOnce(ctx context.Context, tool string, args map[string]any) (string, error) {
	session, err := p.ensureSession(ctx)
	if err != nil {
		return "", err
	}

	opCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	result, err := session.CallTool(opCtx, &mcpsdk.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return "", classify(tool, err)
	}

	text := extractTextContent(result)
	if result.IsError {
		return "", classifyToolError(tool, text)
	}
	return text, nil
}

// ensureSession connects on first use.
func (p *MCPProvider) ensureSession(ctx context.Context) (*mcpsdk.ClientSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return p.session, nil
	}

	transport := &mcpsdk.StreamableClientTransport{
		Endpoint: p.endpoint,
		HTTPClient: &http.Client{
			Transport: &bearerTokenTransport{base: http.DefaultTransport, token: p.token},
		},
	}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    version.AppName,
		Version: version.Version,
	}, nil)

	session, err := client.Connect(initCtx, transport, nil)
	if err != nil {
		if closer, ok := mcpsdk.Transport(transport).(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, classify("connect", err)
	}

	p.client = client
	p.session = session
	p.logger.Info("search provider connected", "endpoint", p.endpoint)
	return session, nil
}

func (p *MCPProvider) resetSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		_ = p.session.Close()
	}
	p.session = nil
	p.client = nil
}

// classify maps transport errors onto provider kinds.
func classify(op string, err error) *ProviderError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: ProviderTransient, Op: op, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "403"):
		return &ProviderError{Kind: ProviderAuth, Op: op, Err: err}
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return &ProviderError{Kind: ProviderRateLimit, Op: op, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ProviderError{Kind: ProviderTransient, Op: op, Err: err}
	}
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "connection closed", "no such host"} {
		if strings.Contains(msg, s) {
			return &ProviderError{Kind: ProviderTransient, Op: op, Err: err}
		}
	}
	return &ProviderError{Kind: ProviderFatal, Op: op, Err: err}
}

// classifyToolError handles tool-level failures reported as result content.
func classifyToolError(op, text string) *ProviderError {
	return classify(op, fmt.Errorf("tool reported error: %s", truncate(text, 200)))
}

// extractTextContent concatenates the TextContent items of a result.
func extractTextContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// bearerTokenTransport adds the Authorization header on every request.
type bearerTokenTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}
