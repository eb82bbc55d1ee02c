package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/homescout-ai/homescout/pkg/llm"
	"github.com/homescout-ai/homescout/pkg/models"
	"github.com/homescout-ai/homescout/pkg/search"
	"github.com/homescout-ai/homescout/pkg/telephony"
)

// proberScrapeLimit caps how many sources the research pass scrapes.
const proberScrapeLimit = 3

// NegotiationRequest is the input to one voice-call negotiation.
type NegotiationRequest struct {
	Address        string
	CallerName     string
	CallerEmail    string
	AdditionalInfo string
	// TargetPhone is the number dialed, typically the configured listing
	// agent line.
	TargetPhone string
}

// NegotiationAgent researches a property for leverage, briefs the voice
// assistant, places the call, and waits for the outcome.
type NegotiationAgent struct {
	provider search.Provider
	gateway  *llm.Gateway
	phone    telephony.Client
	logger   *slog.Logger
}

// NewNegotiationAgent wires the negotiation agent.
func NewNegotiationAgent(provider search.Provider, gateway *llm.Gateway, phone telephony.Client) *NegotiationAgent {
	return &NegotiationAgent{
		provider: provider,
		gateway:  gateway,
		phone:    phone,
		logger:   slog.Default().With("agent", "negotiation"),
	}
}

// Negotiate runs the pipeline end to end, blocking until the call reaches a
// terminal state. A failed research pass degrades to an empty findings list;
// a failed assistant update or call creation fails the whole operation.
func (a *NegotiationAgent) Negotiate(ctx context.Context, req NegotiationRequest) (*models.NegotiationRecord, error) {
	record := &models.NegotiationRecord{
		Address:     req.Address,
		CallerName:  req.CallerName,
		CallerEmail: req.CallerEmail,
		Findings:    []models.Finding{},
		NextActions: []string{},
	}

	// 1. Research pass, tolerant of failure.
	findings, leverage, err := a.probe(ctx, req.Address)
	if err != nil {
		a.logger.Warn("research pass failed, proceeding without findings", "error", err)
	} else {
		record.Findings = findings
		record.LeverageScore = leverage
	}

	// 2. Brief the voice assistant.
	record.Brief = buildCallBrief(req, record.Findings, record.LeverageScore)
	if err := a.phone.UpdateAssistant(ctx, record.Brief, buildFirstMessage(req)); err != nil {
		return nil, fmt.Errorf("update assistant: %w", err)
	}

	// 3. Place the call.
	callID, err := a.phone.CreateCall(ctx, req.TargetPhone)
	if err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	a.logger.Info("negotiation call placed", "call_id", callID, "address", req.Address)

	// 4. Poll until terminal.
	state, err := a.phone.WaitForCall(ctx, callID)
	if err != nil && state == nil {
		return nil, fmt.Errorf("wait for call: %w", err)
	}

	if state != nil {
		record.Success = state.Status == telephony.StatusEnded
		record.CallSummary = state.Analysis.Summary
	}

	// 5. Post-call follow-ups.
	record.NextActions = a.nextActions(ctx, record.CallSummary)
	return record, nil
}

// proberReply is the research-pass schema.
type proberReply struct {
	Findings          []models.Finding `json:"findings"`
	OverallAssessment string           `json:"overall_assessment"`
	LeverageScore     float64          `json:"leverage_score"`
}

const proberSystemPrompt = `You are a real estate negotiation analyst. Extract leverage points from scraped property data.
Categories: time_on_market, price_history, property_issues, owner_situation, market_conditions.
Respond with ONLY valid JSON: {"findings": [{"category": "", "summary": "", "leverage_score": 5.0, "details": "", "source_url": ""}], "overall_assessment": "", "leverage_score": 5.0}
Keep every text field under 100 characters. If nothing useful is found, return an empty findings list with leverage_score 0.`

func (a *NegotiationAgent) probe(ctx context.Context, address string) ([]models.Finding, float64, error) {
	if a.provider == nil {
		return nil, 0, fmt.Errorf("search provider not configured")
	}
	hits, err := a.provider.Search(ctx, address+" listing price history days on market")
	if err != nil {
		return nil, 0, fmt.Errorf("probe search: %w", err)
	}

	var sources []string
	for _, hit := range hits {
		if len(sources) == proberScrapeLimit {
			break
		}
		markdown, err := a.provider.ScrapeMarkdown(ctx, hit.URL)
		if err != nil {
			continue
		}
		sources = append(sources, fmt.Sprintf("--- Source: %s ---\n%s", hit.URL, truncateMarkdown(markdown)))
	}
	if len(sources) == 0 {
		return []models.Finding{}, 0, nil
	}

	var reply proberReply
	err = a.gateway.CompleteJSON(ctx, llm.Request{
		System:      proberSystemPrompt,
		User:        fmt.Sprintf("Property address: %s\n\n%s", address, strings.Join(sources, "\n\n")),
		MaxTokens:   700,
		Temperature: 0.1,
	}, &reply)
	if err != nil {
		return nil, 0, fmt.Errorf("probe analysis: %w", err)
	}
	if reply.Findings == nil {
		reply.Findings = []models.Finding{}
	}
	if reply.LeverageScore < 0 {
		reply.LeverageScore = 0
	}
	if reply.LeverageScore > 10 {
		reply.LeverageScore = 10
	}
	return reply.Findings, reply.LeverageScore, nil
}

// buildCallBrief composes the assistant's system prompt for the call.
func buildCallBrief(req NegotiationRequest, findings []models.Finding, leverage float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, calling about the property at %s.\n\n", req.CallerName, req.Address)
	b.WriteString("GOAL: a short, polite call. Ask when the property is available, whether the price is negotiable, and what the owner expects from a tenant or buyer. Do not repeat yourself; introduce yourself exactly once.\n")
	if req.AdditionalInfo != "" {
		fmt.Fprintf(&b, "\nCaller notes: %s\n", req.AdditionalInfo)
	}
	if len(findings) > 0 {
		fmt.Fprintf(&b, "\nNegotiation intelligence (leverage %.1f/10):\n", leverage)
		for _, f := range findings {
			fmt.Fprintf(&b, "- [%s] %s\n", f.Category, f.Summary)
		}
		b.WriteString("Use these points tactfully when discussing price.\n")
	}
	b.WriteString("\nEnd the call politely once you have the answers.")
	return b.String()
}

func buildFirstMessage(req NegotiationRequest) string {
	return fmt.Sprintf("Hello, good afternoon! My name is %s. Could I ask a few quick questions about the property at %s?", req.CallerName, req.Address)
}

// fallbackNextActions is used when the post-call LLM pass fails.
var fallbackNextActions = []string{
	"Review the call summary with the caller",
	"Schedule a viewing of the property",
	"Confirm the discussed terms in writing",
}

type nextActionsReply struct {
	Summary     string   `json:"summary"`
	NextActions []string `json:"next_actions"`
}

// nextActions extracts concrete follow-up steps from the call summary.
func (a *NegotiationAgent) nextActions(ctx context.Context, callSummary string) []string {
	if strings.TrimSpace(callSummary) == "" {
		return []string{}
	}

	var reply nextActionsReply
	err := a.gateway.CompleteJSON(ctx, llm.Request{
		System:      "You extract structured outcomes from call summaries. Respond with ONLY JSON: {\"summary\": \"\", \"next_actions\": [\"\"]}. List 2-3 concrete next steps.",
		User:        "Call summary:\n" + callSummary,
		MaxTokens:   300,
		Temperature: 0.1,
	}, &reply)
	if err != nil || len(reply.NextActions) == 0 {
		a.logger.Debug("next-actions extraction failed, using fallback", "error", err)
		return fallbackNextActions
	}
	return reply.NextActions
}
