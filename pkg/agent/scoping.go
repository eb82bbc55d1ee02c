// Package agent contains the pipeline agents: scoping, research, mapping,
// local discovery, community analysis, and negotiation. Each agent owns one
// narrow responsibility and exposes a single request/response method; the
// coordinator wires them together.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/homescout-ai/homescout/pkg/llm"
	"github.com/homescout-ai/homescout/pkg/models"
)

// ScopingOutcome is the result of one scoping turn.
type ScopingOutcome struct {
	// Message is the user-visible assistant reply while gathering.
	Message string
	// Complete is true once the merged requirements pass the gate.
	Complete bool
	// Requirements is the merged record. Valid only when Complete.
	Requirements models.Requirements
	// GeneralQuestion is set when the turn is a location question rather
	// than a search request; the coordinator answers it directly.
	GeneralQuestion string
}

// scopingReply is the strict JSON schema the model must follow.
type scopingReply struct {
	Location          string   `json:"location"`
	Bedrooms          *int     `json:"bedrooms"`
	Bathrooms         *float64 `json:"bathrooms"`
	BudgetMin         *int     `json:"budget_min"`
	BudgetMax         *int     `json:"budget_max"`
	// IsRent is tri-state: nil means the turn said nothing about rent vs.
	// buy, so the stored intent stands.
	IsRent            *bool    `json:"is_rent"`
	AdditionalInfo    string   `json:"additional_info"`
	IsComplete        bool     `json:"is_complete"`
	NeedsMoreInfo     bool     `json:"needs_more_info"`
	MessageToUser     string   `json:"message_to_user"`
	IsGeneralQuestion bool     `json:"is_general_question"`
	GeneralQuestion   string   `json:"general_question"`
}

const scopingSystemPrompt = `You are a friendly real estate agent helping users find a home in Portugal or the US.

Gather through natural conversation: the location, the number of bedrooms, and the budget. Bathrooms and rent-vs-buy intent are useful but optional. Users may write in Portuguese or English; always reply in the user's language.

Classify each turn:
1. A GENERAL QUESTION about an area (schools, crime, neighborhoods, amenities) -> set "is_general_question": true and copy the question into "general_question".
2. A property search with enough information -> set "is_complete": true. The confirmation in "message_to_user" must not contain a question.
3. Anything else -> set "is_complete": false and ask for what is missing in "message_to_user".

Respond with ONLY a JSON object in this exact shape (use null for unknown fields, never invent values):
{"location": "", "bedrooms": null, "bathrooms": null, "budget_min": null, "budget_max": null, "is_rent": null, "additional_info": "", "is_complete": false, "needs_more_info": true, "message_to_user": "", "is_general_question": false, "general_question": ""}

Portuguese T-notation: "T2" means 2 bedrooms. "até 900€" means budget_max 900. Renting verbs (arrendar, alugar, rent) mean is_rent true; buying verbs (comprar, buy) mean is_rent false; leave is_rent null when the turn says nothing about it.`

// ScopingAgent runs the requirement-gathering dialog.
type ScopingAgent struct {
	gateway *llm.Gateway
	logger  *slog.Logger
}

// NewScopingAgent wires the agent to the LLM gateway.
func NewScopingAgent(gateway *llm.Gateway) *ScopingAgent {
	return &ScopingAgent{
		gateway: gateway,
		logger:  slog.Default().With("agent", "scoping"),
	}
}

// Handle runs one gathering turn. transcript already includes the latest
// user message; partial is the session's requirements so far. The partial
// record is never mutated; the merged copy is returned on completion.
func (a *ScopingAgent) Handle(ctx context.Context, transcript []models.ChatMessage, partial models.Requirements) (ScopingOutcome, error) {
	var reply scopingReply
	err := a.gateway.CompleteJSON(ctx, llm.Request{
		System:      scopingSystemPrompt,
		User:        buildScopingPrompt(transcript, partial),
		MaxTokens:   600,
		Temperature: 0.2,
	}, &reply)
	if err != nil {
		return ScopingOutcome{}, fmt.Errorf("scoping turn: %w", err)
	}

	if reply.IsGeneralQuestion {
		question := reply.GeneralQuestion
		if question == "" {
			question = lastUserText(transcript)
		}
		return ScopingOutcome{GeneralQuestion: question, Message: reply.MessageToUser}, nil
	}

	merged := partial.Merge(models.Requirements{
		Location:       reply.Location,
		Bedrooms:       reply.Bedrooms,
		Bathrooms:      reply.Bathrooms,
		BudgetMin:      reply.BudgetMin,
		BudgetMax:      reply.BudgetMax,
		AdditionalInfo: reply.AdditionalInfo,
	})
	if reply.IsRent != nil {
		merged.IsRent = *reply.IsRent
	}

	// Completion gate: location plus at least one hard constraint, and the
	// model itself considers the conversation complete.
	complete := reply.IsComplete &&
		merged.Location != "" &&
		(merged.Bedrooms != nil || merged.BudgetMax != nil)

	outcome := ScopingOutcome{
		Message:      reply.MessageToUser,
		Complete:     complete,
		Requirements: merged,
	}
	if !complete && outcome.Message == "" {
		outcome.Message = "Could you tell me a bit more about what you're looking for?"
	}

	a.logger.Debug("scoping turn handled",
		"complete", complete, "location", merged.Location)
	return outcome, nil
}

func buildScopingPrompt(transcript []models.ChatMessage, partial models.Requirements) string {
	var b strings.Builder
	if known, err := json.Marshal(partial); err == nil {
		b.WriteString("Known requirements so far:\n")
		b.Write(known)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation:\n")
	for _, msg := range transcript {
		label := "User"
		if msg.Role == models.RoleAssistant {
			label = "Agent"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, msg.Text)
	}
	b.WriteString("\nAnalyze the conversation and respond with the JSON object.")
	return b.String()
}

func lastUserText(transcript []models.ChatMessage) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == models.RoleUser {
			return transcript[i].Text
		}
	}
	return ""
}
