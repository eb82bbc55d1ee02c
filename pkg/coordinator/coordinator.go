// Package coordinator owns the request-scoped orchestration: session access,
// the scoping dialog, the research pipeline with its stage deadlines, and
// response assembly. Agents never talk to each other; every hand-off passes
// through here.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/homescout-ai/homescout/pkg/agent"
	"github.com/homescout-ai/homescout/pkg/config"
	"github.com/homescout-ai/homescout/pkg/llm"
	"github.com/homescout-ai/homescout/pkg/models"
	"github.com/homescout-ai/homescout/pkg/session"
)

// Stage deadlines. A stage that misses its budget degrades; only scoping and
// research failures fail the whole request.
const (
	requestDeadline   = 90 * time.Second
	researchDeadline  = 60 * time.Second
	mappingDeadline   = 20 * time.Second
	localDeadline     = 15 * time.Second
	communityDeadline = 30 * time.Second
)

// GatheringReply is the chat data shape while requirements are incomplete.
type GatheringReply struct {
	Message    string `json:"message"`
	IsComplete bool   `json:"is_complete"`
}

// TopResultCoordinates pins the best match for map rendering.
type TopResultCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	ImageURL  string  `json:"image_url,omitempty"`
}

// CompletionReply is the chat data shape once a search has run.
type CompletionReply struct {
	Requirements      models.Requirements        `json:"requirements"`
	Properties        []models.EnrichedCandidate `json:"properties"`
	SearchSummary     string                     `json:"search_summary"`
	TotalFound        int                        `json:"total_found"`
	RawSearchResults  []models.EnrichedCandidate `json:"raw_search_results"`
	TopResult         *TopResultCoordinates      `json:"top_result_coordinates,omitempty"`
	CommunityAnalysis *models.CommunityReport    `json:"community_analysis,omitempty"`
	IsComplete        bool                       `json:"is_complete"`
}

// ChatOutcome carries exactly one of the two chat reply shapes.
type ChatOutcome struct {
	Gathering  *GatheringReply
	Completion *CompletionReply
}

// Data returns the payload for the HTTP response envelope.
func (o *ChatOutcome) Data() any {
	if o.Completion != nil {
		return o.Completion
	}
	return o.Gathering
}

// Coordinator wires the agents to the session store and enforces the
// per-request pipeline contract.
type Coordinator struct {
	cfg   *config.Config
	store *session.Store

	gateway     *llm.Gateway
	scoping     *agent.ScopingAgent
	research    *agent.ResearchAgent
	mapping     *agent.MappingAgent
	local       *agent.LocalDiscoveryAgent
	community   *agent.CommunityAgent
	negotiation *agent.NegotiationAgent

	logger *slog.Logger
}

// New assembles a coordinator. The gateway may be nil when LLM_API_KEY is
// absent; chat requests then explain the misconfiguration instead of failing.
func New(
	cfg *config.Config,
	store *session.Store,
	gateway *llm.Gateway,
	scoping *agent.ScopingAgent,
	research *agent.ResearchAgent,
	mapping *agent.MappingAgent,
	local *agent.LocalDiscoveryAgent,
	community *agent.CommunityAgent,
	negotiation *agent.NegotiationAgent,
) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		store:       store,
		gateway:     gateway,
		scoping:     scoping,
		research:    research,
		mapping:     mapping,
		local:       local,
		community:   community,
		negotiation: negotiation,
		logger:      slog.Default().With("component", "coordinator"),
	}
}

// Chat runs one conversational turn end to end. The session lock is held only
// while reading or writing session state; all agent I/O happens outside it.
func (c *Coordinator) Chat(ctx context.Context, sessionID, message string) (*ChatOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, requestDeadline)
	defer cancel()

	if err := c.cfg.RequireLLM(); err != nil {
		var missing *config.MissingKeyError
		errors.As(err, &missing)
		return &ChatOutcome{Gathering: &GatheringReply{
			Message: fmt.Sprintf("The assistant is not fully configured: the %s environment variable is missing. Set it and restart the server.", missing.Key),
		}}, nil
	}

	// 1. Record the user turn and snapshot what scoping needs.
	var (
		transcript []models.ChatMessage
		partial    models.Requirements
		lastPlace  string
	)
	c.store.With(sessionID, func(sess *session.Session) {
		sess.AppendUser(message)
		transcript = sess.TranscriptCopy()
		partial = sess.Partial
		if sess.LastResult != nil {
			lastPlace = sess.LastResult.Requirements.Location
		}
	})

	// 2. Scoping turn.
	outcome, err := c.scoping.Handle(ctx, transcript, partial)
	if err != nil {
		reply, fatal := c.scopingFailureReply(err)
		if fatal {
			return nil, fmt.Errorf("scoping: %w", err)
		}
		c.appendAssistant(sessionID, reply.Message)
		return &ChatOutcome{Gathering: reply}, nil
	}

	// 2a. General location question: answer directly, stay in gathering.
	if outcome.GeneralQuestion != "" {
		answer := c.answerGeneralQuestion(ctx, outcome, partial.Location, lastPlace)
		c.appendAssistant(sessionID, answer)
		return &ChatOutcome{Gathering: &GatheringReply{Message: answer}}, nil
	}

	if !outcome.Complete {
		c.store.With(sessionID, func(sess *session.Session) {
			sess.Partial = outcome.Requirements
			sess.Complete = false
			sess.AppendAssistant(outcome.Message)
		})
		return &ChatOutcome{Gathering: &GatheringReply{Message: outcome.Message}}, nil
	}

	// 3. Requirements complete: run the search pipeline.
	requirements := outcome.Requirements
	if err := requirements.Validate(); err != nil {
		msg := fmt.Sprintf("Those criteria don't quite add up: %v. Could you adjust them?", err)
		c.appendAssistant(sessionID, msg)
		return &ChatOutcome{Gathering: &GatheringReply{Message: msg}}, nil
	}
	c.logger.Info("requirements complete, running search",
		"session_id", sessionID, "location", requirements.Location)

	var result *CompletionReply
	if err := c.cfg.RequireSearch(); err != nil {
		var missing *config.MissingKeyError
		errors.As(err, &missing)
		result = &CompletionReply{
			Requirements:     requirements,
			Properties:       []models.EnrichedCandidate{},
			SearchSummary:    fmt.Sprintf("Listing search is not configured: the %s environment variable is missing. Your requirements are saved.", missing.Key),
			RawSearchResults: []models.EnrichedCandidate{},
			IsComplete:       true,
		}
	} else {
		result, err = c.runSearchPipeline(ctx, sessionID, requirements)
		if err != nil {
			return nil, err
		}
	}

	// 4. Persist and confirm.
	c.store.With(sessionID, func(sess *session.Session) {
		sess.Partial = requirements
		sess.Complete = true
		sess.LastResult = &models.SearchResult{
			Requirements: requirements,
			Properties:   result.Properties,
			Summary:      result.SearchSummary,
			TotalFound:   result.TotalFound,
			Community:    result.CommunityAnalysis,
		}
		sess.AppendAssistant(result.SearchSummary)
	})
	return &ChatOutcome{Completion: result}, nil
}

// dispatch runs one pipeline stage under its deadline, pairing the request
// envelope with the response envelope the stage produced. Every agent
// hand-off goes through here so stage timing and outcomes log uniformly.
func (c *Coordinator) dispatch(ctx context.Context, req models.Envelope, stage string, deadline time.Duration, fn func(context.Context) (any, error)) models.Envelope {
	stageCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	payload, err := fn(stageCtx)
	resp := req.Respond(payload, err)
	c.logger.Debug("stage finished",
		"stage", stage, "session_id", resp.SessionID, "error", err)
	return resp
}

// runSearchPipeline executes research, then mapping and local discovery with
// community analysis racing alongside, and assembles the completion reply.
func (c *Coordinator) runSearchPipeline(ctx context.Context, sessionID string, requirements models.Requirements) (*CompletionReply, error) {
	resp := c.dispatch(ctx, models.NewRequest(sessionID, requirements), "research", researchDeadline,
		func(stageCtx context.Context) (any, error) {
			return c.research.Run(stageCtx, requirements)
		})
	if resp.Err != nil {
		return nil, fmt.Errorf("research: %w", resp.Err)
	}
	research := resp.Payload.(*agent.ResearchResult)

	reply := &CompletionReply{
		Requirements:     requirements,
		Properties:       []models.EnrichedCandidate{},
		SearchSummary:    research.Summary,
		TotalFound:       research.TotalFound,
		RawSearchResults: []models.EnrichedCandidate{},
		IsComplete:       true,
	}
	if len(research.Candidates) == 0 {
		return reply, nil
	}

	var (
		wg           sync.WaitGroup
		enriched     []models.EnrichedCandidate
		report       *models.CommunityReport
		communityErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		geoResp := c.dispatch(ctx, models.NewRequest(sessionID, research.Candidates), "mapping", mappingDeadline,
			func(stageCtx context.Context) (any, error) {
				return c.mapping.Resolve(stageCtx, research.Candidates), nil
			})
		geocoded := geoResp.Payload.([]models.GeoCandidate)

		localResp := c.dispatch(ctx, models.NewRequest(sessionID, geocoded), "local", localDeadline,
			func(stageCtx context.Context) (any, error) {
				return c.local.Enrich(stageCtx, geocoded), nil
			})
		enriched = localResp.Payload.([]models.EnrichedCandidate)
	}()
	go func() {
		defer wg.Done()
		location := communityLocation(research.Candidates[0], requirements)
		commResp := c.dispatch(ctx, models.NewRequest(sessionID, location), "community", communityDeadline,
			func(stageCtx context.Context) (any, error) {
				return c.community.Analyze(stageCtx, location)
			})
		communityErr = commResp.Err
		if commResp.Err == nil {
			report = commResp.Payload.(*models.CommunityReport)
		}
	}()
	wg.Wait()

	if len(enriched) > 0 {
		reply.Properties = enriched
		reply.RawSearchResults = enriched
		top := enriched[0]
		reply.TopResult = &TopResultCoordinates{
			Latitude:  top.Lat,
			Longitude: top.Lon,
			Address:   top.Address,
			ImageURL:  top.ImageURL,
		}
	} else {
		c.logger.Warn("geocoding produced no mappable listings",
			"session_id", sessionID, "candidates", len(research.Candidates))
		reply.SearchSummary += " Map locations are temporarily unavailable for these listings."
	}

	if communityErr != nil {
		c.logger.Warn("community analysis unavailable",
			"session_id", sessionID, "error", communityErr)
		reply.SearchSummary += " Community insights are unavailable right now."
	} else {
		reply.CommunityAnalysis = report
	}
	return reply, nil
}

// communityLocation picks the locality the community agent analyzes: the top
// candidate's city when the extraction found one, the searched location
// otherwise.
func communityLocation(top models.Candidate, req models.Requirements) string {
	if top.City != "" {
		return top.City
	}
	return req.Location
}

const generalQuestionSystemPrompt = `You are a knowledgeable local real estate assistant. Answer the user's question about an area in 2-4 friendly sentences, in the user's language. If you lack specifics, say so honestly and suggest what to check.`

// answerGeneralQuestion handles area questions (schools, safety, amenities)
// without leaving the gathering state.
func (c *Coordinator) answerGeneralQuestion(ctx context.Context, outcome agent.ScopingOutcome, partialLocation, lastPlace string) string {
	place := lastPlace
	if place == "" {
		place = partialLocation
	}
	prompt := "Question: " + outcome.GeneralQuestion
	if place != "" {
		prompt = fmt.Sprintf("Area under discussion: %s\n%s", place, prompt)
	}
	answer, err := c.gateway.Complete(ctx, llm.Request{
		System:      generalQuestionSystemPrompt,
		User:        prompt,
		MaxTokens:   300,
		Temperature: 0.6,
	})
	if err != nil || answer == "" {
		c.logger.Debug("general question answer failed", "error", err)
		if outcome.Message != "" {
			return outcome.Message
		}
		return "I couldn't look that up right now, but I'm happy to keep searching for properties. What else matters to you?"
	}
	return answer
}

// scopingFailureReply translates a scoping error into a user-facing reply, or
// reports it fatal when the request should become an error response.
func (c *Coordinator) scopingFailureReply(err error) (*GatheringReply, bool) {
	if llm.IsParseError(err) {
		return &GatheringReply{Message: "Sorry, I had trouble understanding that. Could you rephrase your request?"}, false
	}
	var llmErr *llm.Error
	if errors.As(err, &llmErr) && llmErr.Kind == llm.KindAuth {
		return &GatheringReply{Message: "The assistant's language model credentials were rejected. Check LLM_API_KEY and restart the server."}, false
	}
	c.logger.Error("scoping turn failed", "error", err)
	return nil, true
}

// appendAssistant records an assistant turn outside the main state writes.
func (c *Coordinator) appendAssistant(sessionID, text string) {
	c.store.With(sessionID, func(sess *session.Session) {
		sess.AppendAssistant(text)
	})
}

// Negotiate passes a negotiation request through to the negotiation agent,
// dialing the configured listing-agent line.
func (c *Coordinator) Negotiate(ctx context.Context, address, name, email, additionalInfo string) (*models.NegotiationRecord, error) {
	if err := c.cfg.RequireLLM(); err != nil {
		return nil, err
	}
	if err := c.cfg.RequireTelephony(); err != nil {
		return nil, err
	}
	if address == "" {
		return nil, &models.ValidationError{Field: "address", Reason: "address is required"}
	}
	return c.negotiation.Negotiate(ctx, agent.NegotiationRequest{
		Address:        address,
		CallerName:     name,
		CallerEmail:    email,
		AdditionalInfo: additionalInfo,
		TargetPhone:    c.cfg.TelephonyTargetPhone,
	})
}
