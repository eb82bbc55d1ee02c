package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/homescout-ai/homescout/pkg/llm"
	"github.com/homescout-ai/homescout/pkg/models"
	"github.com/homescout-ai/homescout/pkg/search"
)

// communityHitLimit caps how many hits per category feed the analysis.
const communityHitLimit = 8

// CommunityAgent scores a neighborhood from news, school, and housing
// searches around the top candidate's locality.
type CommunityAgent struct {
	provider search.Provider
	gateway  *llm.Gateway
	logger   *slog.Logger
}

// NewCommunityAgent wires the community agent.
func NewCommunityAgent(provider search.Provider, gateway *llm.Gateway) *CommunityAgent {
	return &CommunityAgent{
		provider: provider,
		gateway:  gateway,
		logger:   slog.Default().With("agent", "community"),
	}
}

// communityReply is the analysis schema.
type communityReply struct {
	Location string `json:"location"`
	Overall  struct {
		Score       float64 `json:"score"`
		Explanation string  `json:"explanation"`
	} `json:"overall"`
	Safety struct {
		Score           float64        `json:"score"`
		PositiveStories []models.Story `json:"positive_stories"`
		NegativeStories []models.Story `json:"negative_stories"`
	} `json:"safety"`
	Schools struct {
		Score       float64 `json:"score"`
		Explanation string  `json:"explanation"`
	} `json:"schools"`
	HousingAvg struct {
		PricePerSqm int `json:"housing_price_per_sqm"`
		AvgSizeSqm  int `json:"average_house_size_sqm"`
	} `json:"housing_avg"`
}

const communitySystemPrompt = `You are a community analyst. You will be given web search snippets about a locality and must score it.
Respond with ONLY valid JSON in this shape:
{"location": "", "overall": {"score": 7.5, "explanation": ""}, "safety": {"score": 7.0, "positive_stories": [{"title": "", "summary": "", "url": ""}], "negative_stories": [{"title": "", "summary": "", "url": ""}]}, "schools": {"score": 8.0, "explanation": ""}, "housing_avg": {"housing_price_per_sqm": 0, "average_house_size_sqm": 0}}
Scores are on a 0-10 scale. Base everything strictly on the provided snippets; use 0 for housing figures the snippets do not state. Keep explanations to one or two sentences.`

// Analyze produces one CommunityReport for the locality. Any failure returns
// nil and an error; the coordinator omits the report from the response.
func (a *CommunityAgent) Analyze(ctx context.Context, location string) (*models.CommunityReport, error) {
	categories := []struct {
		name  string
		query string
	}{
		{"news", fmt.Sprintf("%s local news community safety crime development", location)},
		{"schools", fmt.Sprintf("%s schools ratings education quality", location)},
		{"housing", fmt.Sprintf("%s housing prices per square meter average home size", location)},
	}

	var sections []string
	for _, cat := range categories {
		hits, err := a.provider.Search(ctx, cat.query)
		if err != nil {
			a.logger.Debug("community search failed", "category", cat.name, "error", err)
			continue
		}
		sections = append(sections, formatHits(cat.name, hits))
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("no community sources found for %s", location)
	}

	var reply communityReply
	err := a.gateway.CompleteJSON(ctx, llm.Request{
		System:      communitySystemPrompt,
		User:        fmt.Sprintf("Location: %s\n\n%s", location, strings.Join(sections, "\n")),
		MaxTokens:   900,
		Temperature: 0.2,
	}, &reply)
	if err != nil {
		return nil, fmt.Errorf("community analysis: %w", err)
	}

	report := &models.CommunityReport{
		Location:            location,
		OverallScore:        reply.Overall.Score,
		OverallExplanation:  reply.Overall.Explanation,
		SafetyScore:         reply.Safety.Score,
		SchoolRating:        reply.Schools.Score,
		SchoolExplanation:   reply.Schools.Explanation,
		PositiveStories:     reply.Safety.PositiveStories,
		NegativeStories:     reply.Safety.NegativeStories,
		HousingPricePerSqm:  reply.HousingAvg.PricePerSqm,
		AverageHouseSizeSqm: reply.HousingAvg.AvgSizeSqm,
	}
	if report.ClampScores() {
		a.logger.Warn("community scores out of range, clamped", "location", location)
	}
	return report, nil
}

func formatHits(category string, hits []models.SearchHit) string {
	if len(hits) == 0 {
		return fmt.Sprintf("No %s articles found.\n", category)
	}
	if len(hits) > communityHitLimit {
		hits = hits[:communityHitLimit]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s articles:\n", category)
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, hit.Title, hit.Snippet, hit.URL)
	}
	return b.String()
}
