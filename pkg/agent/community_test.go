package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout-ai/homescout/pkg/models"
)

func TestCommunityAnalyze(t *testing.T) {
	hits := []models.SearchHit{
		{Title: "Faro named safest city in the Algarve", URL: "https://news.example.pt/1", Snippet: "Crime down 12%."},
		{Title: "New school opens in Faro", URL: "https://news.example.pt/2", Snippet: "Capacity for 400 students."},
	}

	t.Run("builds a scored report", func(t *testing.T) {
		provider := &fakeProvider{hits: hits}
		gw, stub := newScriptedGateway(`{
			"location": "Faro",
			"overall": {"score": 7.5, "explanation": "Safe, growing city."},
			"safety": {"score": 8.0, "positive_stories": [{"title": "Crime down", "summary": "12% drop", "url": "https://news.example.pt/1"}], "negative_stories": []},
			"schools": {"score": 7.0, "explanation": "Solid public schools."},
			"housing_avg": {"housing_price_per_sqm": 2400, "average_house_size_sqm": 95}
		}`)
		a := NewCommunityAgent(provider, gw)

		report, err := a.Analyze(context.Background(), "Faro")

		require.NoError(t, err)
		assert.Equal(t, "Faro", report.Location)
		assert.Equal(t, 7.5, report.OverallScore)
		assert.Equal(t, 8.0, report.SafetyScore)
		assert.Equal(t, 7.0, report.SchoolRating)
		assert.Equal(t, 2400, report.HousingPricePerSqm)
		assert.Equal(t, 95, report.AverageHouseSizeSqm)
		require.Len(t, report.PositiveStories, 1)
		assert.Empty(t, report.NegativeStories)

		// One LLM pass over all three category searches.
		assert.Len(t, provider.queries, 3)
		require.Len(t, stub.prompts, 1)
		assert.Contains(t, stub.prompts[0], "news articles:")
		assert.Contains(t, stub.prompts[0], "schools articles:")
		assert.Contains(t, stub.prompts[0], "housing articles:")
	})

	t.Run("out-of-range scores clamped", func(t *testing.T) {
		provider := &fakeProvider{hits: hits}
		gw, _ := newScriptedGateway(`{
			"location": "Faro",
			"overall": {"score": 14.0, "explanation": ""},
			"safety": {"score": -2.0, "positive_stories": [], "negative_stories": []},
			"schools": {"score": 9.0, "explanation": ""},
			"housing_avg": {"housing_price_per_sqm": 0, "average_house_size_sqm": 0}
		}`)
		a := NewCommunityAgent(provider, gw)

		report, err := a.Analyze(context.Background(), "Faro")

		require.NoError(t, err)
		assert.Equal(t, 10.0, report.OverallScore)
		assert.Equal(t, 0.0, report.SafetyScore)
		assert.Equal(t, 9.0, report.SchoolRating)
	})

	t.Run("all searches failing is an error", func(t *testing.T) {
		provider := &fakeProvider{searchErr: errors.New("provider down")}
		gw, stub := newScriptedGateway()
		a := NewCommunityAgent(provider, gw)

		report, err := a.Analyze(context.Background(), "Faro")

		require.Error(t, err)
		assert.Nil(t, report)
		assert.Zero(t, stub.calls)
	})

	t.Run("analysis failure is an error", func(t *testing.T) {
		provider := &fakeProvider{hits: hits}
		gw, _ := newScriptedGateway("not json", "still not json")
		a := NewCommunityAgent(provider, gw)

		report, err := a.Analyze(context.Background(), "Faro")

		require.Error(t, err)
		assert.Nil(t, report)
	})
}

func TestFormatHits(t *testing.T) {
	t.Run("empty category", func(t *testing.T) {
		assert.Contains(t, formatHits("news", nil), "No news articles found.")
	})

	t.Run("caps at limit", func(t *testing.T) {
		var hits []models.SearchHit
		for i := 0; i < 12; i++ {
			hits = append(hits, models.SearchHit{Title: "t", URL: "https://x.pt", Snippet: "s"})
		}
		out := formatHits("news", hits)
		assert.Contains(t, out, "8. t")
		assert.NotContains(t, out, "9. t")
	})
}
