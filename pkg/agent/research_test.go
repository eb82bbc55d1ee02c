package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout-ai/homescout/pkg/llm"
	"github.com/homescout-ai/homescout/pkg/models"
)

var testDomains = []string{"idealista.pt", "imovirtual.com", "casa.sapo.pt", "olx.pt"}

func TestSynthesizeQuery(t *testing.T) {
	tests := []struct {
		name string
		req  models.Requirements
		want string
	}{
		{
			name: "portuguese rental with t-notation",
			req: models.Requirements{
				Location: "Faro", Bedrooms: intPtr(2), BudgetMax: intPtr(900), IsRent: true,
			},
			want: "apartamento T2 para arrendar em Faro até 900€",
		},
		{
			name: "portuguese sale without bedrooms",
			req:  models.Requirements{Location: "Lagos", BudgetMax: intPtr(250000)},
			want: "apartamento à venda em Lagos até 250000€",
		},
		{
			name: "english market",
			req: models.Requirements{
				Location: "San Diego", Bedrooms: intPtr(3), BudgetMax: intPtr(800000),
			},
			want: "3 bedroom homes for sale in San Diego under $800000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SynthesizeQuery(tt.req))
		})
	}
}

func TestDomainPriority(t *testing.T) {
	assert.Equal(t, 0, domainPriority("https://www.idealista.pt/imovel/1", testDomains))
	assert.Equal(t, 1, domainPriority("https://imovirtual.com/x", testDomains))
	assert.Equal(t, -1, domainPriority("https://spam.example.com/x", testDomains))
	assert.Equal(t, -1, domainPriority("not a url", testDomains))
	// host suffix must be a subdomain boundary, not a substring
	assert.Equal(t, -1, domainPriority("https://evilidealista.pt.example.com/x", testDomains))
}

func candidateWith(url string, price *int, bedrooms *int, address string) models.Candidate {
	c := models.Candidate{Title: "Apartamento", Address: address, URL: url}
	if price != nil {
		c.Price = &models.Price{Amount: *price, Currency: "EUR", IsRent: true}
	}
	c.Bedrooms = bedrooms
	return c
}

func TestApplyFilters(t *testing.T) {
	req := models.Requirements{
		Location: "Faro", Bedrooms: intPtr(2), BudgetMax: intPtr(900), IsRent: true,
	}

	t.Run("budget law", func(t *testing.T) {
		candidates := []models.Candidate{
			candidateWith("https://idealista.pt/1", intPtr(700), intPtr(2), "Faro"),
			candidateWith("https://idealista.pt/2", intPtr(950), intPtr(2), "Faro"),
			candidateWith("https://idealista.pt/3", intPtr(1200), intPtr(2), "Faro"),
		}
		out := applyFilters(candidates, req, true)
		require.Len(t, out, 1)
		assert.Equal(t, 700, out[0].Price.Amount)
	})

	t.Run("location filter accepts diacritic-insensitive matches", func(t *testing.T) {
		reqOlhao := models.Requirements{Location: "Olhão", BudgetMax: intPtr(1000)}
		candidates := []models.Candidate{
			candidateWith("https://idealista.pt/1", intPtr(800), nil, "Centro, olhao"),
			candidateWith("https://idealista.pt/2", intPtr(800), nil, "Lisboa"),
		}
		out := applyFilters(candidates, reqOlhao, true)
		require.Len(t, out, 1)
		assert.Contains(t, out[0].Address, "olhao")
	})

	t.Run("bounding box rescues coordinate-only matches", func(t *testing.T) {
		inBox := candidateWith("https://idealista.pt/1", intPtr(800), nil, "Urbanização nova")
		inBox.Latitude = floatPtr(37.02)
		inBox.Longitude = floatPtr(-7.94)
		outBox := candidateWith("https://idealista.pt/2", intPtr(800), nil, "Quinta")
		outBox.Latitude = floatPtr(38.72)
		outBox.Longitude = floatPtr(-9.14)

		out := applyFilters([]models.Candidate{inBox, outBox}, models.Requirements{Location: "Faro"}, true)
		require.Len(t, out, 1)
		assert.Equal(t, "https://idealista.pt/1", out[0].URL)
	})

	t.Run("t-notation is an exact match in portuguese markets", func(t *testing.T) {
		candidates := []models.Candidate{
			candidateWith("https://idealista.pt/1", intPtr(800), intPtr(2), "Faro"),
			candidateWith("https://idealista.pt/2", intPtr(800), intPtr(3), "Faro"),
			candidateWith("https://idealista.pt/3", intPtr(800), nil, "Faro"),
		}
		out := applyFilters(candidates, req, true)
		require.Len(t, out, 2)
		assert.Equal(t, "https://idealista.pt/1", out[0].URL)
		assert.Equal(t, "https://idealista.pt/3", out[1].URL)
	})

	t.Run("rooms filter dropped when broadening", func(t *testing.T) {
		candidates := []models.Candidate{
			candidateWith("https://idealista.pt/1", intPtr(800), intPtr(3), "Faro"),
		}
		assert.Empty(t, applyFilters(candidates, req, true))
		assert.Len(t, applyFilters(candidates, req, false), 1)
	})
}

func TestRankCandidates(t *testing.T) {
	withCoords := candidateWith("https://olx.pt/1", intPtr(800), nil, "Faro")
	withCoords.Latitude = floatPtr(37.0)
	withCoords.Longitude = floatPtr(-7.9)
	withImage := candidateWith("https://idealista.pt/2", intPtr(850), nil, "Faro")
	withImage.ImageURL = "https://img/2.jpg"
	plain := candidateWith("https://idealista.pt/3", intPtr(700), nil, "Faro")
	noPrice := candidateWith("https://idealista.pt/4", nil, nil, "Faro")

	candidates := []models.Candidate{noPrice, plain, withImage, withCoords}
	rankCandidates(candidates, testDomains)

	assert.Equal(t, "https://olx.pt/1", candidates[0].URL)
	assert.Equal(t, "https://idealista.pt/2", candidates[1].URL)
	assert.Equal(t, "https://idealista.pt/3", candidates[2].URL)
	assert.Equal(t, "https://idealista.pt/4", candidates[3].URL)
}

func extractionJSON(title string, price int, bedrooms int) string {
	return fmt.Sprintf(`{"title":"%s","address":"Centro, Faro","city":"Faro","price":%d,"currency":"EUR","is_rent":true,"bedrooms":%d,"image_url":"https://img.example.com/p.jpg"}`, title, price, bedrooms)
}

func TestResearchRun(t *testing.T) {
	req := models.Requirements{
		Location: "Faro", Bedrooms: intPtr(2), BudgetMax: intPtr(900), IsRent: true,
	}

	t.Run("end to end with budget filtering", func(t *testing.T) {
		provider := &fakeProvider{
			hits: []models.SearchHit{
				{Title: "T2 1", URL: "https://www.idealista.pt/1"},
				{Title: "T2 2", URL: "https://www.idealista.pt/2"},
				{Title: "T2 3", URL: "https://www.idealista.pt/3"},
				{Title: "T2 4", URL: "https://www.idealista.pt/4"},
				{Title: "T2 5", URL: "https://www.idealista.pt/5"},
				{Title: "spam", URL: "https://spam.example.com/6"},
			},
			pages: map[string]string{
				"https://www.idealista.pt/1": "page one",
				"https://www.idealista.pt/2": "page two",
				"https://www.idealista.pt/3": "page three",
				"https://www.idealista.pt/4": "page four",
				"https://www.idealista.pt/5": "page five",
			},
		}
		stub := &keyedLLM{
			byPrompt: map[string]string{
				"https://www.idealista.pt/1": extractionJSON("T2 A", 700, 2),
				"https://www.idealista.pt/2": extractionJSON("T2 B", 850, 2),
				"https://www.idealista.pt/3": extractionJSON("T2 C", 900, 2),
				"https://www.idealista.pt/4": extractionJSON("T2 D", 950, 2),
				"https://www.idealista.pt/5": extractionJSON("T2 E", 1200, 2),
				"Listings:":                  "Encontrei 3 apartamentos T2 em Faro dentro do seu orçamento.",
			},
		}
		a := NewResearchAgent(provider, newGatewayFromKeyed(stub), testDomains)

		result, err := a.Run(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, 3, result.TotalFound)
		require.Len(t, result.Candidates, 3)
		for _, c := range result.Candidates {
			assert.LessOrEqual(t, c.Price.Amount, 900)
		}
		assert.Len(t, result.RawHits, 5, "disallowed domain filtered out")
		assert.Contains(t, result.Summary, "Faro")
	})

	t.Run("fatal search failure degrades to empty result", func(t *testing.T) {
		provider := &fakeProvider{searchErr: errors.New("provider exploded")}
		gw, _ := newScriptedGateway()
		a := NewResearchAgent(provider, gw, testDomains)

		result, err := a.Run(context.Background(), req)

		require.NoError(t, err)
		assert.Zero(t, result.TotalFound)
		assert.Empty(t, result.Candidates)
		assert.Contains(t, result.Summary, "try again")
	})

	t.Run("no allow-listed hits yields courteous empty summary", func(t *testing.T) {
		provider := &fakeProvider{hits: []models.SearchHit{{URL: "https://blog.example.com/1"}}}
		gw, _ := newScriptedGateway()
		a := NewResearchAgent(provider, gw, testDomains)

		result, err := a.Run(context.Background(), req)

		require.NoError(t, err)
		assert.Zero(t, result.TotalFound)
		assert.Contains(t, result.Summary, "couldn't find")
	})

	t.Run("broadened retry without rooms filter", func(t *testing.T) {
		provider := &fakeProvider{
			hits: []models.SearchHit{
				{URL: "https://www.idealista.pt/1"},
				{URL: "https://www.idealista.pt/2"},
				{URL: "https://www.idealista.pt/3"},
			},
			pages: map[string]string{
				"https://www.idealista.pt/1": "page one",
				"https://www.idealista.pt/2": "page two",
				"https://www.idealista.pt/3": "page three",
			},
		}
		stub := &keyedLLM{
			byPrompt: map[string]string{
				"https://www.idealista.pt/1": extractionJSON("T3 A", 700, 3),
				"https://www.idealista.pt/2": extractionJSON("T3 B", 750, 3),
				"https://www.idealista.pt/3": extractionJSON("T2 C", 800, 2),
				"Listings:":                  "Alarguei a pesquisa e encontrei 3 opções em Faro.",
			},
		}
		a := NewResearchAgent(provider, newGatewayFromKeyed(stub), testDomains)

		result, err := a.Run(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, 3, result.TotalFound)
	})

	t.Run("repeated hit urls collapse to one candidate", func(t *testing.T) {
		provider := &fakeProvider{
			hits: []models.SearchHit{
				{Title: "T2 1 (ad slot)", URL: "https://www.idealista.pt/1"},
				{Title: "T2 1 (organic)", URL: "https://www.idealista.pt/1"},
				{Title: "T2 2", URL: "https://www.idealista.pt/2"},
			},
			pages: map[string]string{
				"https://www.idealista.pt/1": "page one",
				"https://www.idealista.pt/2": "page two",
			},
		}
		stub := &keyedLLM{
			byPrompt: map[string]string{
				"https://www.idealista.pt/1": extractionJSON("T2 A", 700, 2),
				"https://www.idealista.pt/2": extractionJSON("T2 B", 850, 2),
				"Listings:":                  "Dois T2 em Faro dentro do orçamento.",
			},
		}
		a := NewResearchAgent(provider, newGatewayFromKeyed(stub), testDomains)

		result, err := a.Run(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, 2, result.TotalFound)
		assert.Len(t, result.RawHits, 2)
		urls := map[string]bool{}
		for _, c := range result.Candidates {
			assert.False(t, urls[c.URL], "url %s returned twice", c.URL)
			urls[c.URL] = true
		}
	})

	t.Run("extraction failures drop hits silently", func(t *testing.T) {
		provider := &fakeProvider{
			hits: []models.SearchHit{
				{URL: "https://www.idealista.pt/1"},
				{URL: "https://www.idealista.pt/2"},
			},
			pages: map[string]string{
				"https://www.idealista.pt/1": "page one",
				// page 2 missing: scrape fails
			},
		}
		stub := &keyedLLM{
			byPrompt: map[string]string{
				"https://www.idealista.pt/1": extractionJSON("T2 A", 700, 2),
				"Listings:":                  "Um T2 em Faro por 700€.",
			},
		}
		a := NewResearchAgent(provider, newGatewayFromKeyed(stub), testDomains)

		result, err := a.Run(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, 1, result.TotalFound)
	})
}

func newGatewayFromKeyed(stub *keyedLLM) *llm.Gateway {
	return llm.NewGatewayWithClient(stub, "test-model")
}
