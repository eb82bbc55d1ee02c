package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/homescout-ai/homescout/pkg/config"
	"github.com/homescout-ai/homescout/pkg/llm"
	"github.com/homescout-ai/homescout/pkg/models"
	"github.com/homescout-ai/homescout/pkg/search"
)

// Research pipeline bounds.
const (
	maxSearchHits      = 20
	extractConcurrency = 5
	maxCandidates      = 10

	// minSurvivors triggers the broadened retry without the rooms filter.
	minSurvivors = 3

	// locationBoxDegrees is the half-side of the bounding box around a known
	// location center.
	locationBoxDegrees = 0.5
)

// ResearchResult is the research agent's answer: ranked candidates, a
// one-sentence summary, and the raw hits for transparency.
type ResearchResult struct {
	Candidates []models.Candidate
	Summary    string
	TotalFound int
	RawHits    []models.SearchHit
}

// ResearchAgent turns a completed requirement set into ranked listing
// candidates via web search, scraping, and LLM extraction.
type ResearchAgent struct {
	provider search.Provider
	gateway  *llm.Gateway
	domains  []string
	logger   *slog.Logger
}

// NewResearchAgent wires the research agent.
func NewResearchAgent(provider search.Provider, gateway *llm.Gateway, allowedDomains []string) *ResearchAgent {
	return &ResearchAgent{
		provider: provider,
		gateway:  gateway,
		domains:  allowedDomains,
		logger:   slog.Default().With("agent", "research"),
	}
}

// Run executes the full research pipeline. A fatal search failure yields an
// empty result with an explanatory summary rather than an error: the session
// keeps its requirements and the user can retry.
func (a *ResearchAgent) Run(ctx context.Context, req models.Requirements) (*ResearchResult, error) {
	query := SynthesizeQuery(req)
	a.logger.Info("searching listings", "query", query, "location", req.Location)

	hits, err := a.provider.Search(ctx, query)
	if err != nil {
		a.logger.Error("search failed", "kind", search.KindOf(err), "error", err)
		return &ResearchResult{
			Summary: fmt.Sprintf("We couldn't reach the listing search service for %s right now. Your requirements are saved, please try again in a moment.", req.Location),
		}, nil
	}

	allowed := a.filterAllowedDomains(hits)
	if len(allowed) == 0 {
		return &ResearchResult{
			RawHits: hits,
			Summary: fmt.Sprintf("We couldn't find any listings matching your criteria in %s. Try adjusting your budget, number of bedrooms, or search in a nearby area.", req.Location),
		}, nil
	}

	extracted := a.extractCandidates(ctx, allowed)

	survivors := applyFilters(extracted, req, true)
	if len(survivors) < minSurvivors && req.Bedrooms != nil {
		a.logger.Info("broadening search without rooms filter",
			"survivors", len(survivors))
		survivors = applyFilters(extracted, req, false)
	}

	rankCandidates(survivors, a.domains)
	if len(survivors) > maxCandidates {
		survivors = survivors[:maxCandidates]
	}

	result := &ResearchResult{
		Candidates: survivors,
		TotalFound: len(survivors),
		RawHits:    allowed,
	}
	result.Summary = a.summarize(ctx, req, survivors)
	return result, nil
}

// SynthesizeQuery builds the deterministic search string. Portuguese
// locations get Portuguese search terms with T-notation.
func SynthesizeQuery(req models.Requirements) string {
	_, portuguese := config.LookupLocation(req.Location)

	var b strings.Builder
	if portuguese {
		if req.Bedrooms != nil {
			fmt.Fprintf(&b, "apartamento T%d ", *req.Bedrooms)
		} else {
			b.WriteString("apartamento ")
		}
		if req.IsRent {
			b.WriteString("para arrendar em ")
		} else {
			b.WriteString("à venda em ")
		}
		b.WriteString(req.Location)
		if req.BudgetMax != nil {
			fmt.Fprintf(&b, " até %d€", *req.BudgetMax)
		}
	} else {
		if req.Bedrooms != nil {
			fmt.Fprintf(&b, "%d bedroom ", *req.Bedrooms)
		}
		if req.IsRent {
			b.WriteString("homes for rent in ")
		} else {
			b.WriteString("homes for sale in ")
		}
		b.WriteString(req.Location)
		if req.BudgetMax != nil {
			fmt.Fprintf(&b, " under $%d", *req.BudgetMax)
		}
	}
	return b.String()
}

// filterAllowedDomains keeps hits on known listing portals, capped at
// maxSearchHits, preserving order. Search responses repeat URLs across ad and
// organic slots; the first occurrence wins so each URL appears at most once
// in the result set.
func (a *ResearchAgent) filterAllowedDomains(hits []models.SearchHit) []models.SearchHit {
	seen := make(map[string]bool, len(hits))
	var out []models.SearchHit
	for _, hit := range hits {
		if seen[hit.URL] || domainPriority(hit.URL, a.domains) < 0 {
			continue
		}
		seen[hit.URL] = true
		out = append(out, hit)
		if len(out) == maxSearchHits {
			break
		}
	}
	return out
}

// domainPriority returns the allow-list index of the hit's host, or -1.
// Lower index means higher priority.
func domainPriority(rawURL string, domains []string) int {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return -1
	}
	host := strings.ToLower(parsed.Host)
	for i, domain := range domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return i
		}
	}
	return -1
}

const extractionSystemPrompt = `You extract real-estate listing data from scraped page markdown.
Respond with ONLY a JSON object in this shape, null for anything the page does not state:
{"title": "", "address": "", "city": "", "description": "", "image_url": null, "price": null, "currency": "EUR", "is_rent": false, "bedrooms": null, "bathrooms": null, "area_m2": null, "property_type": null, "latitude": null, "longitude": null}
The price must be a plain number without separators. Never invent values.`

// extractedListing is the extraction schema.
type extractedListing struct {
	Title        string   `json:"title"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	Description  string   `json:"description"`
	ImageURL     string   `json:"image_url"`
	Price        *int     `json:"price"`
	Currency     string   `json:"currency"`
	IsRent       bool     `json:"is_rent"`
	Bedrooms     *int     `json:"bedrooms"`
	Bathrooms    *float64 `json:"bathrooms"`
	AreaM2       *float64 `json:"area_m2"`
	PropertyType string   `json:"property_type"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// extractCandidates scrapes and extracts each hit with bounded concurrency.
// Failures drop the hit silently; order follows the input hits.
func (a *ResearchAgent) extractCandidates(ctx context.Context, hits []models.SearchHit) []models.Candidate {
	sem := semaphore.NewWeighted(extractConcurrency)
	results := make([]*models.Candidate, len(hits))

	var wg sync.WaitGroup
	for i, hit := range hits {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(idx int, hit models.SearchHit) {
			defer wg.Done()
			defer sem.Release(1)
			candidate, err := a.extractOne(ctx, hit)
			if err != nil {
				a.logger.Debug("extraction dropped hit", "url", hit.URL, "error", err)
				return
			}
			results[idx] = candidate
		}(i, hit)
	}
	wg.Wait()

	out := make([]models.Candidate, 0, len(hits))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func (a *ResearchAgent) extractOne(ctx context.Context, hit models.SearchHit) (*models.Candidate, error) {
	markdown, err := a.provider.ScrapeMarkdown(ctx, hit.URL)
	if err != nil {
		return nil, fmt.Errorf("scrape: %w", err)
	}

	var listing extractedListing
	err = a.gateway.CompleteJSON(ctx, llm.Request{
		System:      extractionSystemPrompt,
		User:        "Page URL: " + hit.URL + "\n\nMarkdown:\n" + truncateMarkdown(markdown),
		MaxTokens:   700,
		Temperature: 0.1,
	}, &listing)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if listing.Title == "" && listing.Address == "" {
		return nil, fmt.Errorf("listing has no title or address")
	}

	candidate := &models.Candidate{
		Title:        listing.Title,
		Address:      listing.Address,
		City:         listing.City,
		Description:  listing.Description,
		URL:          hit.URL,
		ImageURL:     listing.ImageURL,
		Bedrooms:     listing.Bedrooms,
		Bathrooms:    listing.Bathrooms,
		AreaM2:       listing.AreaM2,
		PropertyType: listing.PropertyType,
		Latitude:     listing.Latitude,
		Longitude:    listing.Longitude,
		RawSnippet:   hit.Snippet,
	}
	if listing.Price != nil {
		currency := listing.Currency
		if currency == "" {
			currency = "EUR"
		}
		candidate.Price = &models.Price{Amount: *listing.Price, Currency: currency, IsRent: listing.IsRent}
	}
	if candidate.ImageURL == "" {
		candidate.ImageURL = FirstImageFromMarkdown(markdown)
	}
	return candidate, nil
}

const maxMarkdownBytes = 12000

func truncateMarkdown(s string) string {
	if len(s) <= maxMarkdownBytes {
		return s
	}
	return s[:maxMarkdownBytes]
}

// applyFilters runs the location and budget/rooms filters, preserving order.
func applyFilters(candidates []models.Candidate, req models.Requirements, withRooms bool) []models.Candidate {
	var out []models.Candidate
	for _, c := range candidates {
		if !matchesLocation(c, req.Location) {
			continue
		}
		if !matchesBudget(c, req) {
			continue
		}
		if withRooms && !matchesRooms(c, req) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// matchesLocation accepts a candidate when the location token appears in its
// address, title, or city, or when its coordinates fall inside the bounding
// box around a known center for that location. Either signal suffices.
func matchesLocation(c models.Candidate, location string) bool {
	if location == "" {
		return true
	}
	textMatch := FoldContains(c.Address, location) ||
		FoldContains(c.Title, location) ||
		FoldContains(c.City, location)

	boxMatch := false
	if known, ok := config.LookupLocation(location); ok && c.HasCoordinates() {
		boxMatch = math.Abs(*c.Latitude-known.Lat) <= locationBoxDegrees &&
			math.Abs(*c.Longitude-known.Lon) <= locationBoxDegrees
		if textMatch != boxMatch {
			slog.Debug("location signals disagree, accepting",
				"url", c.URL, "text_match", textMatch, "box_match", boxMatch)
		}
	}
	return textMatch || boxMatch
}

// matchesBudget drops candidates priced above budget_max. Candidates without
// a price survive; they may still be worth showing.
func matchesBudget(c models.Candidate, req models.Requirements) bool {
	if req.BudgetMax == nil || c.Price == nil {
		return true
	}
	return c.Price.Amount <= *req.BudgetMax
}

// matchesRooms enforces the bedroom count. T-notation markets list exact
// bedroom counts, so known Portuguese locations require an exact match;
// elsewhere at-least is enough. Unknown counts survive.
func matchesRooms(c models.Candidate, req models.Requirements) bool {
	if req.Bedrooms == nil || c.Bedrooms == nil {
		return true
	}
	if _, portuguese := config.LookupLocation(req.Location); portuguese {
		return *c.Bedrooms == *req.Bedrooms
	}
	return *c.Bedrooms >= *req.Bedrooms
}

// rankCandidates stable-sorts by (has-coords, has-image, has-price, source
// priority), all descending.
func rankCandidates(candidates []models.Candidate, domains []string) {
	score := func(c models.Candidate) [4]int {
		var s [4]int
		if c.HasCoordinates() {
			s[0] = 1
		}
		if c.ImageURL != "" {
			s[1] = 1
		}
		if c.Price != nil {
			s[2] = 1
		}
		// Earlier allow-list entries outrank later ones.
		if p := domainPriority(c.URL, domains); p >= 0 {
			s[3] = len(domains) - p
		}
		return s
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := score(candidates[i]), score(candidates[j])
		for k := 0; k < len(a); k++ {
			if a[k] != b[k] {
				return a[k] > b[k]
			}
		}
		return false
	})
}

// summarize asks the model for a one-sentence summary of the result set,
// falling back to a deterministic sentence when the call fails.
func (a *ResearchAgent) summarize(ctx context.Context, req models.Requirements, candidates []models.Candidate) string {
	fallback := fmt.Sprintf("Found %d properties in %s matching your criteria.", len(candidates), req.Location)
	if len(candidates) == 0 {
		return fmt.Sprintf("We couldn't find any listings matching your criteria in %s. Try adjusting your budget, number of bedrooms, or search in a nearby area.", req.Location)
	}

	var lines []string
	for _, c := range candidates {
		price := "price unknown"
		if c.Price != nil {
			price = fmt.Sprintf("%d %s", c.Price.Amount, c.Price.Currency)
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", c.Title, price))
	}
	summary, err := a.gateway.Complete(ctx, llm.Request{
		System:      "You summarize property search results in ONE friendly sentence, in the language of the listings.",
		User:        fmt.Sprintf("Location: %s\nListings:\n%s", req.Location, strings.Join(lines, "\n")),
		MaxTokens:   120,
		Temperature: 0.5,
	})
	if err != nil || strings.TrimSpace(summary) == "" {
		a.logger.Debug("summary generation failed, using fallback", "error", err)
		return fallback
	}
	return strings.TrimSpace(summary)
}
