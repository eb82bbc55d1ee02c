package search

import (
	"encoding/json"
	"strings"

	"github.com/homescout-ai/homescout/pkg/models"
)

// organicResult mirrors the provider's search-engine JSON. Field names vary
// between engines, so both spellings are tried.
type organicResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet"`
	Description string `json:"description"`
	DisplayLink string `json:"display_link"`
	DisplayURL  string `json:"display_url"`
}

type searchPayload struct {
	Organic []organicResult `json:"organic"`
}

// parseSearchOutput turns raw tool output into hits. The provider usually
// returns a JSON document with an "organic" array; some engines fall back to
// a markdown listing of [title](url) links.
func parseSearchOutput(raw string) []models.SearchHit {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var payload searchPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil && len(payload.Organic) > 0 {
		hits := make([]models.SearchHit, 0, len(payload.Organic))
		for _, r := range payload.Organic {
			hit := models.SearchHit{
				Title:      r.Title,
				URL:        firstNonEmpty(r.Link, r.URL),
				Snippet:    firstNonEmpty(r.Snippet, r.Description),
				DisplayURL: firstNonEmpty(r.DisplayLink, r.DisplayURL),
			}
			if hit.URL != "" {
				hits = append(hits, hit)
			}
		}
		return hits
	}

	return parseMarkdownLinks(raw)
}

// parseMarkdownLinks extracts [title](url) pairs line by line.
func parseMarkdownLinks(raw string) []models.SearchHit {
	var hits []models.SearchHit
	for _, line := range strings.Split(raw, "\n") {
		open := strings.Index(line, "[")
		mid := strings.Index(line, "](")
		if open < 0 || mid < open {
			continue
		}
		end := strings.Index(line[mid+2:], ")")
		if end < 0 {
			continue
		}
		url := strings.TrimSpace(line[mid+2 : mid+2+end])
		if !strings.HasPrefix(url, "http") {
			continue
		}
		hits = append(hits, models.SearchHit{
			Title: strings.TrimSpace(line[open+1 : mid]),
			URL:   url,
		})
	}
	return hits
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
