package models

// Finding is one piece of negotiation intelligence about a property.
type Finding struct {
	Category      string  `json:"category"`
	Summary       string  `json:"summary"`
	LeverageScore float64 `json:"leverage_score"`
	Details       string  `json:"details,omitempty"`
	SourceURL     string  `json:"source_url,omitempty"`
}

// NegotiationRecord is the outcome of one voice-call negotiation. It is
// returned directly to the HTTP caller and never persisted.
type NegotiationRecord struct {
	Address       string    `json:"address"`
	CallerName    string    `json:"caller_name"`
	CallerEmail   string    `json:"caller_email"`
	Brief         string    `json:"brief,omitempty"`
	Findings      []Finding `json:"findings"`
	LeverageScore float64   `json:"leverage_score"`
	CallSummary   string    `json:"call_summary"`
	NextActions   []string  `json:"next_actions"`
	Success       bool      `json:"success"`
}

// FindingSummaries extracts the one-line summaries for the HTTP response.
func (r *NegotiationRecord) FindingSummaries() []string {
	out := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		out = append(out, f.Summary)
	}
	return out
}
