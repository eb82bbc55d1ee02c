package models

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one transcript entry. Entries are append-only and ordered
// by arrival within a session.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// SearchHit is a single web search result prior to scraping.
type SearchHit struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Snippet    string `json:"snippet,omitempty"`
	DisplayURL string `json:"display_url,omitempty"`
}

// SearchResult is the completed output of one property search, stored on the
// session and reused for follow-up questions.
type SearchResult struct {
	Requirements Requirements        `json:"requirements"`
	Properties   []EnrichedCandidate `json:"properties"`
	Summary      string              `json:"search_summary"`
	TotalFound   int                 `json:"total_found"`
	Community    *CommunityReport    `json:"community_analysis,omitempty"`
}
