package session

import (
	"time"

	"github.com/homescout-ai/homescout/pkg/models"
)

// Session is the server-side memory for one conversational thread. All
// fields are guarded by the entry's mutex in the Store; callers mutate them
// only inside Store.With.
type Session struct {
	ID         string
	Transcript []models.ChatMessage

	// Partial holds the requirements being gathered; Complete flips once the
	// scoping gate passes. The next user turn after completion re-enters
	// gathering seeded with the prior requirements.
	Partial  models.Requirements
	Complete bool

	// LastResult is the most recent completed search, kept for follow-up
	// questions and refinement turns.
	LastResult *models.SearchResult

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppendUser adds a user turn to the transcript.
func (s *Session) AppendUser(text string) {
	s.Transcript = append(s.Transcript, models.ChatMessage{Role: models.RoleUser, Text: text})
	s.UpdatedAt = time.Now()
}

// AppendAssistant adds an assistant turn to the transcript.
func (s *Session) AppendAssistant(text string) {
	s.Transcript = append(s.Transcript, models.ChatMessage{Role: models.RoleAssistant, Text: text})
	s.UpdatedAt = time.Now()
}

// TranscriptCopy returns a snapshot safe to use outside the session lock.
func (s *Session) TranscriptCopy() []models.ChatMessage {
	out := make([]models.ChatMessage, len(s.Transcript))
	copy(out, s.Transcript)
	return out
}
