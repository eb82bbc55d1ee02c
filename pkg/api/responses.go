package api

// ChatEnvelope wraps every /api/chat reply. Status is "success" or "error";
// Data is one of the coordinator's reply shapes, or an ErrorData. SessionID
// echoes the conversation id so clients that let the server mint one can
// reuse it on the next turn.
type ChatEnvelope struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data"`
}

// ErrorData is the data payload of an error envelope. Message is safe to
// render directly in a chat bubble.
type ErrorData struct {
	Message string `json:"message"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string `json:"status"`
}

// NegotiateResponse is the POST /api/negotiate body.
type NegotiateResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	LeverageScore float64  `json:"leverage_score"`
	Findings      []string `json:"findings"`
	CallSummary   string   `json:"call_summary"`
	NextActions   []string `json:"next_actions"`
}
