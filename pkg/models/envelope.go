package models

// EnvelopeKind distinguishes the two directions of agent traffic.
type EnvelopeKind string

const (
	KindRequest  EnvelopeKind = "Request"
	KindResponse EnvelopeKind = "Response"
)

// Envelope is the typed message exchanged between the coordinator and an
// agent. Envelopes are value types and immutable once handed off; an agent
// answering a Request constructs a fresh Response rather than mutating the
// inbound message.
type Envelope struct {
	SessionID string       `json:"session_id"`
	Kind      EnvelopeKind `json:"kind"`
	Payload   any          `json:"payload"`
	Err       error        `json:"-"`
}

// NewRequest wraps a payload in a Request envelope for the given session.
func NewRequest(sessionID string, payload any) Envelope {
	return Envelope{SessionID: sessionID, Kind: KindRequest, Payload: payload}
}

// Respond builds the Response envelope paired with a request.
func (e Envelope) Respond(payload any, err error) Envelope {
	return Envelope{SessionID: e.SessionID, Kind: KindResponse, Payload: payload, Err: err}
}
