package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures for retry and degradation decisions.
type ErrorKind int

const (
	// KindAuth — 401/403, the key is wrong or revoked. Never retried.
	KindAuth ErrorKind = iota
	// KindBadRequest — 400, the request itself is malformed. Never retried.
	KindBadRequest
	// KindRateLimit — 429. Retried with backoff.
	KindRateLimit
	// KindTransient — 5xx or network failure. Retried with backoff.
	KindTransient
	// KindParse — the model returned text that could not be repaired into JSON.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindBadRequest:
		return "bad_request"
	case KindRateLimit:
		return "rate_limit"
	case KindTransient:
		return "transient"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is the typed failure every gateway operation returns.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another attempt.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimit || e.Kind == KindTransient
}

// IsParseError reports whether err is a JSON repair failure.
func IsParseError(err error) bool {
	var lerr *Error
	return errors.As(err, &lerr) && lerr.Kind == KindParse
}
