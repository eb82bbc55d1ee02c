package search

import (
	"errors"
	"fmt"
)

// Kind classifies provider failures.
type Kind int

const (
	// ProviderAuth — the token was rejected. Not retried.
	ProviderAuth Kind = iota
	// ProviderRateLimit — throttled. Retried with jittered backoff.
	ProviderRateLimit
	// ProviderTransient — transport hiccup. Retried once with a fresh session.
	ProviderTransient
	// ProviderFatal — anything else. Surfaced to the caller.
	ProviderFatal
)

func (k Kind) String() string {
	switch k {
	case ProviderAuth:
		return "auth"
	case ProviderRateLimit:
		return "rate_limit"
	case ProviderTransient:
		return "transient"
	case ProviderFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ProviderError is the typed failure for both search and scrape operations.
type ProviderError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("search provider %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind, defaulting to ProviderFatal for
// unrecognized errors.
func KindOf(err error) Kind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ProviderFatal
}
