package config

import (
	"errors"
	"fmt"
)

// ErrMissingKey indicates a required environment variable is unset.
var ErrMissingKey = errors.New("missing required configuration")

// MissingKeyError names the exact environment variable that is unset so the
// message can be shown to the user verbatim.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required configuration: %s is not set", e.Key)
}

// Unwrap allows errors.Is(err, ErrMissingKey) checks.
func (e *MissingKeyError) Unwrap() error {
	return ErrMissingKey
}
