package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when the requested provider has no API key.
	ErrNotConfigured = errors.New("ai provider not configured")
	// ErrUnknownProvider is returned for a provider name that is not registered.
	ErrUnknownProvider = errors.New("unknown ai provider")
	// ErrEmptyInput is returned when there is nothing to summarize or speak.
	ErrEmptyInput = errors.New("empty input")
)

// APIError is a non-2xx answer from an AI provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}
