package ai

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModelUnavailable marks a vendor reply saying the model does not
	// exist or is not supported for this endpoint. Adapters advance to the
	// next candidate model on it.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrEmptyResponse is returned when the vendor replied without text.
	ErrEmptyResponse = errors.New("no completion returned")

	// ErrNoProviders is reported when no provider is configured at all.
	ErrNoProviders = errors.New("no AI providers available")
)

// SafetyBlockError is returned when a vendor's content filter rejected the
// prompt or the reply.
type SafetyBlockError struct {
	Category string
	Reason   string
}

func (e *SafetyBlockError) Error() string {
	cat := e.Category
	if cat == "" {
		cat = "unspecified"
	}
	if e.Reason == "" {
		return fmt.Sprintf("content blocked by safety filter (category: %s)", cat)
	}
	return fmt.Sprintf("content blocked by safety filter (category: %s, reason: %s)", cat, e.Reason)
}

// APIError is a non-2xx reply from a REST vendor.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

var modelUnavailableMarkers = []string{
	"model_not_found",
	"model not found",
	"is not found",
	"does not exist",
	"not supported for generatecontent",
	"unsupported model",
	"invalid model",
	"no such model",
	"not_found_error",
	"unknown model",
}

// isModelUnavailable reports whether err means "try a different model".
// Vendors disagree on status codes, so the message is inspected as well.
func isModelUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrModelUnavailable) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range modelUnavailableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func asSafetyBlock(err error) (*SafetyBlockError, bool) {
	var sb *SafetyBlockError
	if errors.As(err, &sb) {
		return sb, true
	}
	return nil, false
}
