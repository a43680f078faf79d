package media

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMediaType indicates a media type key outside movie|tv|music.
	ErrUnknownMediaType = errors.New("unknown media type")

	// ErrEmptyTerm indicates a blank search term.
	ErrEmptyTerm = errors.New("search term is required")

	// ErrInvalidBody indicates an add request body that is not a JSON object.
	ErrInvalidBody = errors.New("request body must be a JSON object")

	// ErrBackendNotConfigured indicates the backend has no URL or API key.
	ErrBackendNotConfigured = errors.New("backend not configured")

	// ErrUpstreamUnreachable indicates a transport failure talking to the backend.
	ErrUpstreamUnreachable = errors.New("backend unreachable")

	// ErrLookupFailed indicates the backend answered a lookup with a non-200 status.
	ErrLookupFailed = errors.New("lookup failed")

	// ErrAddFailed indicates the backend refused an add request.
	ErrAddFailed = errors.New("add failed")
)

// Error describes a failed backend operation. It wraps one of the sentinel
// errors above and, when the backend answered, carries its status code.
type Error struct {
	Label  string // backend label, e.g. "Movie"
	Status int    // downstream HTTP status, 0 if there was no response
	Detail string // human-readable detail extracted from the downstream body
	Err    error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %v", e.Label, e.Err)
	if e.Status != 0 {
		s += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the caller-facing description.
func (e *Error) Message() string {
	switch {
	case errors.Is(e.Err, ErrBackendNotConfigured):
		return e.Label + " service is not configured"
	case errors.Is(e.Err, ErrUpstreamUnreachable):
		return "Could not reach " + e.Label + " service"
	case errors.Is(e.Err, ErrLookupFailed):
		return e.Label + " lookup failed"
	case errors.Is(e.Err, ErrAddFailed):
		msg := "Failed to add to " + e.Label
		if e.Detail != "" {
			msg += ": " + e.Detail
		}
		return msg
	default:
		return e.Label + " request failed"
	}
}
