package clawhub

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the hub base URL or agent token is
// missing. This is a configuration error, never retried.
var ErrNotConfigured = errors.New("clawhub: base_url and agent_token are required")

// ErrInvalidChannelID is returned when a channel identifier fails the
// allowed pattern. Rejected before any network call.
var ErrInvalidChannelID = errors.New("clawhub: invalid channel id")

// ErrIncompleteMessage is returned when an inbound envelope lacks content
// or sender name.
var ErrIncompleteMessage = errors.New("clawhub: missing content or sender_name")

// DeliveryError is a non-retryable (or retry-exhausted) hub response.
// Body is best-effort; a failed body read leaves it empty rather than
// masking the status.
type DeliveryError struct {
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("clawhub: hub returned status %d", e.Status)
	}
	return fmt.Sprintf("clawhub: hub returned status %d: %s", e.Status, e.Body)
}

// ErrorKind maps an error to the kind tag surfaced to the host's error
// callback.
func ErrorKind(err error) string {
	var de *DeliveryError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return "config"
	case errors.Is(err, ErrInvalidChannelID):
		return "invalid_input"
	case errors.Is(err, ErrIncompleteMessage):
		return "client"
	case errors.As(err, &de):
		return "delivery"
	default:
		return "network"
	}
}
