package backend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks local input problems that never reach the network.
	ErrValidation = errors.New("validation error")
	// ErrTransport marks failures where no response was received.
	ErrTransport = errors.New("transport error")
)

// ServerError reports a non-success response. Message carries the
// server-provided error text when the body contained one.
type ServerError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Endpoint, e.Status)
}

// IsServerError reports whether err carries a non-success response.
func IsServerError(err error) bool {
	var serverErr *ServerError
	return errors.As(err, &serverErr)
}

// UserMessage picks the text shown to an operator for err: the server's
// message when present, the validation detail for local errors, otherwise
// fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) && strings.TrimSpace(serverErr.Message) != "" {
		return strings.TrimSpace(serverErr.Message)
	}
	var userErr interface{ UserMessage() string }
	if errors.As(err, &userErr) {
		if msg := strings.TrimSpace(userErr.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}

func transportError(endpoint string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, endpoint, err)
}
