package upload

import (
	"errors"
	"fmt"

	"dialer/internal/backend"
)

var (
	// ErrInvalidFormat means the file does not carry a CSV extension.
	ErrInvalidFormat = fmt.Errorf("%w: invalid file format", backend.ErrValidation)
	// ErrTooLarge means the file exceeds the configured ceiling.
	ErrTooLarge = fmt.Errorf("%w: file too large", backend.ErrValidation)
	// ErrBusy is returned while another upload is in flight.
	ErrBusy = errors.New("upload already in progress")
)

// validationError carries the operator-facing message next to the detail.
type validationError struct {
	kind    error
	detail  string
	message string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%v: %s", e.kind, e.detail)
}

func (e *validationError) Unwrap() error {
	return e.kind
}

func (e *validationError) UserMessage() string {
	return e.message
}
