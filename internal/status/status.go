// Package status models the single user-facing outcome of an operation.
package status

import "strings"

// Kind classifies a Status for rendering.
type Kind string

const (
	KindNone    Kind = "none"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Status is the result of the most recently completed operation. A new
// Status replaces the previous one; they are never merged.
type Status struct {
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
}

// None is the zero status shown before any operation completed.
var None = Status{Kind: KindNone}

// Success builds a success status.
func Success(message string) Status {
	return Status{Message: strings.TrimSpace(message), Kind: KindSuccess}
}

// Failure builds an error status.
func Failure(message string) Status {
	return Status{Message: strings.TrimSpace(message), Kind: KindError}
}

// IsError reports whether s describes a failure.
func (s Status) IsError() bool {
	return s.Kind == KindError
}

// IsZero reports whether no operation has produced a status yet.
func (s Status) IsZero() bool {
	return s.Message == "" && (s.Kind == "" || s.Kind == KindNone)
}

func (s Status) String() string {
	return s.Message
}
