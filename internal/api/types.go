package api

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CallStatus tracks the outbound call lifecycle of one business.
type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallCalling   CallStatus = "calling"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
)

// Valid reports whether s is one of the known call states. The empty status
// means the business has not been queued yet and is also accepted.
func (s CallStatus) Valid() bool {
	switch s {
	case "", CallPending, CallCalling, CallCompleted, CallFailed:
		return true
	default:
		return false
	}
}

// Label renders the status for tables, e.g. "Completed".
func (s CallStatus) Label() string {
	value := strings.TrimSpace(string(s))
	if value == "" {
		return "-"
	}
	return cases.Title(language.English).String(value)
}

// Business is one row of the campaign directory as served by the backend.
type Business struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	HasDiscount     bool       `json:"hasDiscount"`
	DiscountAmount  string     `json:"discountAmount,omitempty"`
	DiscountDetails string     `json:"discountDetails,omitempty"`
	LastCalled      *time.Time `json:"lastCalled,omitempty"`
	CallStatus      CallStatus `json:"callStatus,omitempty"`
}

// Asset describes a stored voice recording.
type Asset struct {
	Key          string    `json:"key"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified,omitempty"`
}

// Created returns the creation time, falling back to the storage
// modification time older servers report instead.
func (a Asset) Created() time.Time {
	if !a.CreatedAt.IsZero() {
		return a.CreatedAt
	}
	return a.LastModified
}

// CallAllResponse is returned when a bulk call run has been accepted.
type CallAllResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the optional error payload of a failed request.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// AccountInfo summarizes the telephony account used by the backend.
type AccountInfo struct {
	FriendlyName     string   `json:"friendlyName"`
	Status           string   `json:"status"`
	Type             string   `json:"type"`
	PhoneNumber      string   `json:"phoneNumber"`
	RemainingBalance *float64 `json:"remainingBalance"`
}
