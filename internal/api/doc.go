// Package api defines the wire-format types exchanged with the calling
// backend: directory rows, voice recordings, bulk call responses, error
// payloads and the telephony account summary.
//
// DTOs use camelCase JSON tags to match the backend. Optional fields are
// pointers or omitempty strings so a live update carrying only a subset of
// fields still decodes into a complete Business value.
package api
