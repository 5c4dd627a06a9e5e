// Package upload validates directory files and submits them to the backend.
//
// Validate is a pure local guard. Submit transmits a validated file, refreshes
// the directory on success and converts every failure into one status.
// Only one Submit runs at a time per Pipeline.
package upload
