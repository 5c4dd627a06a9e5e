// Package campaign sequences the bulk operations run against the whole
// directory: clear, export and call-all.
//
// An Orchestrator runs one operation at a time. Each operation takes the
// loading gate for its duration and ends with exactly one status.Status,
// which replaces the previous one. A file Lock in the state directory
// extends the gate across dialer processes.
//
// Preconditions that depend on the rest of the session (a non-empty
// directory, an active recording) are checked by callers before they invoke
// the orchestrator.
package campaign
