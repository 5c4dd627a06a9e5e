// Package session assembles the dialer components for one process: backend
// client, directory store, upload pipeline, asset registry, campaign
// orchestrator and the optional snapshot and asset bus.
//
// CLI commands build a Session, run one operation through it and close it.
// Watch keeps the live update channel open until the context ends, persisting
// every directory change to the snapshot and serving metrics when asked.
//
// Caller-side preconditions live here: call-all and export need a non-empty
// directory, and call-all needs an active recording.
package session
