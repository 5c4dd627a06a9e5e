// Package snapshot persists the last known directory and active recording in
// a local SQLite database.
//
// The watch session writes every committed directory change and every active
// recording change. Short-lived CLI commands read it back to render the
// directory offline (businesses list --cached) and to mark the active
// recording, which the backend's asset list does not report.
package snapshot
