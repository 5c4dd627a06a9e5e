// Package live keeps the push subscription to the backend's business update
// stream and applies each pushed record to the directory.
//
// A Channel is a small state machine (Disconnected, Connecting, Connected)
// driven by one goroutine. That goroutine owns the stream and the single
// reconnect timer. When the stream fails or the server closes it, the channel
// drops to Disconnected and retries after a fixed delay, forever. Close
// cancels the stream, stops any pending timer and waits for the goroutine to
// exit, so no reconnect can happen after Close returns.
//
// Undecodable messages are dropped without disturbing the connection.
package live
