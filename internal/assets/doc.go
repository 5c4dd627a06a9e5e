// Package assets manages the voice recordings used for outbound calls and
// the single active recording selection.
//
// The active key only changes after the backend confirms it. Removing the
// active recording leaves no recording active.
//
// Components that add recordings announce it on a Bus. A Registry watching
// the bus refreshes its list on every signal, so producers never reference
// the registry directly. LocalBus serves a single process and RedisBus
// bridges several processes over Redis pub/sub.
package assets
