// Package backend is the HTTP transport to the calling service.
//
// Client wraps every REST endpoint the dialer consumes (directory listing,
// CSV ingest, clear, export, bulk call, recordings, account summary) and opens
// the server-sent business update stream. Each request carries an
// X-Request-ID so client and server logs can be joined.
//
// Failures are classified into three shapes: ErrValidation for local input
// problems, ErrTransport when no response arrived, and *ServerError for
// non-success responses with the server's error text when it sent one.
// UserMessage turns any of them into the line an operator sees.
package backend
