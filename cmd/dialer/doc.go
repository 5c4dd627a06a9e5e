// Package main hosts the dialer CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into calls against the
// calling backend: directory listing and CSV upload, the bulk clear, export
// and call-all operations, recording management, and a long-running watch
// that follows live call status. Configuration resolution, logger setup and
// session wiring live in context.go so subcommands only describe what they
// do and how to print it.
//
// New behaviour belongs in the internal packages first; commands here stay
// thin wrappers that render a Status, a table or JSON.
package main
