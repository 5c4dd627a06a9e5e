package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"dialer/internal/assets"
	"dialer/internal/preflight"
	"dialer/internal/status"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

// renderOutcome prints an operation status the way the status banner shows
// it: green for success, red for failure.
func renderOutcome(st status.Status, colorize bool) string {
	kind := statusInfo
	switch st.Kind {
	case status.KindSuccess:
		kind = statusOK
	case status.KindError:
		kind = statusError
	}
	line := st.Message
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// statusFailure carries a failed status to main, which prints only the
// status message. The underlying cause is in the log.
type statusFailure struct {
	st  status.Status
	err error
}

func (e *statusFailure) Error() string { return e.st.Message }

func (e *statusFailure) Unwrap() error { return e.err }

// reportStatus prints a successful status, turns a failed one into an
// error and treats a declined confirmation as a quiet no-op.
func reportStatus(cmd *cobra.Command, st status.Status, err error) error {
	out := cmd.OutOrStdout()
	switch {
	case errors.Is(err, assets.ErrCancelled):
		fmt.Fprintln(out, "Cancelled")
		return nil
	case err != nil && st.IsError():
		return &statusFailure{st: st, err: err}
	case err != nil:
		return err
	}
	if !st.IsZero() {
		fmt.Fprintln(out, renderOutcome(st, shouldColorize(out)))
	}
	return nil
}
