package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dialer/internal/directory"
	"dialer/internal/live"
	"dialer/internal/session"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var metricsBind string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow live call status updates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			bind := strings.TrimSpace(metricsBind)
			if !cmd.Flags().Changed("metrics") {
				bind = cfg.Metrics.Bind
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var mu sync.Mutex
			emit := func(line string) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintln(out, line)
			}
			return ctx.withSession(cmd, sessionConfig{toStderr: true}, func(sess *session.Session) error {
				return sess.Watch(commandCtx(cmd), session.WatchOptions{
					MetricsBind: bind,
					OnState: func(state live.State) {
						emit(renderStatusLine("Live", liveStateKind(state), state.String(), colorize))
					},
					OnDirectory: func(snap directory.Snapshot) {
						emit(renderStatusLine("Directory", statusInfo, directorySummary(snap), colorize))
					},
				})
			})
		},
	}
	cmd.Flags().StringVar(&metricsBind, "metrics", "", "Serve Prometheus metrics on this address (overrides metrics.bind)")
	return cmd
}

func liveStateKind(state live.State) statusKind {
	switch state {
	case live.Connected:
		return statusOK
	case live.Connecting:
		return statusWarn
	default:
		return statusError
	}
}

func directorySummary(snap directory.Snapshot) string {
	counts := map[string]int{}
	for _, b := range snap.Businesses {
		counts[b.CallStatus.Label()]++
	}
	parts := []string{fmt.Sprintf("%s businesses", humanize.Comma(int64(snap.Len())))}
	for _, label := range []string{"Calling", "Completed", "Failed"} {
		if n := counts[label]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(label)))
		}
	}
	return strings.Join(parts, ", ")
}
