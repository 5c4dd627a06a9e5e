package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dialer/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check backend reachability and local directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Dialer", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Backend URL", statusInfo, cfg.Backend.BaseURL, colorize))
			liveDetail := "Disabled"
			liveKind := statusWarn
			if cfg.Live.Enabled {
				liveDetail = fmt.Sprintf("Enabled (reconnect after %s)", cfg.ReconnectDelay())
				liveKind = statusInfo
			}
			fmt.Fprintln(out, renderStatusLine("Live updates", liveKind, liveDetail, colorize))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(commandCtx(cmd), cfg)
			for _, line := range preflightLines(results, colorize) {
				fmt.Fprintln(out, line)
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
