package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dialer/internal/api"
	"dialer/internal/session"
	"dialer/internal/status"
)

func newBusinessesCommand(ctx *commandContext) *cobra.Command {
	businessesCmd := &cobra.Command{
		Use:     "businesses",
		Aliases: []string{"biz"},
		Short:   "Inspect the business directory",
	}
	businessesCmd.AddCommand(newBusinessesListCommand(ctx))
	return businessesCmd
}

func newBusinessesListCommand(ctx *commandContext) *cobra.Command {
	var cached bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List businesses and their call status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := sessionConfig{opts: session.Options{SkipBus: true}}
			return ctx.withSession(cmd, sc, func(sess *session.Session) error {
				var businesses []api.Business
				if cached {
					records, err := sess.CachedDirectory(commandCtx(cmd))
					if err != nil {
						return fmt.Errorf("load cached directory: %w", err)
					}
					businesses = records
				} else {
					if err := sess.Directory.Refresh(commandCtx(cmd)); err != nil {
						return &statusFailure{st: status.Failure(status.FetchFailed), err: err}
					}
					businesses = sess.Directory.Snapshot().Businesses
				}
				if asJSON {
					if businesses == nil {
						businesses = []api.Business{}
					}
					return writeJSON(cmd, businesses)
				}
				out := cmd.OutOrStdout()
				if len(businesses) == 0 {
					fmt.Fprintln(out, "No businesses loaded")
					return nil
				}
				fmt.Fprintln(out, businessTable(businesses, time.Now()))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "Show the directory saved by the last session without contacting the backend")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
