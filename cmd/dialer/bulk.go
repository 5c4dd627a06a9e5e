package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dialer/internal/campaign"
	"dialer/internal/config"
	"dialer/internal/session"
)

func newClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every business from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := sessionConfig{opts: session.Options{SkipBus: true}, yes: yes}
			return ctx.withSession(cmd, sc, func(sess *session.Session) error {
				st, err := sess.Campaign.ClearDatabase(commandCtx(cmd))
				return reportStatus(cmd, st, err)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the directory as " + campaign.ExportFileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := session.Options{SkipBus: true}
			if dir := strings.TrimSpace(outDir); dir != "" {
				expanded, err := config.ExpandPath(dir)
				if err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
				opts.Saver = campaign.DirSaver{Dir: expanded}
			}
			return ctx.withSession(cmd, sessionConfig{opts: opts}, func(sess *session.Session) error {
				st, err := sess.ExportCSV(commandCtx(cmd))
				if errors.Is(err, session.ErrEmptyDirectory) {
					return errors.New("nothing to export: the directory is empty")
				}
				return reportStatus(cmd, st, err)
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to save the export in (defaults to paths.export_dir)")
	return cmd
}

func newCallAllCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "call-all",
		Short: "Start calling every business with the active recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := sessionConfig{opts: session.Options{SkipBus: true}, yes: yes}
			return ctx.withSession(cmd, sc, func(sess *session.Session) error {
				st, err := sess.CallAll(commandCtx(cmd))
				switch {
				case errors.Is(err, session.ErrEmptyDirectory):
					return errors.New("nothing to call: upload a CSV of businesses first")
				case errors.Is(err, session.ErrNoActiveRecording):
					return errors.New("no active recording: run `dialer recordings activate KEY` first")
				}
				return reportStatus(cmd, st, err)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
