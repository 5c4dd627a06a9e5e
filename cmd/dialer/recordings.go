package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dialer/internal/assets"
	"dialer/internal/backend"
	"dialer/internal/session"
	"dialer/internal/status"
)

func newRecordingsCommand(ctx *commandContext) *cobra.Command {
	recordingsCmd := &cobra.Command{
		Use:     "recordings",
		Aliases: []string{"rec"},
		Short:   "Manage voice recordings played to businesses",
	}
	recordingsCmd.AddCommand(newRecordingsListCommand(ctx))
	recordingsCmd.AddCommand(newRecordingsActivateCommand(ctx))
	recordingsCmd.AddCommand(newRecordingsDeleteCommand(ctx))
	recordingsCmd.AddCommand(newRecordingsGenerateCommand(ctx))
	recordingsCmd.AddCommand(newRecordingsUploadCommand(ctx))
	return recordingsCmd
}

func newRecordingsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionConfig{}, func(sess *session.Session) error {
				entries, err := sess.Assets.List(commandCtx(cmd))
				if err != nil {
					return err
				}
				if asJSON {
					if entries == nil {
						entries = []assets.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No recordings stored")
					return nil
				}
				fmt.Fprintln(out, recordingTable(entries, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newRecordingsActivateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "activate KEY",
		Short: "Select the recording played during calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionConfig{}, func(sess *session.Session) error {
				err := sess.Assets.SetActive(commandCtx(cmd), args[0])
				return reportAssetResult(cmd, err, status.ActiveUpdated, status.ActiveFailed)
			})
		},
	}
}

func newRecordingsDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete a stored recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionConfig{yes: yes}, func(sess *session.Session) error {
				err := sess.Assets.Remove(commandCtx(cmd), args[0])
				return reportAssetResult(cmd, err, status.RecordingDeleted, status.DeleteFailed)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newRecordingsGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate the standard recording set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionConfig{}, func(sess *session.Session) error {
				err := sess.Assets.GenerateStandardSet(commandCtx(cmd))
				return reportAssetResult(cmd, err, status.RecordingsGenerated, status.GenerateFailed)
			})
		},
	}
}

func newRecordingsUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Store an audio file as a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open recording: %w", err)
			}
			defer file.Close()
			info, err := file.Stat()
			if err != nil {
				return fmt.Errorf("stat recording: %w", err)
			}
			rec := assets.Recording{Name: filepath.Base(path), Content: file, Size: info.Size()}
			return ctx.withSession(cmd, sessionConfig{}, func(sess *session.Session) error {
				err := sess.Assets.UploadRecording(commandCtx(cmd), rec)
				return reportAssetResult(cmd, err, status.RecordingSaved, status.RecordingFailed)
			})
		},
	}
}

func reportAssetResult(cmd *cobra.Command, err error, success, fallback string) error {
	if err == nil {
		return reportStatus(cmd, status.Success(success), nil)
	}
	if errors.Is(err, assets.ErrCancelled) {
		return reportStatus(cmd, status.None, err)
	}
	return reportStatus(cmd, status.Failure(backend.UserMessage(err, fallback)), err)
}
