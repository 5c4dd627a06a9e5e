package main

import (
	"github.com/spf13/cobra"

	"dialer/internal/session"
	"dialer/internal/status"
	"dialer/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE.csv",
		Short: "Upload a CSV of businesses to the directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := upload.LocalFile(args[0])
			if err != nil {
				return err
			}
			sc := sessionConfig{opts: session.Options{SkipBus: true}}
			return ctx.withSession(cmd, sc, func(sess *session.Session) error {
				st, err := sess.Upload.Submit(commandCtx(cmd), file)
				if err != nil && !st.IsError() {
					st = status.Failure(status.UploadFailed)
				}
				return reportStatus(cmd, st, err)
			})
		},
	}
}
