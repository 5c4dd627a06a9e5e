package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dialer/internal/api"
	"dialer/internal/backend"
	"dialer/internal/metrics"
)

func newAccountCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show the telephony account used by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg, false)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			client, err := backend.NewFromConfig(cfg, logger, metrics.Default())
			if err != nil {
				return err
			}
			info, err := client.AccountInfo(commandCtx(cmd))
			if err != nil {
				return fmt.Errorf("load account info: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, info)
			}
			fmt.Fprintln(cmd.OutOrStdout(), accountTable(info))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func accountTable(info api.AccountInfo) string {
	rows := [][]string{
		{"Name", valueOrNA(info.FriendlyName)},
		{"Status", valueOrNA(info.Status)},
		{"Type", valueOrNA(info.Type)},
		{"Phone number", valueOrNA(info.PhoneNumber)},
		{"Balance", balanceLabel(info.RemainingBalance)},
	}
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func balanceLabel(balance *float64) string {
	if balance == nil {
		return "n/a"
	}
	return "$" + humanize.CommafWithDigits(*balance, 2)
}

func valueOrNA(value string) string {
	if value == "" {
		return "n/a"
	}
	return value
}
