package cmd

import (
	"github.com/spf13/cobra"

	"adtraffic/internal/bootstrap"
	"adtraffic/internal/errs"
)

var slaCmd = &cobra.Command{
	Use:   "sla",
	Short: "Check open tickets for SLA breaches and alert once",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		output, _ := cmd.Flags().GetString("format")
		mode, err := parseMode(output)
		if err != nil {
			return err
		}

		res, err := app.Pipeline.CheckSLA(cmd.Context())
		if err != nil {
			return err
		}
		if err := renderSLA(cmd.OutOrStdout(), res, mode); err != nil {
			return errs.Wrap(err, "write sla output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(slaCmd)
	slaCmd.Flags().String("format", "ascii", "Output format: ascii or markdown")
}
