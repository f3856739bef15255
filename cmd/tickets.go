package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"adtraffic/internal/bootstrap"
	"adtraffic/internal/domain/trafficking"
	"adtraffic/internal/errs"
	"adtraffic/internal/ports"
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "List tickets in the record store",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		stage, _ := cmd.Flags().GetString("stage")
		assignee, _ := cmd.Flags().GetString("assignee")
		output, _ := cmd.Flags().GetString("format")
		mode, err := parseMode(output)
		if err != nil {
			return err
		}

		filter := ports.TicketFilter{Assignee: strings.TrimSpace(assignee)}
		if strings.TrimSpace(stage) != "" {
			filter.Stage, err = trafficking.ParseStage(stage)
			if err != nil {
				return err
			}
		}

		tickets, err := app.Browser.ListTickets(cmd.Context(), filter)
		if err != nil {
			return errs.Wrap(err, "list tickets")
		}
		if err := renderTickets(cmd.OutOrStdout(), tickets, mode); err != nil {
			return errs.Wrap(err, "write tickets output")
		}
		return nil
	}),
}

var qaLogCmd = &cobra.Command{
	Use:   "qa-log",
	Short: "Show the QA check log for a ticket",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ticketID, _ := cmd.Flags().GetString("ticket")
		output, _ := cmd.Flags().GetString("format")
		mode, err := parseMode(output)
		if err != nil {
			return err
		}

		checks, err := app.Browser.ListQAChecks(cmd.Context(), strings.TrimSpace(ticketID))
		if err != nil {
			return errs.Wrap(err, "list qa checks")
		}
		if err := renderQAChecks(cmd.OutOrStdout(), checks, mode); err != nil {
			return errs.Wrap(err, "write qa-log output")
		}
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the summary of the last batch run",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		output, _ := cmd.Flags().GetString("format")
		mode, err := parseMode(output)
		if err != nil {
			return err
		}

		sum, found, err := app.Pipeline.LastRun(cmd.Context())
		if err != nil {
			return err
		}
		if !found {
			_, err := cmd.OutOrStdout().Write([]byte("no run recorded yet\n"))
			return err
		}
		if err := renderSummary(cmd.OutOrStdout(), sum, mode); err != nil {
			return errs.Wrap(err, "write status output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(ticketsCmd, qaLogCmd, statusCmd)

	ticketsCmd.Flags().String("stage", "", "Only tickets in this stage")
	ticketsCmd.Flags().String("assignee", "", "Only tickets assigned to this user")
	ticketsCmd.Flags().String("format", "ascii", "Output format: ascii or markdown")

	qaLogCmd.Flags().String("ticket", "", "Ticket id")
	qaLogCmd.Flags().String("format", "ascii", "Output format: ascii or markdown")
	_ = qaLogCmd.MarkFlagRequired("ticket")

	statusCmd.Flags().String("format", "ascii", "Output format: ascii or markdown")
}
