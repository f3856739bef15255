package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"adtraffic/internal/bootstrap"
	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/errs"
	"adtraffic/internal/usecase/trafficking"
)

var errBatchIncomplete = errors.New("one or more tickets failed")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every pending trafficking ticket once",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := cmd.Context()

		parallel, _ := cmd.Flags().GetInt("parallel")
		noHealthCheck, _ := cmd.Flags().GetBool("no-health-check")
		output, _ := cmd.Flags().GetString("format")
		mode, err := parseMode(output)
		if err != nil {
			return err
		}
		if parallel <= 0 {
			parallel = app.Config.Pipeline.Parallel
		}

		batch, runErr := app.Pipeline.RunBatch(ctx, trafficking.RunInput{
			Parallel:    parallel,
			HealthCheck: app.Config.Pipeline.HealthCheck && !noHealthCheck,
		})
		if batch.RunID != "" {
			if err := renderBatch(cmd.OutOrStdout(), batch, mode); err != nil {
				return errs.Wrap(err, "write run output")
			}
		}
		if runErr != nil {
			return runErr
		}

		if n := batch.Count(trafficking.OutcomeError); n > 0 {
			logging.Warn(ctx, "batch finished with errors", slog.Int("errors", n))
			return errBatchIncomplete
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int("parallel", 0, "Tickets processed concurrently (0 uses pipeline.parallel)")
	runCmd.Flags().Bool("no-health-check", false, "Skip the SLA health check after the batch")
	runCmd.Flags().String("format", "ascii", "Summary format: ascii or markdown")
}
