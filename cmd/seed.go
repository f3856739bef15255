package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"adtraffic/internal/bootstrap"
	"adtraffic/internal/errs"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load reference data, campaigns and tickets into the local record store",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		file, _ := cmd.Flags().GetString("file")

		ds, err := app.SeedFile(cmd.Context(), file)
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded %s: %d campaign(s), %d ticket(s)\n", file, len(ds.Campaigns), len(ds.Tickets)); err != nil {
			return errs.Wrap(err, "write seed output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("file", "configs/fixtures.yaml", "Fixtures YAML file")
}
