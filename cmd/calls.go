package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/spf13/cobra"
)

func newCallsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Report on the call log",
	}

	cmd.AddCommand(newCallsTopCmd(app))

	return cmd
}

func newCallsTopCmd(app *app) *cobra.Command {
	var (
		days   int
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the most frequent callers that neither list matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var top []domain.CallerCount
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Reading call log...", func(ctx context.Context) error {
				var err error
				top, err = app.reports.TopCallers(ctx, days, limit)
				return err
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(top)
			}

			rendered, err := app.callersRenderer(top, days)
			if err != nil {
				return fmt.Errorf("render callers: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "size of the window in days")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of callers to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print callers as JSON")

	return cmd
}
