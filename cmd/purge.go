package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/spf13/cobra"
)

func newPurgeCmd(app *app) *cobra.Command {
	var lifetimeDays int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Comment out block list entries that have not matched recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lifetime := app.cfg.Lifetime()
			if cmd.Flags().Changed("lifetime-days") {
				if lifetimeDays <= 0 {
					return fmt.Errorf("--lifetime-days must be positive, got %d", lifetimeDays)
				}
				lifetime = time.Duration(lifetimeDays) * 24 * time.Hour
			}

			var purged []domain.PurgedEntry
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Purging block list...", func(ctx context.Context) error {
				var err error
				purged, err = app.lists.Purge(ctx, lifetime)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(purged) == 0 {
				_, err = fmt.Fprintln(out, "nothing to purge")
				return err
			}

			for _, entry := range purged {
				if _, err := fmt.Fprintf(out, "purged %s (last blocked %s, count %d)\n", entry.Pattern, entry.LastMatched, entry.MatchCount); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(out, "previous list saved to %s\n", app.blockRepo.BackupPath())
			return err
		},
	}

	cmd.Flags().IntVar(&lifetimeDays, "lifetime-days", 0, "purge entries idle longer than this many days (default purge.lifetime_days)")

	return cmd
}
