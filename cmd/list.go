package cmd

import (
	"encoding/json"
	"fmt"

	listsrender "github.com/jfcl7/jcblock/internal/adapters/render/lists"
	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/spf13/cobra"
)

func newListCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Inspect and edit the allow and block lists",
	}

	cmd.AddCommand(
		newListShowCmd(app),
		newListAddCmd(app),
		newListCheckCmd(app),
	)

	return cmd
}

type listEntryJSON struct {
	Pattern     string `json:"pattern"`
	Permanent   bool   `json:"permanent"`
	Note        string `json:"note,omitempty"`
	LastMatched string `json:"last_matched"`
	MatchCount  int    `json:"match_count"`
}

func newListShowCmd(app *app) *cobra.Command {
	var (
		kind   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a list with its match history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listKind, err := domain.ParseListKind(kind)
			if err != nil {
				return err
			}

			list, err := app.lists.Show(cmd.Context(), listKind)
			if err != nil {
				return err
			}

			if asJSON {
				entries := make([]listEntryJSON, 0, list.Len())
				for _, entry := range list.Entries() {
					entries = append(entries, listEntryJSON{
						Pattern:     entry.Pattern,
						Permanent:   entry.Permanent,
						Note:        entry.Note,
						LastMatched: entry.LastMatched.String(),
						MatchCount:  entry.MatchCount,
					})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			opts := listsrender.RenderOptions{Now: app.clock.Now()}
			if listKind == domain.ListBlock {
				opts.Lifetime = app.cfg.Lifetime()
			}
			rendered, err := app.listRenderer(list, opts)
			if err != nil {
				return fmt.Errorf("render %s list: %w", listKind, err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&kind, "list", string(domain.ListBlock), "list to show: allow or block")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")

	return cmd
}

func newListAddCmd(app *app) *cobra.Command {
	var (
		kind      string
		permanent bool
		note      string
	)

	cmd := &cobra.Command{
		Use:   "add PATTERN",
		Short: "Append a pattern to a list",
		Long:  "add validates PATTERN as a case-insensitive regular expression anchored at the start of the number or name, then appends it to the list file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listKind, err := domain.ParseListKind(kind)
			if err != nil {
				return err
			}

			entry, err := app.lists.Add(cmd.Context(), listKind, args[0], permanent, note)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %q to %s list\n", entry.Pattern, listKind)
			return err
		},
	}

	cmd.Flags().StringVar(&kind, "list", string(domain.ListBlock), "list to append to: allow or block")
	cmd.Flags().BoolVar(&permanent, "permanent", false, "never purge this entry")
	cmd.Flags().StringVar(&note, "note", "", "free-form note stored with the entry")

	return cmd
}

func newListCheckCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check NUMBER [NAME]",
		Short: "Show what screening would decide for a caller",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}

			decision, err := app.lists.Check(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}

			if decision.Entry == nil {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), decision.Outcome)
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (pattern %q)\n", decision.Outcome, decision.Entry.Pattern)
			return err
		},
	}
}
