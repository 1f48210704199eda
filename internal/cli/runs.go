package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryohei-iwamoto/mml-mvp/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Archetype string
	Source    string
	Limit     int
}

// RunInfo is one stored run in the JSON listing.
type RunInfo struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source,omitempty"`
	Part        string    `json:"part"`
	Archetype   string    `json:"archetype"`
	Fingerprint string    `json:"fingerprint"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored pipeline runs",
		Long: `List runs recorded in the SQLite run store, newest first.

--archetype matches exactly; --source matches a substring of the input
path; --limit caps the listing (0 lists everything).

Examples:
  mml runs --db runs.db
  mml runs --db runs.db --archetype bracket --limit 10
  mml runs --db runs.db --source sketch --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Archetype, "archetype", "", "filter by archetype (exact match)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "filter by source substring")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum runs to list (0 = all)")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return outputInputError(formatter, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("closing run store", "error", closeErr)
		}
	}()

	runs, err := st.ListRuns(ctx, store.RunFilter{
		Archetype: opts.Archetype,
		Source:    opts.Source,
		Limit:     opts.Limit,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing runs", err)
	}

	if formatter.Format == "json" {
		infos := make([]RunInfo, len(runs))
		for i, r := range runs {
			infos[i] = RunInfo{
				ID:          r.ID,
				CreatedAt:   r.CreatedAt,
				Source:      r.Source,
				Part:        r.Part,
				Archetype:   r.Archetype,
				Fingerprint: r.Fingerprint,
			}
		}
		return formatter.Success(infos)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs stored.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  %-8s %-20s %s\n",
			r.CreatedAt.Format(time.RFC3339),
			truncateID(r.ID),
			r.Archetype,
			r.Part,
			truncateID(r.Fingerprint))
		if opts.Verbose && r.Source != "" {
			fmt.Fprintf(formatter.Writer, "  source: %s\n", r.Source)
		}
	}
	fmt.Fprintf(formatter.Writer, "%d run(s)\n", len(runs))
	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
