package cmd

import (
	"fmt"
	"io"

	"mergesync/internal/model"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.history()
			if err != nil {
				return err
			}

			runs, err := repo.GetRecent(n)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(out, "no history yet")
				return nil
			}

			printRuns(out, runs)

			stats, err := repo.GetStats()
			if err != nil {
				return fmt.Errorf("failed to load stats: %w", err)
			}
			_, _ = fmt.Fprintf(out, "\n%d runs, %d with errors, %d files copied, %d merged\n",
				stats.Runs, stats.Failed, stats.Copied, stats.Merged)

			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "number", "n", 20, "number of runs to show")

	cmd.AddCommand(newHistoryShowCmd(a), newHistoryFailedCmd(a), newHistoryPruneCmd(a))
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the files of one run (a unique id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.history()
			if err != nil {
				return err
			}

			run, err := repo.GetRun(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printRuns(out, []model.Run{run})
			_, _ = fmt.Fprintln(out)
			for _, f := range run.Files {
				printFileRecord(out, f)
			}
			return nil
		},
	}
}

func newHistoryFailedCmd(a *app) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List recent files that failed or raised warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.history()
			if err != nil {
				return err
			}

			records, err := repo.GetFailedFiles(n)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				_, _ = fmt.Fprintln(out, "no failures recorded")
				return nil
			}
			for _, f := range records {
				_, _ = fmt.Fprintf(out, "%s  ", shortID(f.RunID))
				printFileRecord(out, f)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "number", "n", 20, "number of records to show")
	return cmd
}

func newHistoryPruneCmd(a *app) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}

			repo, err := a.history()
			if err != nil {
				return err
			}

			deleted, err := repo.Prune(keep)
			if err != nil {
				return fmt.Errorf("failed to prune history: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d runs\n", deleted)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 50, "number of runs to keep")
	return cmd
}

func printRuns(w io.Writer, runs []model.Run) {
	for _, r := range runs {
		status := "✓"
		if r.Errors > 0 {
			status = "✗"
		}

		mode := ""
		if r.Simulated {
			mode = " (dry run)"
		}

		_, _ = fmt.Fprintf(w, "%s %s [%s] copied=%d merged=%d skipped=%d errors=%d%s\n    %s -> %s\n",
			status,
			shortID(r.ID),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Copied, r.Merged, r.Skipped, r.Errors, mode,
			r.Source, r.Dest,
		)
	}
}

func printFileRecord(w io.Writer, f model.FileRecord) {
	action := f.Action
	if f.Strategy != "" {
		action += "/" + f.Strategy
	}

	line := fmt.Sprintf("%-8s %-14s %s", f.Outcome, action, f.RelPath)
	if f.BackupPath != "" {
		line += "  backup=" + f.BackupPath
	}
	if f.ErrMsg != "" {
		line += "  " + f.ErrMsg
	}
	_, _ = fmt.Fprintln(w, line)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
