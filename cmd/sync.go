package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mergesync/internal/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSyncCmd(a *app) *cobra.Command {
	var (
		flags   pairFlags
		dryRun  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "sync [source] [destination]",
		Short: "Sync the source tree into the destination once",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The summary line is printed even when the run never starts.
			if err := flags.resolve(args); err != nil {
				printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), model.Report{}, false)
				return err
			}

			s, err := a.openSession(&flags)
			if err != nil {
				printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), model.Report{}, false)
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.log().Info("starting sync",
				zap.String("src", s.src),
				zap.String("dst", s.dst),
				zap.Bool("dry_run", dryRun))

			report, err := s.runner.Run(ctx, dryRun)
			printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report, verbose)
			if err != nil {
				return &exitError{code: exitRunErrors, err: err}
			}

			if report.HasErrors() {
				return &exitError{code: exitRunErrors}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report what would change without writing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every file")

	return cmd
}
