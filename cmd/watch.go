package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mergesync/internal/daemon"
	"mergesync/internal/model"
	"mergesync/internal/watcher"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		flags   pairFlags
		serve   bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "watch [source] [destination]",
		Short: "Sync once, then resync whenever the source changes",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.resolve(args); err != nil {
				return err
			}

			s, err := a.openSession(&flags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			onReport := func(r model.Report) {
				printReport(out, errOut, r, verbose)
			}

			report, err := s.runner.Run(ctx, false)
			if err != nil {
				return err
			}
			onReport(report)

			w, err := watcher.New(a.settings.BufferSize, a.log(), s.skipDir)
			if err != nil {
				return err
			}
			defer w.Stop()

			if err := w.Watch(s.src); err != nil {
				return err
			}

			if serve {
				srv := daemon.NewServer(s.runner, s.runner.History(), a.settings.DaemonPort, a.log())
				srv.Start()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Stop(shutdownCtx)
				}()

				go func() {
					select {
					case <-srv.StopCh():
						a.log().Info("stop requested via API")
						stop()
					case <-ctx.Done():
					}
				}()
			}

			batches := daemon.Pipeline(w.Events(), s.src, s.classifier, daemon.PipelineOptions{
				Debounce: a.settings.Debounce,
			})

			a.log().Info("watching for changes",
				zap.String("src", s.src),
				zap.Duration("debounce", a.settings.Debounce))

			return s.runner.Watch(ctx, batches, onReport)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&serve, "serve", false, "also start the HTTP API")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every file")

	return cmd
}

// skipDir keeps the watcher out of excluded directories and out of a
// destination nested inside the source.
func (s *session) skipDir(path string) bool {
	if path == s.dst || strings.HasPrefix(path, s.dst+string(filepath.Separator)) {
		return true
	}

	rel, err := filepath.Rel(s.src, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return s.classifier.Excluded(filepath.ToSlash(rel))
}
