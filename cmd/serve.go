package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mergesync/internal/daemon"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var flags pairFlags

	cmd := &cobra.Command{
		Use:   "serve [source] [destination]",
		Short: "Serve the HTTP API for a source/destination pair",
		Long: "Serve exposes status, run history and an on-demand sync endpoint on\n" +
			"127.0.0.1:<daemon_port>. It does not sync on its own; use watch --serve for that.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.resolve(args); err != nil {
				return err
			}

			s, err := a.openSession(&flags)
			if err != nil {
				return err
			}

			srv := daemon.NewServer(s.runner, s.runner.History(), a.settings.DaemonPort, a.log())
			srv.Start()

			a.log().Info("mergesync server started",
				zap.String("src", s.src),
				zap.String("dst", s.dst),
				zap.Int("port", a.settings.DaemonPort))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case sig := <-sigCh:
				a.log().Info("shutting down",
					zap.String("signal", sig.String()))
			case <-srv.StopCh():
				a.log().Info("stop requested via API")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Stop(ctx)
		},
	}

	flags.register(cmd)
	return cmd
}
