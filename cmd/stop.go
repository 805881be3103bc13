package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Post(a.daemonURL("/stop"), "application/json", nil)
			if err != nil {
				return fmt.Errorf("daemon not running: %w", err)
			}

			defer func(Body io.ReadCloser) {
				_ = Body.Close()
			}(resp.Body)

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("stop failed: %s", resp.Status)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			return nil
		},
	}
}
