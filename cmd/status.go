package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mergesync/internal/model"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(a.daemonURL("/status"))
			if err != nil {
				return fmt.Errorf("daemon not running: %w", err)
			}

			defer func(Body io.ReadCloser) {
				_ = Body.Close()
			}(resp.Body)

			var snap model.ServerSnapshot
			if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
				return fmt.Errorf("failed to decode status response: %w", err)
			}

			printStatus(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func printStatus(w io.Writer, snap model.ServerSnapshot) {
	state := "idle"
	if snap.Running {
		state = "running"
	}

	lastSync := "-"
	if snap.LastSync != nil {
		lastSync = snap.LastSync.Format("2006-01-02 15:04:05")
	}

	_, _ = fmt.Fprintf(w, "%-8s %s -> %s\n", state, snap.Source, snap.Dest)
	_, _ = fmt.Fprintf(w, "uptime:    %s\n", time.Since(snap.StartedAt).Round(time.Second))
	_, _ = fmt.Fprintf(w, "runs:      %d\n", snap.Runs)
	_, _ = fmt.Fprintf(w, "last sync: %s\n", lastSync)
	if snap.LastRun != nil {
		_, _ = fmt.Fprintf(w, "last run:  %s %s\n", shortID(snap.LastRun.RunID), snap.LastRun.Summary())
	}
}
