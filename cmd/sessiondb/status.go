package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether an Agent is running and summarize storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := config.FindAgent()
			if err != nil {
				return fmt.Errorf("check agent instance: %w", err)
			}
			if inst == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "agent: not running")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "agent: running pid=%d socket=%s started_at=%s\n",
					inst.PID, inst.SocketPath, inst.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
			}

			dbPath, err := config.DatabasePath()
			if err != nil {
				return fmt.Errorf("resolve database path: %w", err)
			}
			store, err := storage.Connect(dbPath)
			if err != nil {
				return fmt.Errorf("connect storage: %w", err)
			}
			defer store.Close()

			stats, err := store.GetStats()
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "projects=%d sessions=%d messages=%d\n",
				stats.Projects, stats.Sessions, stats.Messages)
			return nil
		},
	}
}
