package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

func newSessionsCmd() *cobra.Command {
	var projectID int64

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions, optionally scoped to one project",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := config.DatabasePath()
			if err != nil {
				return fmt.Errorf("resolve database path: %w", err)
			}
			store, err := storage.Connect(dbPath)
			if err != nil {
				return fmt.Errorf("connect storage: %w", err)
			}
			defer store.Close()

			if projectID == 0 {
				projects, err := store.ListProjects()
				if err != nil {
					return fmt.Errorf("list projects: %w", err)
				}
				for _, p := range projects {
					printSessionsForProject(cmd, store, p.ID, p.Path)
				}
				return nil
			}

			return printSessionsForProject(cmd, store, projectID, "")
		},
	}

	cmd.Flags().Int64Var(&projectID, "project-id", 0, "restrict to one project (0 = all projects)")
	return cmd
}

func printSessionsForProject(cmd *cobra.Command, store *storage.Store, projectID int64, label string) error {
	sessions, err := store.ListSessions(projectID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, s := range sessions {
		last := int64(0)
		if s.LastMessageAt != nil {
			last = *s.LastMessageAt
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tmessages=%d\tlast_message_at=%d\t%s\n",
			s.SessionID, s.MessageCount, last, label)
	}
	return nil
}
