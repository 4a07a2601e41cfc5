package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var projectID int64
	var orderFlag string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over ingested message content",
		Args:  cobra.ExactArgs(1),
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

			var projectPtr *int64
			if projectID > 0 {
				projectPtr = &projectID
			}

			order := storage.OrderScore
			switch orderFlag {
			case "time_desc":
				order = storage.OrderTimeDesc
			case "time_asc":
				order = storage.OrderTimeAsc
			}

			results, err := store.SearchFTS(args[0], limit, projectPtr, order, nil, nil)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] score=%.3f %s\n", r.SessionID, r.Score, r.Snippet)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	cmd.Flags().Int64Var(&projectID, "project-id", 0, "restrict search to one project (0 = all)")
	cmd.Flags().StringVar(&orderFlag, "order", "score", "result order: score, time_desc, time_asc")
	return cmd
}
