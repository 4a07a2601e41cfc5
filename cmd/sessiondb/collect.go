package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vimo-ai/ai-cli-session-db/internal/collector"
	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

func newCollectCmd() *cobra.Command {
	var path string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Scan transcript roots and ingest new messages",
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

			var result collector.Result
			if path != "" {
				result = collector.CollectByPath(store, path)
			} else {
				result = collector.CollectAll(store)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "projects=%d sessions=%d messages_inserted=%d errors=%d\n",
				result.ProjectsScanned, result.SessionsScanned, result.MessagesInserted, result.ErrorCount)
			if verbose && result.FirstError != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "first_error: %s\n", result.FirstError)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "collect a single transcript file instead of scanning all roots")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print the first collection error, if any")
	return cmd
}
