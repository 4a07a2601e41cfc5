package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

func newApproveCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "approve <tool-call-id>",
		Short: "Record an approval decision for a tool call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s storage.ApprovalStatus
			switch status {
			case "approved":
				s = storage.ApprovalApproved
			case "rejected":
				s = storage.ApprovalRejected
			case "timeout":
				s = storage.ApprovalTimeout
			default:
				return fmt.Errorf("unknown status %q: want approved, rejected, or timeout", status)
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

			rows, err := store.UpdateApprovalStatus(args[0], s, nil)
			if err != nil {
				return fmt.Errorf("update approval: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated=%d\n", rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "approved, rejected, or timeout")
	cmd.MarkFlagRequired("status")
	return cmd
}
