// Command sessiondb is a thin CLI for manual inspection and scripting
// against the session database: collecting transcripts, searching, listing
// sessions, recording approvals, and checking broker status. Every
// subcommand opens storage directly rather than going through a running
// Agent, the way the teacher's inspection subcommands work offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vimo-ai/ai-cli-session-db/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sessiondb",
		Short:        "Inspect and drive the session-history database",
		Version:      version.String("sessiondb"),
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newCollectCmd(),
		newSearchCmd(),
		newSessionsCmd(),
		newApproveCmd(),
		newStatusCmd(),
	)
	return cmd
}
