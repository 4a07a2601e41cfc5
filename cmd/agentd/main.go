// Command agentd runs the single-writer Agent broker: it owns the session
// database exclusively, accepts client connections on a local Unix socket,
// and watches transcript roots for changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vimo-ai/ai-cli-session-db/internal/agent"
	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
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
		Use:          "agentd",
		Short:        "Single-writer session-history broker",
		Version:      version.String("agentd"),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context())
		},
	}
	return cmd
}

func runAgent(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.LogLevel)

	dbPath, err := config.DatabasePath()
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	socketPath, err := config.SocketPath()
	if err != nil {
		return fmt.Errorf("resolve socket path: %w", err)
	}

	store, err := storage.Connect(dbPath)
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer store.Close()

	a, err := agent.New(socketPath, store, cfg, log)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}

	if err := config.RegisterAgent(config.AgentInstance{
		PID:        os.Getpid(),
		SocketPath: socketPath,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to register agent instance")
	}
	defer config.UnregisterAgent(os.Getpid())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("socket", socketPath).Str("db", dbPath).Msg("agent starting")
		return a.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, agent.ErrAlreadyRunning) {
			log.Info().Str("socket", socketPath).Msg("another agent already owns this socket, exiting")
			return nil
		}
		return err
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}
