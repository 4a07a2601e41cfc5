// Package agent implements the single-writer broker: the long-lived
// process that owns the Storage handle exclusively, accepts IPC
// connections, serializes collection work, and fans out push events to
// subscribers.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vimo-ai/ai-cli-session-db/internal/collector"
	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/pathparser"
	"github.com/vimo-ai/ai-cli-session-db/internal/protocol"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

// ErrAlreadyRunning is returned by Run when another Agent already owns
// the socket at this data directory.
var ErrAlreadyRunning = errors.New("agent: already running")

// Agent is the broker process: it owns Store, arbitrates writes implicitly
// through Store's single writer goroutine, and pushes change events to
// subscribed connections.
type Agent struct {
	socketPath string
	store      *storage.Store
	cfg        config.Config
	log        zerolog.Logger

	listener net.Listener
	subs     *subscriptionTable
	watcher  *fileWatcher
}

// New constructs an Agent bound to socketPath, reading and writing through
// store. Callers obtain store via storage.Connect against config.DatabasePath.
func New(socketPath string, store *storage.Store, cfg config.Config, log zerolog.Logger) (*Agent, error) {
	a := &Agent{
		socketPath: socketPath,
		store:      store,
		cfg:        cfg,
		log:        log,
		subs:       newSubscriptionTable(cfg.Push.QueueSize, cfg.Push.BlockTimeoutDuration(), log),
	}

	if cfg.Watch.Enabled {
		w, err := newFileWatcher(cfg.Watch.DebounceDuration(), a.handleWatchedChange, log)
		if err != nil {
			return nil, fmt.Errorf("agent: create watcher: %w", err)
		}
		a.watcher = w
	}

	return a, nil
}

// Run binds the socket, starts the file watcher (if enabled), and serves
// client connections until ctx is canceled. It returns ErrAlreadyRunning
// immediately, without side effects, if another Agent already answers on
// socketPath.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.bindSocket(); err != nil {
		return err
	}
	defer a.listener.Close()
	defer os.Remove(a.socketPath)

	g, gctx := errgroup.WithContext(ctx)

	if a.watcher != nil {
		a.watcher.watchRoots(pathparser.DefaultRoots())
		g.Go(func() error { return a.watcher.Run(gctx) })
	}

	g.Go(func() error { return a.acceptLoop(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		a.listener.Close()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// bindSocket rejects a second bind: if an existing socket answers, another
// Agent already owns this data directory. Otherwise it clears a stale
// socket file (left behind by a crash) and listens fresh.
func (a *Agent) bindSocket() error {
	if conn, err := net.DialTimeout("unix", a.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return ErrAlreadyRunning
	}
	if err := os.Remove(a.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("agent: remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", a.socketPath)
	if err != nil {
		return fmt.Errorf("agent: listen on %s: %w", a.socketPath, err)
	}
	a.listener = ln
	return nil
}

func (a *Agent) acceptLoop(ctx context.Context) error {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			a.log.Warn().Err(err).Msg("agent: accept failed")
			continue
		}
		go a.handleConn(ctx, conn)
	}
}

func (a *Agent) handleWatchedChange(path string) {
	result := collector.CollectByPath(a.store, path)
	if result.ErrorCount > 0 {
		a.log.Warn().Str("path", path).Str("error", result.FirstError).Msg("agent: watcher collection failed")
		return
	}
	if result.MessagesInserted > 0 {
		a.notifyNewMessages(path, result.MessagesInserted)
	}
}

// notifyNewMessages resolves the session id for a transcript path and
// broadcasts one NewMessage event carrying the batch's inserted count.
func (a *Agent) notifyNewMessages(path string, inserted int) {
	sessionID := sessionIDFromPath(path)
	push, err := protocol.NewPush(protocol.EventNewMessage, protocol.NewMessageData{
		SessionID:     sessionID,
		InsertedCount: inserted,
	})
	if err != nil {
		a.log.Error().Err(err).Msg("agent: failed to build push event")
		return
	}
	a.subs.Broadcast(push)
}

func sessionIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}
