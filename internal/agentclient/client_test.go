package agentclient

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vimo-ai/ai-cli-session-db/internal/agent"
	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/protocol"
	"github.com/vimo-ai/ai-cli-session-db/internal/storage"
)

// startTestAgent runs a real Agent in-process, listening on a temp socket,
// so client tests exercise the actual wire protocol without a subprocess.
func startTestAgent(t *testing.T) (dataDir, socketPath string) {
	t.Helper()
	dataDir = t.TempDir()
	socketPath = filepath.Join(dataDir, "agent.sock")

	store, err := storage.Connect(filepath.Join(dataDir, "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.Watch.Enabled = false

	a, err := agent.New(socketPath, store, cfg, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go a.Run(ctx)

	require.Eventually(t, func() bool {
		c, err := New("test", dataDir, "")
		if err != nil {
			return false
		}
		return c.dialOnceOK()
	}, 2*time.Second, 10*time.Millisecond)

	return dataDir, socketPath
}

// dialOnceOK is a small test-only convenience wrapping dialOnce.
func (c *Client) dialOnceOK() bool {
	conn, err := c.dialOnce()
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func TestConnectToRunningAgent(t *testing.T) {
	dataDir, _ := startTestAgent(t)

	c, err := New("test-component", dataDir, "")
	require.NoError(t, err)

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())
}

func TestSubscribeAndWriteApproveResultRoundTrip(t *testing.T) {
	dataDir, _ := startTestAgent(t)

	c, err := New("test-component", dataDir, "")
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))

	received := make(chan protocol.EventType, 1)
	c.SetPushCallback(func(eventType protocol.EventType, data json.RawMessage) {
		received <- eventType
	})

	require.NoError(t, c.Subscribe([]protocol.EventType{protocol.EventNewMessage}))
	require.NoError(t, c.WriteApproveResult("tc-1", protocol.ApprovalApproved, nil))
}

func TestConnectFailsWithoutAgentOrBinary(t *testing.T) {
	dataDir := t.TempDir()
	c, err := New("test-component", dataDir, "/nonexistent/path/to/agentd")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	err = c.Connect(ctx)
	assert.Error(t, err)
	assert.False(t, c.IsConnected())
}

func TestDisconnectClosesConnection(t *testing.T) {
	dataDir, _ := startTestAgent(t)
	c, err := New("test-component", dataDir, "")
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Disconnect())
	assert.False(t, c.IsConnected())

	err = c.NotifyFileChange("/tmp/x.jsonl")
	assert.ErrorIs(t, err, ErrNotConnected)
}
