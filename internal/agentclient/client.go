// Package agentclient implements the normal path clients use to talk to
// the Agent broker: connect (auto-launching the Agent if nothing answers),
// subscribe to push events, and send requests, all over the line-delimited
// JSON protocol. cmd/libsessiondb exposes this package's surface across a
// C ABI.
package agentclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vimo-ai/ai-cli-session-db/internal/config"
	"github.com/vimo-ai/ai-cli-session-db/internal/protocol"
)

// connectRetryWindow bounds how long Connect waits for an auto-launched
// Agent to start answering.
const connectRetryWindow = 2 * time.Second

// PushCallback is invoked (from an internal goroutine) for every push event
// the Agent delivers. Implementations must not block for long.
type PushCallback func(eventType protocol.EventType, data json.RawMessage)

// ErrNotConnected is returned by request methods called before Connect
// succeeds or after Disconnect.
var ErrNotConnected = fmt.Errorf("agentclient: not connected")

// ErrAgentNotFound is returned by Connect when no Agent answers and no
// agentd binary could be located to auto-launch.
var ErrAgentNotFound = fmt.Errorf("agentclient: agentd binary not found")

// Client is the AgentClientHandle: a connection to the broker, auto-launch
// aware, safe for concurrent use from arbitrary goroutines (mirroring the
// thread-safety the C ABI promises across OS threads).
type Client struct {
	component      string
	dataDir        string
	agentSourceDir string
	socketPath     string

	launchGroup singleflight.Group

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	pushCB    PushCallback
	pending   map[string]chan protocol.Response
	nextID    uint64
}

// New constructs a Client for component (a human-readable identifier logged
// by the Agent, e.g. "terminal-app"). An empty dataDir defaults to
// config.Dir(). agentSourceDir is the directory holding the agentd binary;
// when empty, the binary is looked up next to the running executable and
// then on PATH.
func New(component, dataDir, agentSourceDir string) (*Client, error) {
	if dataDir == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}
	socketPath, err := socketPathFor(dataDir)
	if err != nil {
		return nil, err
	}
	return &Client{
		component:      component,
		dataDir:        dataDir,
		agentSourceDir: agentSourceDir,
		socketPath:     socketPath,
		pending:        make(map[string]chan protocol.Response),
	}, nil
}

func socketPathFor(dataDir string) (string, error) {
	return dataDir + "/agent.sock", nil
}

// Connect dials the Agent socket. If nothing answers, it auto-launches the
// agentd binary (deduplicating concurrent auto-launch attempts from
// concurrent Connect calls on this Client via singleflight) and retries for
// connectRetryWindow before giving up.
func (c *Client) Connect(ctx context.Context) error {
	if conn, err := c.dialOnce(); err == nil {
		return c.attach(conn)
	}

	_, err, _ := c.launchGroup.Do("launch", func() (any, error) {
		if conn, dialErr := c.dialOnce(); dialErr == nil {
			conn.Close()
			return nil, nil // another goroutine already has/owns a live Agent
		}
		return nil, c.launchAgent()
	})
	if err != nil {
		return err
	}

	deadline := time.Now().Add(connectRetryWindow)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, dialErr := c.dialOnce()
		if dialErr == nil {
			return c.attach(conn)
		}
		lastErr = dialErr
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return fmt.Errorf("agentclient: connect failed after retry window: %w", lastErr)
}

func (c *Client) dialOnce() (net.Conn, error) {
	return net.DialTimeout("unix", c.socketPath, 200*time.Millisecond)
}

func (c *Client) launchAgent() error {
	var binPath string
	if c.agentSourceDir != "" {
		binPath = filepath.Join(c.agentSourceDir, "agentd")
	} else {
		binPath = config.FindAgentBinary()
	}
	if binPath == "" {
		return ErrAgentNotFound
	}

	cmd := exec.Command(binPath)
	cmd.Env = append(cmd.Env, "VIMO_DATA_DIR="+c.dataDir)
	if err := config.StartBackground(cmd); err != nil {
		// Treat a race where another process's Agent grabbed the socket
		// between our dial attempt and Start as success, not failure.
		if conn, dialErr := c.dialOnce(); dialErr == nil {
			conn.Close()
			return nil
		}
		return fmt.Errorf("agentclient: launch agent: %w", err)
	}
	return nil
}

func (c *Client) attach(conn net.Conn) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn net.Conn) {
	dec := protocol.NewDecoder(conn)
	for {
		var probe json.RawMessage
		ok, err := dec.Decode(&probe)
		if err != nil || !ok {
			c.handleDisconnect()
			return
		}

		var resp protocol.Response
		if json.Unmarshal(probe, &resp) == nil && resp.ID != "" {
			c.mu.Lock()
			ch, found := c.pending[resp.ID]
			if found {
				delete(c.pending, resp.ID)
			}
			c.mu.Unlock()
			if found {
				ch <- resp
				continue
			}
		}

		var push protocol.Push
		if json.Unmarshal(probe, &push) == nil {
			c.mu.Lock()
			cb := c.pushCB
			c.mu.Unlock()
			if cb != nil {
				cb(push.EventType, push.Data)
			}
		}
	}
}

func (c *Client) handleDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// SetPushCallback installs the function invoked for every push event. Pass
// nil to stop receiving callbacks.
func (c *Client) SetPushCallback(cb PushCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushCB = cb
}

// IsConnected reports whether the underlying socket connection is live.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect closes the connection and cancels pending requests; their
// responses, if any arrive, are discarded.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	err := c.conn.Close()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	return err
}

func (c *Client) send(req protocol.Request) (protocol.Response, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return protocol.Response{}, ErrNotConnected
	}
	c.nextID++
	req.ID = fmt.Sprintf("%s-%d", c.component, c.nextID)
	ch := make(chan protocol.Response, 1)
	c.pending[req.ID] = ch
	conn := c.conn
	c.mu.Unlock()

	enc := protocol.NewEncoder(conn)
	if err := enc.Encode(req); err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return protocol.Response{}, fmt.Errorf("agentclient: %w", err)
	}

	resp, ok := <-ch
	if !ok {
		return protocol.Response{}, ErrNotConnected
	}
	return resp, nil
}

// Subscribe declares interest in the given event types for this connection.
func (c *Client) Subscribe(events []protocol.EventType) error {
	_, err := c.send(protocol.Request{Type: protocol.ReqSubscribe, Events: events})
	return err
}

// NotifyFileChange asks the Agent to collect the given transcript file.
func (c *Client) NotifyFileChange(path string) error {
	resp, err := c.send(protocol.Request{Type: protocol.ReqNotifyFileChange, Path: path})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("agentclient: %s: %s", resp.ErrKind, resp.ErrMessage)
	}
	return nil
}

// WriteApproveResult records an approval decision for a tool call.
func (c *Client) WriteApproveResult(toolCallID string, status protocol.ApprovalStatus, resolvedAt *int64) error {
	resp, err := c.send(protocol.Request{
		Type:       protocol.ReqWriteApproveResult,
		ToolCallID: toolCallID,
		Status:     &status,
		ResolvedAt: resolvedAt,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("agentclient: %s: %s", resp.ErrKind, resp.ErrMessage)
	}
	return nil
}
