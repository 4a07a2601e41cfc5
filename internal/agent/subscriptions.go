package agent

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vimo-ai/ai-cli-session-db/internal/protocol"
)

// defaultOutboundQueueSize bounds each connection's pending-push buffer. The exact
// size is not prescribed by the wire contract; this is the configurable
// default referenced by config.PushConfig.QueueSize.
const defaultOutboundQueueSize = 256

// defaultRetainedBlockTimeout is how long Broadcast will block trying to enqueue a
// retained event (NewMessage, SessionStart, SessionEnd) before giving up and
// closing the slow connection.
const defaultRetainedBlockTimeout = 200 * time.Millisecond

// isRetained reports whether an event type must never be silently dropped.
// HookEvent is transient UI signal and may be dropped under backpressure;
// everything else is retained up to the bounded queue.
func isRetained(t protocol.EventType) bool {
	return t != protocol.EventHookEvent
}

// subscriber is one connection's outbound push channel plus its declared
// event-type interest.
type subscriber struct {
	ch     chan protocol.Push
	events map[protocol.EventType]bool
	closed bool
	cancel func() // closes the owning connection when backpressure forces a drop
}

func (s *subscriber) wants(t protocol.EventType) bool {
	if len(s.events) == 0 {
		return false // no explicit Subscribe yet: nothing declared means nothing delivered
	}
	return s.events[t]
}

// subscriptionTable fans push events out to every subscribed connection,
// applying the configured backpressure policy per event type.
type subscriptionTable struct {
	mu          sync.RWMutex
	subs        map[*subscriber]struct{}
	queueSize   int
	blockFor    time.Duration
	log         zerolog.Logger
}

func newSubscriptionTable(queueSize int, blockFor time.Duration, log zerolog.Logger) *subscriptionTable {
	if queueSize <= 0 {
		queueSize = defaultOutboundQueueSize
	}
	if blockFor <= 0 {
		blockFor = defaultRetainedBlockTimeout
	}
	return &subscriptionTable{
		subs:      make(map[*subscriber]struct{}),
		queueSize: queueSize,
		blockFor:  blockFor,
		log:       log,
	}
}

// Register adds a new connection's subscriber record and returns that
// record (whose ch is the outbound channel) plus an unregister function.
func (t *subscriptionTable) Register(cancel func()) (*subscriber, func()) {
	sub := &subscriber{
		ch:     make(chan protocol.Push, t.queueSize),
		events: make(map[protocol.EventType]bool),
		cancel: cancel,
	}
	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	unregister := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.subs[sub]; ok {
			delete(t.subs, sub)
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
		}
	}
	return sub, unregister
}

// SetInterest records which event types a subscriber's connection declared
// via Subscribe.
func (t *subscriptionTable) SetInterest(sub *subscriber, events []protocol.EventType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub.events = make(map[protocol.EventType]bool, len(events))
	for _, e := range events {
		sub.events[e] = true
	}
}

// Broadcast delivers push to every subscriber interested in its event type.
// HookEvent pushes are dropped on a full queue (logged, not fatal); retained
// event types block up to blockFor before the connection is force-closed,
// guaranteeing at-most-once, never-silently-lost delivery for NewMessage and
// lifecycle events.
func (t *subscriptionTable) Broadcast(push protocol.Push) {
	t.mu.RLock()
	targets := make([]*subscriber, 0, len(t.subs))
	for sub := range t.subs {
		if !sub.closed && sub.wants(push.EventType) {
			targets = append(targets, sub)
		}
	}
	t.mu.RUnlock()

	for _, sub := range targets {
		t.deliver(sub, push)
	}
}

// deliver holds the table's read lock for the full attempt, including any
// blocking wait on a retained event. This is the same lock unregister takes
// exclusively to close sub.ch, so a subscriber can never be closed out from
// under a send in flight for it.
func (t *subscriptionTable) deliver(sub *subscriber, push protocol.Push) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if sub.closed {
		return
	}

	select {
	case sub.ch <- push:
		return
	default:
	}

	if !isRetained(push.EventType) {
		t.log.Warn().Str("event_type", push.EventType.String()).Msg("dropping hook event for slow subscriber")
		return
	}

	timer := time.NewTimer(t.blockFor)
	defer timer.Stop()
	select {
	case sub.ch <- push:
	case <-timer.C:
		t.log.Warn().Str("event_type", push.EventType.String()).Msg("subscriber queue overflowed, closing connection")
		if sub.cancel != nil {
			sub.cancel()
		}
	}
}
