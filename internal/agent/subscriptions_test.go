package agent

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vimo-ai/ai-cli-session-db/internal/protocol"
)

func TestSubscriberWantsRequiresExplicitSubscribe(t *testing.T) {
	table := newSubscriptionTable(0, 0, testLogger())
	sub, unregister := table.Register(func() {})
	defer unregister()

	assert.False(t, sub.wants(protocol.EventNewMessage), "no Subscribe call yet: nothing should be wanted")

	table.SetInterest(sub, []protocol.EventType{protocol.EventNewMessage})
	assert.True(t, sub.wants(protocol.EventNewMessage))
	assert.False(t, sub.wants(protocol.EventSessionStart))
}

// TestBroadcastRaceWithUnregister exercises the race the maintainer flagged:
// a broadcast in flight for a subscriber whose connection is disconnecting
// concurrently must never send on (or panic on) a channel unregister has
// already closed.
func TestBroadcastRaceWithUnregister(t *testing.T) {
	table := newSubscriptionTable(1, 50*time.Millisecond, testLogger())

	const subscribers = 20
	unregs := make([]func(), subscribers)
	for i := 0; i < subscribers; i++ {
		sub, unregister := table.Register(func() {})
		table.SetInterest(sub, []protocol.EventType{protocol.EventNewMessage})
		unregs[i] = unregister
	}

	push, err := protocol.NewPush(protocol.EventNewMessage, map[string]string{"session_id": "s1"})
	if err != nil {
		t.Fatalf("NewPush: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < subscribers; i++ {
		wg.Add(2)
		go func(unregister func()) {
			defer wg.Done()
			unregister()
		}(unregs[i])
		go func() {
			defer wg.Done()
			table.Broadcast(push)
		}()
	}
	wg.Wait()
	// Reaching here without a panic on a closed-channel send is the assertion.
}
