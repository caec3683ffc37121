// ABOUTME: Tests for the lifecycle event notifier
// ABOUTME: Verifies fan-out, non-blocking publish, unsubscription, and context cleanup

package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_FanOut(t *testing.T) {
	n := NewNotifier(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1, _ := n.Subscribe(ctx)
	ch2, _ := n.Subscribe(ctx)

	n.Publish(Event{Type: EventConversationCreated, ConversationID: "c1"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case event := <-ch:
			assert.Equal(t, EventConversationCreated, event.Type)
			assert.Equal(t, "c1", event.ConversationID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := NewNotifier(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, subID := n.Subscribe(ctx)
	n.Unsubscribe(subID)

	_, ok := <-ch
	assert.False(t, ok, "channel closed after unsubscribe")

	// Publishing after unsubscription must not panic
	n.Publish(Event{Type: EventTurnAppended, ConversationID: "c1"})
}

func TestNotifier_SlowSubscriberDropsEvents(t *testing.T) {
	n := NewNotifier(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _ := n.Subscribe(ctx)

	// Overfill the buffer; publish must never block
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize*2; i++ {
			n.Publish(Event{Type: EventTurnAppended, ConversationID: "c1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			assert.Equal(t, subscriberBufferSize, received)
			return
		}
	}
}

func TestNotifier_ContextCancellationCleansUp(t *testing.T) {
	n := NewNotifier(nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := n.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "channel closed after context cancellation")
}
