// ABOUTME: In-memory fan-out notifier for conversation lifecycle events
// ABOUTME: Decoupled observer the orchestrator publishes to; subscribers receive over buffered channels

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Lifecycle event types.
const (
	EventConversationCreated = "conversation.created"
	EventTurnAppended        = "turn.appended"
)

// Event is a fire-and-forget lifecycle notification.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	Role           string `json:"role,omitempty"`
}

// Notifier provides in-memory pub/sub for conversation lifecycle events.
// Publishing never blocks the orchestration path: events are dropped for
// subscribers whose channels are full.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	logger      *slog.Logger
}

// NewNotifier creates a notifier. Pass nil logger for default.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		subscribers: make(map[string]chan Event),
		logger:      logger.With("component", "notifier"),
	}
}

// Subscribe registers a subscriber. Returns the event channel and a
// subscription ID for later unsubscription. The subscription is
// automatically cleaned up when ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	n.mu.Lock()
	n.subscribers[subID] = ch
	n.mu.Unlock()

	n.logger.Debug("subscriber added", "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		n.Unsubscribe(subID)
	}()

	return ch, subID
}

// Unsubscribe removes a subscriber and closes its channel.
func (n *Notifier) Unsubscribe(subID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ch, ok := n.subscribers[subID]; ok {
		delete(n.subscribers, subID)
		close(ch)
	}
}

// Publish sends an event to all subscribers. Non-blocking: events are
// dropped for subscribers whose channels are full. Sends happen under the
// read lock so a concurrent Unsubscribe cannot close a channel mid-send.
func (n *Notifier) Publish(event Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subscribers {
		select {
		case ch <- event:
		default:
			n.logger.Debug("dropped event for slow subscriber",
				"type", event.Type,
				"conversation_id", event.ConversationID)
		}
	}
}
