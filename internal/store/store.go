// ABOUTME: Data types and sentinel errors for chat-relay persistence
// ABOUTME: Defines Turn and Conversation plus the persisted snapshot shape

package store

import (
	"errors"

	"github.com/2389/chat-relay/internal/sentiment"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Turn roles. The backend protocol and the persisted snapshot share these.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is a single message within a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a durable, identified sequence of turns plus the sentiment
// sample recorded for each user turn, in turn order. The ID is assigned once
// and never changes; it is the sole lookup key.
type Conversation struct {
	ID               string             `json:"id"`
	Turns            []Turn             `json:"messages"`
	SentimentHistory []sentiment.Sample `json:"sentimentHistory"`
}

// AppendUserTurn records a user turn and its sentiment sample.
func (c *Conversation) AppendUserTurn(content string, sample sentiment.Sample) {
	c.Turns = append(c.Turns, Turn{Role: RoleUser, Content: content})
	c.SentimentHistory = append(c.SentimentHistory, sample)
}

// AppendAssistantTurn records an assistant turn.
func (c *Conversation) AppendAssistantTurn(content string) {
	c.Turns = append(c.Turns, Turn{Role: RoleAssistant, Content: content})
}

// clone returns a deep copy detached from the live record.
func (c *Conversation) clone() *Conversation {
	return &Conversation{
		ID:               c.ID,
		Turns:            append([]Turn(nil), c.Turns...),
		SentimentHistory: append([]sentiment.Sample(nil), c.SentimentHistory...),
	}
}

// truncateTurns drops the oldest turns so at most max remain.
func (c *Conversation) truncateTurns(max int) {
	if max > 0 && len(c.Turns) > max {
		c.Turns = c.Turns[len(c.Turns)-max:]
	}
}
