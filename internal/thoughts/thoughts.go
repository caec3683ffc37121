// ABOUTME: Pluggable thought/reflection annotation pipeline
// ABOUTME: Defines the Annotator interface and the ephemeral annotation types

package thoughts

import (
	"context"

	"github.com/2389/chat-relay/internal/store"
)

// Annotation kinds.
const (
	KindAnalysis   = "analysis"
	KindReflection = "reflection"
	KindLearning   = "learning"
)

// Thought is a short contextual annotation generated per orchestration
// cycle. Thoughts are diagnostic output for the caller; they are never
// persisted as conversation state.
type Thought struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Priority int    `json:"priority"`
}

// Context is the input the pipeline sees for one cycle: the new user
// message plus the conversation history so far.
type Context struct {
	Message string
	Turns   []store.Turn
}

// Annotator generates zero or more thoughts and zero or more reflections
// for a conversation context. Implementations may keep private state across
// calls (a learning index) but must be safe for concurrent use. A future
// model-backed implementation sits behind this same interface.
type Annotator interface {
	GenerateAnnotations(ctx context.Context, tc Context) (thoughts []Thought, reflections []Thought, err error)
}
