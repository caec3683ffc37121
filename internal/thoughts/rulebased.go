// ABOUTME: Rule-based Annotator implementation with an in-process learning index
// ABOUTME: Keyword heuristics choose the kind; priorities are deterministic

package thoughts

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/2389/chat-relay/internal/store"
)

const (
	// reflectionThreshold gates which reflections are surfaced.
	reflectionThreshold = 3
	// maxReflections caps reflections per cycle.
	maxReflections = 3
	// snippetLen bounds how many runes of turn content a reflection quotes.
	snippetLen = 60
)

// RuleBased is the concrete keyword-heuristic Annotator. It accumulates a
// private learning index across calls within a process lifetime; the index
// never leaves the process.
type RuleBased struct {
	mu    sync.Mutex
	index map[string][]string // kind -> accumulated annotation texts
}

// NewRuleBased creates a rule-based annotator with an empty learning index.
func NewRuleBased() *RuleBased {
	return &RuleBased{index: make(map[string][]string)}
}

// GenerateAnnotations produces one thought for the message and up to
// maxReflections reflections over the conversation history. It never fails.
func (r *RuleBased) GenerateAnnotations(ctx context.Context, tc Context) ([]Thought, []Thought, error) {
	thought := Thought{
		Kind:     classify(tc.Message),
		Priority: priorityFor(tc),
	}
	switch thought.Kind {
	case KindReflection:
		thought.Text = "Reflecting on recent conversation."
	case KindLearning:
		thought.Text = "Learning from user feedback."
	default:
		thought.Text = "Analyzing user input."
	}

	reflections := r.reflect(tc.Turns)

	r.learn(thought)
	for _, refl := range reflections {
		r.learn(refl)
	}

	return []Thought{thought}, reflections, nil
}

// KnownTexts returns the accumulated learning index entries for a kind.
func (r *RuleBased) KnownTexts(kind string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.index[kind]...)
}

// classify picks the annotation kind from keyword heuristics.
func classify(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "why") || strings.Contains(lower, "reason"):
		return KindReflection
	case strings.Contains(lower, "learn"):
		return KindLearning
	default:
		return KindAnalysis
	}
}

// priorityFor derives a deterministic priority in [1, 10] from the message
// length and the conversation depth.
func priorityFor(tc Context) int {
	p := 1 + (len(tc.Message)/20+len(tc.Turns))%10
	if p > 10 {
		p = 10
	}
	return p
}

// reflect produces reflections over the most recent turns. A reflection is
// surfaced only when its priority clears reflectionThreshold.
func (r *RuleBased) reflect(turns []store.Turn) []Thought {
	var reflections []Thought
	for i := len(turns) - 1; i >= 0 && len(reflections) < maxReflections; i-- {
		turn := turns[i]
		priority := 1 + (len(turn.Content)/10+i)%10
		if priority <= reflectionThreshold {
			continue
		}
		reflections = append(reflections, Thought{
			Kind:     KindReflection,
			Text:     fmt.Sprintf("Self-reflection on conversation: %s", snippet(turn.Content)),
			Priority: priority,
		})
	}
	return reflections
}

func (r *RuleBased) learn(t Thought) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index[t.Kind] = append(r.index[t.Kind], t.Text)
}

// snippet truncates on a rune boundary so multi-byte content never yields
// invalid UTF-8.
func snippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetLen {
		return s
	}
	return string(runes[:snippetLen]) + "..."
}
