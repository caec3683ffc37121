// ABOUTME: Deterministic construction of the outgoing backend message list
// ABOUTME: Composes mode instruction, sentiment clause, annotations, and windowed history

package prompt

import (
	"fmt"
	"strings"

	"github.com/2389/chat-relay/internal/ollama"
	"github.com/2389/chat-relay/internal/sentiment"
	"github.com/2389/chat-relay/internal/store"
	"github.com/2389/chat-relay/internal/thoughts"
)

// Sentiment-conditioned clauses appended to the system instruction.
const (
	empathyClause    = "The user seems frustrated or upset. Respond with empathy and understanding."
	enthusiasmClause = "The user seems enthusiastic. Match their positive energy."
)

// Builder assembles the outgoing message list. Output is deterministic for
// identical inputs; no message is omitted or reordered relative to policy.
type Builder struct {
	recentWindow int
	templates    map[string]string
}

// NewBuilder creates a builder. recentWindow is the number of most recent
// turns included verbatim; older turns are summarized. templates may be nil
// to use the built-in mode instructions.
func NewBuilder(recentWindow int, templates map[string]string) *Builder {
	return &Builder{
		recentWindow: recentWindow,
		templates:    templates,
	}
}

// Build composes the message list in policy order: system instruction with
// sentiment/style/annotation clauses, summarized older history, the most
// recent turns verbatim, and the new user message last.
func (b *Builder) Build(mode, userMessage string, conv *store.Conversation, sample sentiment.Sample, thoughtList, reflections []thoughts.Thought, prefs map[string]any) []ollama.Message {
	var messages []ollama.Message

	messages = append(messages, ollama.Message{
		Role:    store.RoleSystem,
		Content: b.systemInstruction(mode, sample, thoughtList, reflections, prefs),
	})

	turns := conv.Turns
	if len(turns) > b.recentWindow {
		older := turns[:len(turns)-b.recentWindow]
		messages = append(messages, ollama.Message{
			Role:    store.RoleSystem,
			Content: Summarize(older),
		})
		turns = turns[len(turns)-b.recentWindow:]
	}
	for _, turn := range turns {
		messages = append(messages, ollama.Message{Role: turn.Role, Content: turn.Content})
	}

	messages = append(messages, ollama.Message{Role: store.RoleUser, Content: userMessage})
	return messages
}

// systemInstruction builds the first system message.
func (b *Builder) systemInstruction(mode string, sample sentiment.Sample, thoughtList, reflections []thoughts.Thought, prefs map[string]any) string {
	parts := []string{b.instructionFor(mode)}

	switch sample.Emotion {
	case sentiment.EmotionNegative:
		parts = append(parts, empathyClause)
	case sentiment.EmotionPositive:
		parts = append(parts, enthusiasmClause)
	}

	if style, ok := prefs["responseStyle"].(string); ok && style != "" {
		parts = append(parts, fmt.Sprintf("Respond in a %s style.", style))
	}

	if len(thoughtList) > 0 || len(reflections) > 0 {
		var block strings.Builder
		block.WriteString("Agent annotations (diagnostic):")
		for _, th := range thoughtList {
			fmt.Fprintf(&block, "\n- [%s] %s (priority %d)", th.Kind, th.Text, th.Priority)
		}
		for _, refl := range reflections {
			fmt.Fprintf(&block, "\n- [%s] %s (priority %d)", refl.Kind, refl.Text, refl.Priority)
		}
		parts = append(parts, block.String())
	}

	return strings.Join(parts, "\n\n")
}
