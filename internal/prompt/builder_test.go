// ABOUTME: Tests for prompt construction policy
// ABOUTME: Covers message ordering, sentiment clauses, history windowing, and determinism

package prompt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chat-relay/internal/sentiment"
	"github.com/2389/chat-relay/internal/store"
	"github.com/2389/chat-relay/internal/thoughts"
)

func neutral() sentiment.Sample {
	return sentiment.Sample{Emotion: sentiment.EmotionNeutral}
}

func TestBuild_MinimalPrompt(t *testing.T) {
	b := NewBuilder(10, nil)
	conv := &store.Conversation{ID: "c1"}

	msgs := b.Build(ModeGeneral, "hello", conv, neutral(), nil, nil, nil)

	require.Len(t, msgs, 2)
	assert.Equal(t, store.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "helpful")
	assert.Equal(t, store.RoleUser, msgs[1].Role)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestBuild_UserMessageAlwaysLast(t *testing.T) {
	b := NewBuilder(10, nil)
	conv := &store.Conversation{
		Turns: []store.Turn{
			{Role: store.RoleUser, Content: "first"},
			{Role: store.RoleAssistant, Content: "second"},
		},
	}

	msgs := b.Build(ModeCode, "new question", conv, neutral(), nil, nil, nil)
	assert.Equal(t, store.RoleUser, msgs[len(msgs)-1].Role)
	assert.Equal(t, "new question", msgs[len(msgs)-1].Content)
}

func TestBuild_NegativeSentimentAddsEmpathyClause(t *testing.T) {
	b := NewBuilder(10, nil)
	conv := &store.Conversation{}
	sample := sentiment.Sample{Emotion: sentiment.EmotionNegative, Score: -0.6, Confidence: 0.6}

	msgs := b.Build(ModeGeneral, "I hate this, it's awful", conv, sample, nil, nil, nil)

	assert.Contains(t, msgs[0].Content, "empathy")
}

func TestBuild_PositiveSentimentAddsEnthusiasmClause(t *testing.T) {
	b := NewBuilder(10, nil)
	msgs := b.Build(ModeGeneral, "this is great!", &store.Conversation{},
		sentiment.Sample{Emotion: sentiment.EmotionPositive, Score: 0.7, Confidence: 0.7}, nil, nil, nil)

	assert.Contains(t, msgs[0].Content, "positive energy")
}

func TestBuild_NeutralSentimentAddsNoClause(t *testing.T) {
	b := NewBuilder(10, nil)
	msgs := b.Build(ModeGeneral, "hello", &store.Conversation{}, neutral(), nil, nil, nil)

	assert.NotContains(t, msgs[0].Content, "empathy")
	assert.NotContains(t, msgs[0].Content, "positive energy")
}

func TestBuild_ResponseStyleDirective(t *testing.T) {
	b := NewBuilder(10, nil)
	prefs := map[string]any{"responseStyle": "pirate"}

	msgs := b.Build(ModeGeneral, "hello", &store.Conversation{}, neutral(), nil, nil, prefs)
	assert.Contains(t, msgs[0].Content, "Respond in a pirate style.")
}

func TestBuild_AnnotationDebugBlock(t *testing.T) {
	b := NewBuilder(10, nil)
	thoughtList := []thoughts.Thought{{Kind: thoughts.KindAnalysis, Text: "Analyzing user input.", Priority: 4}}
	reflections := []thoughts.Thought{{Kind: thoughts.KindReflection, Text: "Reflecting.", Priority: 6}}

	msgs := b.Build(ModeGeneral, "hello", &store.Conversation{}, neutral(), thoughtList, reflections, nil)

	assert.Contains(t, msgs[0].Content, "Agent annotations")
	assert.Contains(t, msgs[0].Content, "- [analysis] Analyzing user input. (priority 4)")
	assert.Contains(t, msgs[0].Content, "- [reflection] Reflecting. (priority 6)")
}

func TestBuild_ShortHistoryIncludedVerbatim(t *testing.T) {
	b := NewBuilder(10, nil)
	conv := &store.Conversation{
		Turns: []store.Turn{
			{Role: store.RoleUser, Content: "q1"},
			{Role: store.RoleAssistant, Content: "a1"},
		},
	}

	msgs := b.Build(ModeGeneral, "q2", conv, neutral(), nil, nil, nil)

	require.Len(t, msgs, 4)
	assert.Equal(t, "q1", msgs[1].Content)
	assert.Equal(t, "a1", msgs[2].Content)
}

func TestBuild_LongHistorySummarized(t *testing.T) {
	const window = 4
	b := NewBuilder(window, nil)

	conv := &store.Conversation{}
	for i := 0; i < 10; i++ {
		conv.Turns = append(conv.Turns, store.Turn{Role: store.RoleUser, Content: fmt.Sprintf("turn %d", i)})
	}

	msgs := b.Build(ModeGeneral, "latest", conv, neutral(), nil, nil, nil)

	// system + summary + window verbatim + user message
	require.Len(t, msgs, 1+1+window+1)

	summary := msgs[1]
	assert.Equal(t, store.RoleSystem, summary.Role)
	assert.Contains(t, summary.Content, "Summary of earlier conversation")
	assert.Contains(t, summary.Content, "turn 0")

	// Recent turns follow verbatim, in order
	assert.Equal(t, "turn 6", msgs[2].Content)
	assert.Equal(t, "turn 9", msgs[5].Content)
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewBuilder(10, nil)
	conv := &store.Conversation{
		Turns: []store.Turn{{Role: store.RoleUser, Content: "hi"}},
	}
	sample := sentiment.Sample{Emotion: sentiment.EmotionNegative, Score: -0.3, Confidence: 0.3}
	thoughtList := []thoughts.Thought{{Kind: thoughts.KindAnalysis, Text: "t", Priority: 2}}

	first := b.Build(ModeCreative, "msg", conv, sample, thoughtList, nil, map[string]any{"responseStyle": "formal"})
	second := b.Build(ModeCreative, "msg", conv, sample, thoughtList, nil, map[string]any{"responseStyle": "formal"})

	assert.Equal(t, first, second)
}

func TestBuild_UnknownModeFallsBack(t *testing.T) {
	b := NewBuilder(10, nil)
	msgs := b.Build("interpretive-dance", "hello", &store.Conversation{}, neutral(), nil, nil, nil)

	assert.Equal(t, defaultInstruction, msgs[0].Content)
}

func TestBuild_ModeInstructions(t *testing.T) {
	b := NewBuilder(10, nil)

	creative := b.Build(ModeCreative, "x", &store.Conversation{}, neutral(), nil, nil, nil)
	assert.Contains(t, creative[0].Content, "imaginative")

	code := b.Build(ModeCode, "x", &store.Conversation{}, neutral(), nil, nil, nil)
	assert.Contains(t, code[0].Content, "coding")
}
