// ABOUTME: Service is the conversation orchestrator - the top-level coordinator per turn
// ABOUTME: All turns flow through here; the user turn is recorded before the backend call

package conversation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/2389/chat-relay/internal/ollama"
	"github.com/2389/chat-relay/internal/prompt"
	"github.com/2389/chat-relay/internal/sentiment"
	"github.com/2389/chat-relay/internal/store"
	"github.com/2389/chat-relay/internal/thoughts"
)

// Backend defines what the service needs from the generation backend.
type Backend interface {
	Chat(ctx context.Context, messages []ollama.Message, temperature float64) (string, error)
	ChatStream(ctx context.Context, messages []ollama.Message, temperature float64) (<-chan ollama.Event, error)
}

// Scorer defines what the service needs from sentiment scoring.
type Scorer interface {
	Score(text string) sentiment.Sample
}

// ConversationStore defines what the service needs from storage. Resolve
// returns a detached snapshot; appends mutate the canonical record under the
// store's own lock.
type ConversationStore interface {
	Resolve(id string) (*store.Conversation, bool)
	AppendUserTurn(id, content string, sample sentiment.Sample)
	AppendAssistantTurn(id, content string)
	Save()
}

// Request contains everything needed for one orchestration cycle.
type Request struct {
	Message        string
	Mode           string
	ConversationID string
	Preferences    map[string]any
}

// Result is the aggregated outcome of a non-streaming cycle.
type Result struct {
	Reply          string             `json:"reply"`
	Thoughts       []thoughts.Thought `json:"thoughts"`
	ConversationID string             `json:"conversationId"`
	Sentiment      sentiment.Sample   `json:"sentiment"`
}

// StreamEventType tags an orchestration stream event.
type StreamEventType int

const (
	// StreamContent carries one incremental reply fragment.
	StreamContent StreamEventType = iota
	// StreamDone is the completion sentinel carrying the final sentiment.
	StreamDone
	// StreamError is the terminal error sentinel.
	StreamError
)

// StreamEvent is one unit of a streaming orchestration cycle's output.
type StreamEvent struct {
	Type           StreamEventType
	Content        string
	Thoughts       []thoughts.Thought
	ConversationID string
	Sentiment      *sentiment.Sample
	Err            string
}

// Service orchestrates conversation turns: it resolves the conversation,
// derives context (sentiment, annotations, summarized history), dispatches
// the backend call, and updates and persists conversation state.
//
// Cycles against the same conversation id are serialized; a second request
// queues behind the in-flight one. Distinct ids proceed fully in parallel.
type Service struct {
	store     ConversationStore
	backend   Backend
	scorer    Scorer
	annotator thoughts.Annotator
	prompts   *prompt.Builder
	notifier  *Notifier
	logger    *slog.Logger
	locks     *keyedLocks
}

// New creates the orchestrator. notifier may be nil when nothing observes
// lifecycle events; pass nil logger for default.
func New(st ConversationStore, backend Backend, scorer Scorer, annotator thoughts.Annotator, prompts *prompt.Builder, notifier *Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		backend:   backend,
		scorer:    scorer,
		annotator: annotator,
		prompts:   prompts,
		notifier:  notifier,
		logger:    logger.With("component", "conversation"),
		locks:     newKeyedLocks(),
	}
}

// cycle holds the shared state both orchestration modes prepare.
type cycle struct {
	conv        *store.Conversation
	sample      sentiment.Sample
	annotations []thoughts.Thought
	messages    []ollama.Message
	temperature float64
	unlock      func()
}

// prepare runs steps common to both modes: validate, resolve, score,
// annotate, build the prompt, and record the user turn. The user turn is
// persisted BEFORE the backend call so a crash mid-call does not lose the
// user's input on reload. The returned cycle holds the per-conversation
// lock; the caller must release it via unlock.
func (s *Service) prepare(ctx context.Context, req *Request) (*cycle, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	conv, created := s.store.Resolve(req.ConversationID)
	unlock := s.locks.Lock(conv.ID)

	if created {
		s.publish(Event{Type: EventConversationCreated, ConversationID: conv.ID})
	} else {
		// Re-read under the cycle lock so a queued cycle sees the turns
		// appended by the one it waited behind.
		conv, _ = s.store.Resolve(conv.ID)
	}

	// Sentiment never fails; worst case is a neutral signal.
	sample := s.scorer.Score(req.Message)

	// Pipeline failures degrade to an empty annotation set.
	thoughtList, reflections, err := s.annotator.GenerateAnnotations(ctx, thoughts.Context{
		Message: req.Message,
		Turns:   conv.Turns,
	})
	if err != nil {
		s.logger.Warn("annotation pipeline failed, continuing without",
			"conversation_id", conv.ID, "error", err)
		thoughtList, reflections = nil, nil
	}

	messages := s.prompts.Build(req.Mode, req.Message, conv, sample, thoughtList, reflections, req.Preferences)

	s.store.AppendUserTurn(conv.ID, req.Message, sample)
	s.store.Save()
	s.publish(Event{Type: EventTurnAppended, ConversationID: conv.ID, Role: store.RoleUser})

	s.logger.Debug("user turn recorded",
		"conversation_id", conv.ID,
		"mode", req.Mode,
		"emotion", sample.Emotion,
		"history_turns", len(conv.Turns))

	return &cycle{
		conv:        conv,
		sample:      sample,
		annotations: append(thoughtList, reflections...),
		messages:    messages,
		temperature: prompt.TemperatureFor(req.Mode),
		unlock:      unlock,
	}, nil
}

// Orchestrate runs one non-streaming cycle and returns the aggregated
// result. Backend failures surface as a *BackendError; the user's turn
// stays recorded and no assistant turn is added.
func (s *Service) Orchestrate(ctx context.Context, req *Request) (*Result, error) {
	c, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	defer c.unlock()

	reply, err := s.backend.Chat(ctx, c.messages, c.temperature)
	if err != nil {
		return nil, classifyBackend(err)
	}

	// Some models embed <thought> annotations in the reply; surface them
	// alongside the pipeline's thoughts instead of showing them inline.
	cleaned, tags := ollama.ExtractThoughtTags(reply)
	annotations := c.annotations
	for _, tag := range tags {
		annotations = append(annotations, thoughts.Thought{
			Kind:     thoughts.KindAnalysis,
			Text:     tag,
			Priority: 5,
		})
	}

	s.store.AppendAssistantTurn(c.conv.ID, cleaned)
	s.store.Save()
	s.publish(Event{Type: EventTurnAppended, ConversationID: c.conv.ID, Role: store.RoleAssistant})

	return &Result{
		Reply:          cleaned,
		Thoughts:       annotations,
		ConversationID: c.conv.ID,
		Sentiment:      c.sample,
	}, nil
}

// OrchestrateStream runs one streaming cycle. Each backend content fragment
// is yielded immediately; on completion the accumulated text becomes the
// assistant turn and a terminal event carries the final sentiment. On error
// or caller cancellation no assistant turn is recorded and partial text is
// discarded, so the next cycle on this conversation sees the same pending
// user message in context.
func (s *Service) OrchestrateStream(ctx context.Context, req *Request) (<-chan StreamEvent, error) {
	c, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	events, err := s.backend.ChatStream(ctx, c.messages, c.temperature)
	if err != nil {
		c.unlock()
		return nil, classifyBackend(err)
	}

	out := make(chan StreamEvent, 16)
	go func() {
		defer close(out)
		defer c.unlock()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("stream cancelled by caller, discarding partial reply",
					"conversation_id", c.conv.ID)
				return

			case event, ok := <-events:
				if !ok {
					return
				}
				switch event.Kind {
				case ollama.EventContent:
					if !send(ctx, out, StreamEvent{
						Type:           StreamContent,
						Content:        event.Content,
						Thoughts:       c.annotations,
						ConversationID: c.conv.ID,
					}) {
						return
					}

				case ollama.EventDone:
					if event.Final != "" {
						s.store.AppendAssistantTurn(c.conv.ID, event.Final)
						s.store.Save()
						s.publish(Event{Type: EventTurnAppended, ConversationID: c.conv.ID, Role: store.RoleAssistant})
					}
					sample := c.sample
					send(ctx, out, StreamEvent{
						Type:           StreamDone,
						ConversationID: c.conv.ID,
						Sentiment:      &sample,
					})
					return

				case ollama.EventError:
					send(ctx, out, StreamEvent{
						Type:           StreamError,
						ConversationID: c.conv.ID,
						Err:            event.Err,
					})
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *Service) publish(event Event) {
	if s.notifier != nil {
		s.notifier.Publish(event)
	}
}

// send delivers an event unless the caller has gone away.
func send(ctx context.Context, out chan<- StreamEvent, event StreamEvent) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
