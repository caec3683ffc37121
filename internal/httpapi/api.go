// ABOUTME: HTTP API handlers exposing chat orchestration via JSON and SSE
// ABOUTME: Provides POST /api/chat and /api/chat/stream plus thought and event log endpoints

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2389/chat-relay/internal/conversation"
	"github.com/2389/chat-relay/internal/store"
)

// maxThoughtLength caps POST /api/thoughts content.
const maxThoughtLength = 280

// Orchestrator is what the API needs from the conversation service.
type Orchestrator interface {
	Orchestrate(ctx context.Context, req *conversation.Request) (*conversation.Result, error)
	OrchestrateStream(ctx context.Context, req *conversation.Request) (<-chan conversation.StreamEvent, error)
}

// ThoughtStore is what the API needs from the thought log.
type ThoughtStore interface {
	SaveThought(ctx context.Context, sender, content string) (*store.ThoughtEntry, error)
	ListThoughts(ctx context.Context, sender string, limit int) ([]*store.ThoughtEntry, error)
}

// EventLog is what the API needs from the agent event log.
type EventLog interface {
	Append(entry store.AgentLogEntry) error
}

// ChatRequest is the JSON request body for POST /api/chat and /api/chat/stream.
type ChatRequest struct {
	Message        string         `json:"message"`
	Mode           string         `json:"mode,omitempty"`
	ConversationID string         `json:"conversationId,omitempty"`
	UserPrefs      map[string]any `json:"userPrefs,omitempty"`
}

// SaveThoughtRequest is the JSON request body for POST /api/thoughts.
type SaveThoughtRequest struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// LogEventRequest is the JSON request body for POST /api/log.
type LogEventRequest struct {
	Type    string         `json:"type"`
	Content string         `json:"content"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// envelope is the wrapper shape for thought log responses.
type envelope struct {
	Status    string `json:"status"`
	Data      any    `json:"data"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

// Server serves the HTTP API. It is thin plumbing: all conversation
// semantics live in the orchestrator.
type Server struct {
	orchestrator Orchestrator
	thoughtLog   ThoughtStore
	eventLog     EventLog
	chatLimiter  *ipLimiter
	logLimiter   *ipLimiter
	logger       *slog.Logger
}

// NewServer creates the API server. chatPerMinute and logPerMinute bound
// per-client request rates; pass nil logger for default.
func NewServer(orchestrator Orchestrator, thoughtLog ThoughtStore, eventLog EventLog, chatPerMinute, logPerMinute int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		orchestrator: orchestrator,
		thoughtLog:   thoughtLog,
		eventLog:     eventLog,
		chatLimiter:  newIPLimiter(chatPerMinute),
		logLimiter:   newIPLimiter(logPerMinute),
		logger:       logger.With("component", "httpapi"),
	}
}

// Handler returns the routed handler with CORS and rate limiting applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.chatLimiter.wrap(s.handleChat))
	mux.HandleFunc("/api/chat/stream", s.chatLimiter.wrap(s.handleChatStream))
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/thoughts", s.logLimiter.wrap(s.handleThoughts))
	mux.HandleFunc("/api/log", s.logLimiter.wrap(s.handleLog))
	return withCORS(mux)
}

// handleChat handles POST /api/chat requests: one full orchestration cycle,
// reply returned as a single JSON document.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(r.Body)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := s.orchestrator.Orchestrate(r.Context(), &conversation.Request{
		Message:        req.Message,
		Mode:           req.Mode,
		ConversationID: req.ConversationID,
		Preferences:    req.UserPrefs,
	})
	if err != nil {
		s.sendOrchestrationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleChatStream handles POST /api/chat/stream requests.
// Reply fragments stream as SSE data frames; the terminal frame carries
// "[DONE]" plus the final sentiment, and errors arrive as {error, details}.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(r.Body)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	// Check streaming support before dispatching (fail fast)
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported", "")
		return
	}

	events, err := s.orchestrator.OrchestrateStream(r.Context(), &conversation.Request{
		Message:        req.Message,
		Mode:           req.Mode,
		ConversationID: req.ConversationID,
		Preferences:    req.UserPrefs,
	})
	if err != nil {
		s.sendOrchestrationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for event := range events {
		switch event.Type {
		case conversation.StreamContent:
			s.writeSSEData(w, map[string]any{
				"content":        event.Content,
				"thoughts":       event.Thoughts,
				"conversationId": event.ConversationID,
			})

		case conversation.StreamDone:
			s.writeSSEData(w, map[string]any{
				"content":   "[DONE]",
				"sentiment": event.Sentiment,
			})

		case conversation.StreamError:
			s.writeSSEData(w, map[string]any{
				"error":   "Failed to get response from Ollama",
				"details": event.Err,
			})
		}
		flusher.Flush()
	}
}

// handleHealth handles GET /api/health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleThoughts routes thought log requests by HTTP method.
func (s *Server) handleThoughts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListThoughts(w, r)
	case http.MethodPost:
		s.handleSaveThought(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListThoughts handles GET /api/thoughts requests.
// Supports optional ?sender=X and ?limit=N query parameters.
func (s *Server) handleListThoughts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			s.sendEnvelope(w, http.StatusBadRequest, "limit must be a positive integer", false)
			return
		}
		limit = parsed
		if limit > 1000 {
			limit = 1000
		}
	}

	entries, err := s.thoughtLog.ListThoughts(r.Context(), r.URL.Query().Get("sender"), limit)
	if err != nil {
		s.logger.Error("failed to list thoughts", "error", err)
		s.sendEnvelope(w, http.StatusInternalServerError, "internal server error", false)
		return
	}
	if entries == nil {
		entries = []*store.ThoughtEntry{}
	}

	s.sendEnvelope(w, http.StatusOK, entries, true)
}

// handleSaveThought handles POST /api/thoughts requests.
// Content is required and capped at maxThoughtLength characters.
func (s *Server) handleSaveThought(w http.ResponseWriter, r *http.Request) {
	var req SaveThoughtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendEnvelope(w, http.StatusBadRequest, "invalid JSON body", false)
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		s.sendEnvelope(w, http.StatusBadRequest, "content is required", false)
		return
	}
	if len(req.Content) > maxThoughtLength {
		s.sendEnvelope(w, http.StatusBadRequest,
			fmt.Sprintf("content must be at most %d characters", maxThoughtLength), false)
		return
	}
	if req.Sender == "" {
		req.Sender = "anonymous"
	}

	entry, err := s.thoughtLog.SaveThought(r.Context(), req.Sender, req.Content)
	if err != nil {
		s.logger.Error("failed to save thought", "error", err)
		s.sendEnvelope(w, http.StatusInternalServerError, "internal server error", false)
		return
	}

	s.sendEnvelope(w, http.StatusCreated, entry, true)
}

// handleLog handles POST /api/log requests: append-only diagnostic events
// reported by frontend clients.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req LogEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}
	if req.Type == "" {
		s.sendJSONError(w, http.StatusBadRequest, "type is required", "")
		return
	}

	if err := s.eventLog.Append(store.AgentLogEntry{
		Type:    req.Type,
		Content: req.Content,
		Meta:    req.Meta,
	}); err != nil {
		s.logger.Error("failed to append log event", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "logged"})
}

// sendOrchestrationError maps orchestrator failures onto HTTP statuses.
func (s *Server) sendOrchestrationError(w http.ResponseWriter, err error) {
	if errors.Is(err, conversation.ErrEmptyMessage) {
		s.sendJSONError(w, http.StatusBadRequest, "message is required", "")
		return
	}

	var berr *conversation.BackendError
	if errors.As(err, &berr) {
		status := http.StatusBadGateway
		if berr.Kind == conversation.BackendTimeout {
			status = http.StatusGatewayTimeout
		}
		s.sendJSONError(w, status, "Failed to get response from Ollama", berr.Error())
		return
	}

	s.logger.Error("orchestration failed", "error", err)
	s.sendJSONError(w, http.StatusInternalServerError, "internal server error", "")
}

// writeSSEData writes a single SSE data frame.
func (s *Server) writeSSEData(w http.ResponseWriter, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// sendJSONError writes a JSON error response. details is omitted when empty.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": message}
	if details != "" {
		body["details"] = details
	}
	json.NewEncoder(w).Encode(body)
}

// sendEnvelope writes a wrapped thought log response.
func (s *Server) sendEnvelope(w http.ResponseWriter, status int, data any, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	statusText := "success"
	if !ok {
		statusText = "error"
	}
	json.NewEncoder(w).Encode(envelope{
		Status:    statusText,
		Data:      data,
		Success:   ok,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// parseChatRequest parses and validates a ChatRequest from the given reader.
func parseChatRequest(r io.Reader) (*ChatRequest, error) {
	var req ChatRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is required")
	}
	return &req, nil
}
