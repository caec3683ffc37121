// ABOUTME: Minimal web frontend - embedded chat page and conversation transcripts
// ABOUTME: Transcripts render assistant markdown to HTML via goldmark

package webui

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/chat-relay/internal/store"
)

// ConversationReader is what the UI needs from the conversation store.
type ConversationReader interface {
	Get(id string) (*store.Conversation, error)
	List() []*store.Conversation
}

// UI serves the embedded chat page and read-only transcript views.
type UI struct {
	conversations ConversationReader
	logger        *slog.Logger
}

// New creates the web UI. Pass nil logger for default.
func New(conversations ConversationReader, logger *slog.Logger) *UI {
	if logger == nil {
		logger = slog.Default()
	}
	return &UI{
		conversations: conversations,
		logger:        logger.With("component", "webui"),
	}
}

// Handler returns the routed UI handler.
func (u *UI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", u.handleIndex)
	mux.HandleFunc("/ui/conversations", u.handleList)
	mux.HandleFunc("/ui/conversations/", u.handleTranscript)
	return mux
}

// handleIndex serves the chat page.
func (u *UI) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		u.logger.Error("failed to read chat page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

type conversationItem struct {
	ID    string
	Turns int
}

type listData struct {
	Conversations []conversationItem
}

// handleList renders the conversation index.
func (u *UI) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	data := listData{}
	for _, conv := range u.conversations.List() {
		data.Conversations = append(data.Conversations, conversationItem{
			ID:    conv.ID,
			Turns: len(conv.Turns),
		})
	}

	u.render(w, "templates/list.html", data)
}

type transcriptTurn struct {
	Role string
	HTML template.HTML
}

type transcriptData struct {
	ID    string
	Turns []transcriptTurn
}

// handleTranscript renders one conversation as HTML. Turn content is
// markdown-converted; goldmark escapes raw HTML by default so user text
// cannot inject markup.
func (u *UI) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/ui/conversations/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	conv, err := u.conversations.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		u.logger.Error("failed to load conversation", "conversation_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := transcriptData{ID: conv.ID}
	for _, turn := range conv.Turns {
		var htmlBuf bytes.Buffer
		if err := goldmark.Convert([]byte(turn.Content), &htmlBuf); err != nil {
			u.logger.Error("failed to convert turn markdown", "error", err)
			htmlBuf.Reset()
			htmlBuf.WriteString("<p>Failed to render turn.</p>")
		}
		data.Turns = append(data.Turns, transcriptTurn{
			Role: turn.Role,
			HTML: template.HTML(htmlBuf.String()),
		})
	}

	u.render(w, "templates/transcript.html", data)
}

// render executes one embedded template.
func (u *UI) render(w http.ResponseWriter, name string, data any) {
	tmpl := template.Must(template.ParseFS(templateFS, name))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		u.logger.Error("failed to render template", "template", name, "error", err)
	}
}
