// ABOUTME: HTTP client for the Ollama chat backend
// ABOUTME: Speaks the NDJSON /api/chat protocol in whole-response and streaming modes

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Message is one entry of the outgoing message list.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

// chatLine is one protocol frame: a single JSON object carrying either an
// incremental assistant content fragment or the done flag.
type chatLine struct {
	Message *Message `json:"message"`
	Done    bool     `json:"done"`
	Error   string   `json:"error,omitempty"`
}

// Client talks to a single Ollama-compatible backend. The backend is
// opaque: model semantics are its business, transport and framing are ours.
type Client struct {
	host       string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a backend client. timeout bounds every call, streaming
// included. Pass nil logger for default.
func NewClient(host, model string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		host:       host,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "ollama"),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Chat sends the message list in whole-response mode and returns the
// assistant's full reply text. The backend may answer with a single JSON
// object or with NDJSON lines; both are accepted.
func (c *Client) Chat(ctx context.Context, messages []Message, temperature float64) (string, error) {
	resp, err := c.post(ctx, messages, temperature, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading backend response: %w", err)
	}

	// Single-object response first
	var line chatLine
	if err := json.Unmarshal(body, &line); err == nil {
		if line.Error != "" {
			return "", fmt.Errorf("backend error: %s", line.Error)
		}
		if line.Message != nil {
			return line.Message.Content, nil
		}
	}

	// Fall back to aggregating NDJSON lines
	var reply string
	for event := range Transcode(ctx, bytes.NewReader(body), c.logger) {
		switch event.Kind {
		case EventDone:
			reply = event.Final
		case EventError:
			return "", fmt.Errorf("backend error: %s", event.Err)
		}
	}
	return reply, nil
}

// ChatStream sends the message list in streaming mode and returns the
// normalized event sequence. The channel is closed after the terminal Done
// or Error event. Cancelling ctx stops reads and releases the connection.
func (c *Client) ChatStream(ctx context.Context, messages []Message, temperature float64) (<-chan Event, error) {
	resp, err := c.post(ctx, messages, temperature, true)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		for event := range Transcode(ctx, resp.Body, c.logger) {
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// post issues the chat request and verifies the HTTP status.
func (c *Client) post(ctx context.Context, messages []Message, temperature float64, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      stream,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	url := c.host + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("dispatching backend request",
		"model", c.model, "messages", len(messages), "stream", stream)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return resp, nil
}
