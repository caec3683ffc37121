// ABOUTME: Terminal chat client for relay-gateway
// ABOUTME: Streams replies over SSE and renders role-colored output

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
)

var (
	promptColor    = color.New(color.FgGreen, color.Bold)
	assistantColor = color.New(color.FgCyan)
	metaColor      = color.New(color.FgHiBlack)
	errorColor     = color.New(color.FgRed)
)

// chatRequest mirrors the gateway's POST /api/chat body.
type chatRequest struct {
	Message        string `json:"message"`
	Mode           string `json:"mode,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// chatResponse mirrors the gateway's non-streaming reply.
type chatResponse struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversationId"`
	Sentiment      struct {
		Emotion string `json:"emotion"`
	} `json:"sentiment"`
	Thoughts []struct {
		Kind     string `json:"kind"`
		Text     string `json:"text"`
		Priority int    `json:"priority"`
	} `json:"thoughts"`
}

// streamFrame is one SSE data payload from POST /api/chat/stream.
type streamFrame struct {
	Content        string         `json:"content"`
	ConversationID string         `json:"conversationId"`
	Sentiment      map[string]any `json:"sentiment"`
	Error          string         `json:"error"`
	Details        string         `json:"details"`
}

type session struct {
	server         string
	mode           string
	conversationID string
	stream         bool
	client         *http.Client
}

func main() {
	server := flag.String("server", "http://localhost:3001", "gateway base URL")
	mode := flag.String("mode", "general", "chat mode: general, creative, or code")
	noStream := flag.Bool("no-stream", false, "wait for the full reply instead of streaming")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s := &session{
		server: strings.TrimRight(*server, "/"),
		mode:   *mode,
		stream: !*noStream,
		client: &http.Client{Timeout: 5 * time.Minute},
	}

	metaColor.Printf("relay-cli connected to %s (mode: %s)\n", s.server, s.mode)
	metaColor.Println("commands: /mode <name>, /id, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if s.handleCommand(line) {
				return
			}
			continue
		}

		if err := s.send(ctx, line); err != nil {
			errorColor.Printf("error: %v\n", err)
		}
	}
}

// handleCommand processes a slash command. Returns true on /quit.
func (s *session) handleCommand(line string) bool {
	parts := strings.Fields(line)
	switch parts[0] {
	case "/quit", "/exit":
		return true
	case "/mode":
		if len(parts) < 2 {
			errorColor.Println("usage: /mode <general|creative|code>")
			return false
		}
		s.mode = parts[1]
		metaColor.Printf("mode set to %s\n", s.mode)
	case "/id":
		if s.conversationID == "" {
			metaColor.Println("no conversation yet")
		} else {
			metaColor.Println(s.conversationID)
		}
	default:
		errorColor.Printf("unknown command: %s\n", parts[0])
	}
	return false
}

func (s *session) send(ctx context.Context, message string) error {
	if s.stream {
		return s.sendStreaming(ctx, message)
	}
	return s.sendBlocking(ctx, message)
}

// sendBlocking posts to /api/chat and prints the full reply at once.
func (s *session) sendBlocking(ctx context.Context, message string) error {
	resp, err := s.post(ctx, "/api/chat", message)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	var reply chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decoding reply: %w", err)
	}

	s.conversationID = reply.ConversationID
	assistantColor.Println(reply.Reply)
	if reply.Sentiment.Emotion != "" {
		metaColor.Printf("[sentiment: %s]\n", reply.Sentiment.Emotion)
	}
	return nil
}

// sendStreaming posts to /api/chat/stream and prints fragments as they arrive.
func (s *session) sendStreaming(ctx context.Context, message string) error {
	resp, err := s.post(ctx, "/api/chat/stream", message)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			continue
		}

		switch {
		case frame.Error != "":
			fmt.Println()
			if frame.Details != "" {
				return fmt.Errorf("%s: %s", frame.Error, frame.Details)
			}
			return fmt.Errorf("%s", frame.Error)

		case frame.Content == "[DONE]":
			fmt.Println()
			if emotion, ok := frame.Sentiment["emotion"].(string); ok {
				metaColor.Printf("[sentiment: %s]\n", emotion)
			}
			return nil

		default:
			if frame.ConversationID != "" {
				s.conversationID = frame.ConversationID
			}
			assistantColor.Print(frame.Content)
		}
	}
}

func (s *session) post(ctx context.Context, path, message string) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Message:        message,
		Mode:           s.mode,
		ConversationID: s.conversationID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.server+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	return resp, nil
}

// readAPIError extracts the {error, details} body from a non-200 response.
func readAPIError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if body.Details != "" {
		return fmt.Errorf("%s: %s", body.Error, body.Details)
	}
	return fmt.Errorf("%s", body.Error)
}
