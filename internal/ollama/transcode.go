// ABOUTME: Transcodes the backend's line-delimited JSON stream into normalized events
// ABOUTME: Buffers partial lines, skips malformed ones, and emits a single terminal event

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// EventKind tags a stream event.
type EventKind int

const (
	// EventContent carries one incremental assistant text fragment.
	EventContent EventKind = iota
	// EventDone is the completion sentinel; Final holds the cumulative text.
	EventDone
	// EventError is the terminal error sentinel.
	EventError
)

// Event is one normalized unit of the backend stream.
type Event struct {
	Kind    EventKind
	Content string
	Final   string
	Err     string
}

// Transcode reads the backend's NDJSON protocol from r and emits the
// normalized event sequence. Framing is best-effort over a byte stream:
// partial lines are buffered until a terminator arrives, and a line that
// fails to parse is logged and skipped. Content fragments are forwarded
// as-is; accumulation into a full reply happens here only for the Final
// field of the terminal Done event.
//
// The returned channel closes after exactly one terminal event (Done or
// Error). A clean EOF without a done flag is treated as completion.
func Transcode(ctx context.Context, r io.Reader, logger *slog.Logger) <-chan Event {
	if logger == nil {
		logger = slog.Default()
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)

		emit := func(event Event) bool {
			select {
			case out <- event:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var accumulated strings.Builder
		reader := bufio.NewReader(r)

		for {
			rawLine, err := reader.ReadString('\n')

			line := strings.TrimSpace(rawLine)
			if line != "" {
				frame, ok := parseLine(line, logger)
				switch {
				case !ok:
					// Skipped; keep reading
				case frame.Error != "":
					emit(Event{Kind: EventError, Err: frame.Error})
					return
				default:
					if frame.Message != nil && frame.Message.Role == "assistant" && frame.Message.Content != "" {
						accumulated.WriteString(frame.Message.Content)
						if !emit(Event{Kind: EventContent, Content: frame.Message.Content}) {
							return
						}
					}
					if frame.Done {
						emit(Event{Kind: EventDone, Final: accumulated.String()})
						return
					}
				}
			}

			if err != nil {
				if errors.Is(err, io.EOF) {
					emit(Event{Kind: EventDone, Final: accumulated.String()})
				} else if ctx.Err() == nil {
					emit(Event{Kind: EventError, Err: err.Error()})
				}
				return
			}
		}
	}()
	return out
}

// parseLine decodes one protocol frame. Malformed lines are not fatal.
func parseLine(line string, logger *slog.Logger) (chatLine, bool) {
	var frame chatLine
	if err := json.Unmarshal([]byte(line), &frame); err != nil {
		logger.Warn("skipping malformed backend line", "error", err, "line", truncateForLog(line))
		return chatLine{}, false
	}
	return frame, true
}

func truncateForLog(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
