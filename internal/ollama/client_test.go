// ABOUTME: Tests for the Ollama backend client
// ABOUTME: Uses httptest servers to exercise both response modes and failure paths

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat_SingleObjectResponse(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "full reply"},
			"done":    true,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "testmodel", 5*time.Second, nil)
	reply, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	require.NoError(t, err)

	assert.Equal(t, "full reply", reply)
	assert.Equal(t, "testmodel", gotReq.Model)
	assert.False(t, gotReq.Stream)
	assert.InDelta(t, 0.7, gotReq.Temperature, 1e-9)
}

func TestChat_NDJSONAggregateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"role":"assistant","content":"piece "},"done":false}
{"message":{"role":"assistant","content":"by piece"},"done":false}
{"done":true}
`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "testmodel", 5*time.Second, nil)
	reply, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	require.NoError(t, err)
	assert.Equal(t, "piece by piece", reply)
}

func TestChat_BackendHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, "missing", 5*time.Second, nil)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestChat_BackendUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "testmodel", time.Second, nil)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	require.Error(t, err)
}

func TestChatStream_EventSequence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		flusher := w.(http.Flusher)
		for _, frag := range []string{"str", "eam", "ing"} {
			frame, _ := json.Marshal(chatLine{Message: &Message{Role: "assistant", Content: frag}})
			w.Write(append(frame, '\n'))
			flusher.Flush()
		}
		w.Write([]byte(`{"done":true}` + "\n"))
	}))
	defer server.Close()

	c := NewClient(server.URL, "testmodel", 5*time.Second, nil)
	ch, err := c.ChatStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.9)
	require.NoError(t, err)

	var events []Event
	for event := range ch {
		events = append(events, event)
	}

	require.Len(t, events, 4)
	assert.Equal(t, "str", events[0].Content)
	assert.Equal(t, "eam", events[1].Content)
	assert.Equal(t, "ing", events[2].Content)
	assert.Equal(t, EventDone, events[3].Kind)
	assert.Equal(t, "streaming", events[3].Final)
}

func TestChatStream_TransportErrorBeforeStream(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "testmodel", time.Second, nil)
	_, err := c.ChatStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	require.Error(t, err)
}

func TestChatStream_CancellationStopsReads(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"message":{"role":"assistant","content":"first"},"done":false}` + "\n"))
		flusher.Flush()
		<-release // hold the stream open
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(server.URL, "testmodel", 30*time.Second, nil)
	ch, err := c.ChatStream(ctx, []Message{{Role: "user", Content: "hi"}}, 0.7)
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "first", first.Content)

	cancel()

	// Channel must close promptly once the context is cancelled.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream channel did not close after cancellation")
		}
	}
}
