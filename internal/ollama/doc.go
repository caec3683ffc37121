// Package ollama adapts the backend's line-delimited JSON chat protocol.
//
// # Protocol
//
// Requests are POST {host}/api/chat with body:
//
//	{"model": "...", "messages": [{"role": "...", "content": "..."}], "stream": bool, "temperature": 0.7}
//
// A streaming response is a sequence of newline-delimited JSON objects:
//
//	{"message": {"role": "assistant", "content": "frag"}, "done": false}
//	{"message": {"role": "assistant", "content": "ment"}, "done": false}
//	{"done": true}
//
// A non-streaming response is a single JSON object of the same shape
// carrying the whole reply.
//
// # Transcoding
//
// Transcode normalizes the raw byte stream into Content/Done/Error events.
// Framing is tolerant: partial lines are buffered until a newline arrives
// (partial reads can split a line across two buffer transfers) and
// malformed lines are skipped with a warning, never fatal. Exactly one
// terminal event is emitted.
package ollama
