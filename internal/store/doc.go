// Package store provides durable persistence for chat-relay.
//
// # Overview
//
// Three independent stores live here:
//
//   - FileStore: the conversation index, loaded once per process from a JSON
//     snapshot and rewritten after every mutating orchestration cycle. Writes
//     go to a temp file followed by an atomic rename; a corrupt snapshot is
//     moved aside to a timestamped backup and the process continues with an
//     empty index. Persistence is best-effort: the in-memory
//     index is authoritative and load/save failures never reach callers.
//
//   - ThoughtLog: a SQLite database (modernc.org/sqlite) recording
//     diagnostic thought entries posted by clients.
//
//   - AgentLog: an append-only NDJSON file of frontend diagnostic events.
//
// # Snapshot Shape
//
// The conversation snapshot is an ordered JSON array:
//
//	[
//	  {
//	    "id": "…",
//	    "messages": [{"role": "user", "content": "…"}, …],
//	    "sentimentHistory": [{"emotion": "neutral", "score": 0, "confidence": 0}, …]
//	  }
//	]
//
// Each conversation's turn list is truncated to the configured maximum
// (oldest first) on every load and save.
//
// # Concurrency
//
// FileStore serializes index access, turn appends, and snapshot writes
// internally, and its accessors return detached copies rather than live
// records. Ordering appends within a single conversation is the
// orchestrator's responsibility.
package store
