// Package httpapi exposes the conversation service over HTTP.
//
// # Endpoints
//
//   - POST /api/chat: one full orchestration cycle, JSON in and out.
//   - POST /api/chat/stream: same cycle with the reply streamed as SSE
//     data frames; the terminal frame carries "[DONE]" plus the final
//     sentiment, errors arrive as {error, details} frames.
//   - GET /api/health: liveness probe.
//   - GET/POST /api/thoughts: the diagnostic thought log.
//   - POST /api/log: append-only frontend event log.
//
// # Shape
//
// The package is deliberately thin: handlers parse, validate, delegate to
// the orchestrator or a log store, and encode. Conversation semantics never
// live here. Middleware adds permissive CORS and per-client-IP token-bucket
// rate limiting with separate budgets for chat and log traffic.
package httpapi
