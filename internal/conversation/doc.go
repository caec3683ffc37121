// Package conversation orchestrates chat turns end to end.
//
// # Overview
//
// The Service is the top-level coordinator. For each incoming message it:
//
//  1. Resolves (or creates) the conversation by id.
//  2. Scores the message's sentiment. This never fails.
//  3. Asks the annotation pipeline for thoughts/reflections; failures
//     degrade to an empty set.
//  4. Builds the outgoing message list via the prompt builder.
//  5. Appends the user turn and persists it. This happens before the
//     backend call so a crash mid-call does not lose the user's input.
//  6. Dispatches the backend request in whole-response or streaming mode.
//  7. On success, appends the assistant turn and persists again. On
//     failure, the user turn stays recorded and no assistant turn is
//     added, so the next cycle on the same conversation sees the same
//     pending user message in context.
//
// # Concurrency
//
// Each orchestration cycle runs as its own goroutine chain; the store
// guards its own index and hands out detached snapshots. Cycles against
// the same conversation id are serialized via keyed locks: a second
// request for an id queues behind the in-flight one and re-reads the
// conversation once it holds the lock. Distinct ids run fully in
// parallel, so one conversation's slow backend call never blocks
// another's.
//
// # Cancellation
//
// When a streaming caller disconnects, the cycle stops reading backend
// chunks and releases the connection. Accumulated partial text is
// discarded, not persisted.
//
// # Lifecycle Events
//
// The Service publishes fire-and-forget events (conversation.created,
// turn.appended) to an optional Notifier. Publishing never blocks
// orchestration; slow subscribers lose events rather than stalling turns.
package conversation
