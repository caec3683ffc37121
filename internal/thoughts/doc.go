// Package thoughts generates short contextual annotations ("thoughts" and
// "reflections") for each orchestration cycle. Annotations are ephemeral
// diagnostic output: the orchestrator surfaces them to the caller but never
// persists them into conversation history. The rule-based implementation is
// deliberately simple; the Annotator interface leaves room for a
// model-backed generator.
package thoughts
