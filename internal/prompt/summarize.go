// ABOUTME: Condenses older conversation turns into one synthetic context line

package prompt

import (
	"fmt"
	"strings"

	"github.com/2389/chat-relay/internal/store"
)

// NoPriorContext is returned for an empty input sequence.
const NoPriorContext = "No prior conversation context."

// summarySnippetLen bounds how many runes of each turn's content the summary
// quotes.
const summarySnippetLen = 40

// Summarize condenses an ordered sequence of older turns into a single
// descriptive sentence quoting the start of each turn. Deterministic for
// identical input.
func Summarize(turns []store.Turn) string {
	if len(turns) == 0 {
		return NoPriorContext
	}

	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		parts = append(parts, fmt.Sprintf("%s said %q", turn.Role, summarySnippet(turn.Content)))
	}
	return fmt.Sprintf("Summary of earlier conversation: %s.", strings.Join(parts, "; "))
}

// summarySnippet truncates on a rune boundary so multi-byte content never
// yields invalid UTF-8.
func summarySnippet(s string) string {
	runes := []rune(s)
	if len(runes) <= summarySnippetLen {
		return s
	}
	return string(runes[:summarySnippetLen]) + "..."
}
