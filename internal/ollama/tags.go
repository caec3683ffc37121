// ABOUTME: Extraction of <thought> tag annotations embedded in backend replies
// ABOUTME: Strips the tags from the reply text and returns their contents separately

package ollama

import (
	"regexp"
	"strings"
)

// NoResponsePlaceholder replaces a reply that is empty after tag stripping.
const NoResponsePlaceholder = "[No response from Ollama]"

var thoughtTagRe = regexp.MustCompile(`(?is)<thought>(.*?)</thought>`)
var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractThoughtTags pulls <thought>...</thought> annotations out of an
// aggregated reply. Some models interleave these with the answer; callers
// get the cleaned reply and the tag contents separately. A reply left empty
// by stripping becomes NoResponsePlaceholder.
func ExtractThoughtTags(reply string) (string, []string) {
	var tags []string
	for _, match := range thoughtTagRe.FindAllStringSubmatch(reply, -1) {
		if tag := strings.TrimSpace(match[1]); tag != "" {
			tags = append(tags, tag)
		}
	}

	cleaned := thoughtTagRe.ReplaceAllString(reply, "")
	cleaned = strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		cleaned = NoResponsePlaceholder
	}
	return cleaned, tags
}
