package providers

import "strings"

// truncateMargin leaves room for an ending when accumulating sentences;
// results shorter than this fall back to a hard cut.
const truncateMargin = 50

// TruncatePrompt shortens prompt to fit within limit while preserving key
// information. Whole sentences are kept while they fit under the limit
// minus a safety margin; if that yields nothing useful the prompt is cut
// hard at limit-3 with an ellipsis. Prompts already within the limit are
// returned unchanged, so truncation is idempotent.
func TruncatePrompt(prompt string, limit int) string {
	if limit <= 0 || len(prompt) <= limit {
		return prompt
	}

	sentences := strings.Split(prompt, ".")
	var b strings.Builder
	for _, sentence := range sentences {
		if b.Len()+len(sentence)+1 > limit-truncateMargin {
			break
		}
		b.WriteString(sentence)
		b.WriteString(".")
	}

	truncated := b.String()
	if truncated == "" || len(truncated) < truncateMargin {
		truncated = prompt[:limit-3] + "..."
	}

	return strings.TrimSpace(truncated)
}
