package history

import (
	"fmt"
	"strings"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/lxassist/backend"
)

// AmbiguousIDError is returned when multiple records match a prefix
type AmbiguousIDError struct {
	Prefix  string
	Matches []backend.Conversation
}

func (e *AmbiguousIDError) Error() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Ambiguous conversation ID %q. Multiple matches found:", e.Prefix))
	for _, match := range e.Matches {
		lines = append(lines, fmt.Sprintf("- %s (%s, %s)",
			match.ID,
			match.Timestamp.Format("2006-01-02 15:04"),
			Summary(match.Question, 40)))
	}
	lines = append(lines, "")
	lines = append(lines, "Please use a longer prefix or run 'lxassist history list'.")
	return strings.Join(lines, "\n")
}

// Find returns the record whose id equals ref, or the single record whose
// id starts with ref. "latest" selects the most recent record.
func Find(records []backend.Conversation, ref string) (*backend.Conversation, error) {
	ref = strings.TrimSpace(ref)
	if len(records) == 0 {
		return nil, fmt.Errorf("no conversations found\n\nAsk a question with: lxassist ask \"your question\"")
	}

	if ref == "latest" {
		latest := records[0]
		for _, r := range records[1:] {
			if r.Timestamp.After(latest.Timestamp.Time) {
				latest = r
			}
		}
		return &latest, nil
	}

	var matches []backend.Conversation
	for _, r := range records {
		id := r.ID.String()
		if id == ref {
			return &r, nil
		}
		if ref != "" && strings.HasPrefix(id, ref) {
			matches = append(matches, r)
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("conversation not found: %s\n\nRun 'lxassist history list' to see available conversations.", ref)
	}
	if len(matches) > 1 {
		return nil, &AmbiguousIDError{Prefix: ref, Matches: matches}
	}
	return &matches[0], nil
}

// Summary shortens s to one line of at most width runes.
func Summary(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
