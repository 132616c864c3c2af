package history

import "strings"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one sanitized conversation turn. History is client-authoritative;
// the server keeps no session state between requests.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RawTurn is a turn as supplied by the client, before any validation.
type RawTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Normalize bounds client-supplied history: only user/assistant roles are
// kept, each turn's content is trimmed and capped at maxChars, empty turns
// are dropped, and only the last maxTurns survive, in original order.
// Never fails; garbage in yields a shorter (possibly empty) history out.
func Normalize(raw []RawTurn, maxTurns, maxChars int) []Turn {
	turns := make([]Turn, 0, len(raw))
	for _, r := range raw {
		if r.Role != RoleUser && r.Role != RoleAssistant {
			continue
		}
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}
		if maxChars > 0 && len(content) > maxChars {
			content = content[:maxChars]
		}
		turns = append(turns, Turn{Role: r.Role, Content: content})
	}

	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	return turns
}

// FirstReply reports whether the assistant has spoken yet. A history with
// no assistant turn means the next reply is the session's first.
func FirstReply(turns []Turn) bool {
	for _, t := range turns {
		if t.Role == RoleAssistant {
			return false
		}
	}
	return true
}
