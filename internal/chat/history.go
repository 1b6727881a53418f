package chat

import "strings"

// NormalizeHistory canonicalizes a raw prior-turn history into a well-formed
// alternating transcript prefix for the upstream model. Rules, in order:
// entries must be valid {role: user|model, content} pairs; content is trimmed
// and empties dropped; leading entries are dropped until the first user turn
// (a transcript cannot open with a model turn); relative order of everything
// that survives is preserved.
func NormalizeHistory(raw []Turn) []Turn {
	normalized := make([]Turn, 0, len(raw))
	started := false
	for _, t := range raw {
		if t.Role != RoleUser && t.Role != RoleModel {
			continue
		}
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		if !started {
			if t.Role != RoleUser {
				continue
			}
			started = true
		}
		normalized = append(normalized, Turn{Role: t.Role, Content: content})
	}
	return normalized
}
