package services

import (
	"context"
	"strings"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// normaliseIDs trims ids and drops blanks and repeats, keeping first-seen order.
func normaliseIDs(ids []string) []string {
	var out []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// actorPointer maps a blank acting user to a NULL audit user.
func actorPointer(userID string) *string {
	if userID = strings.TrimSpace(userID); userID != "" {
		return &userID
	}
	return nil
}
