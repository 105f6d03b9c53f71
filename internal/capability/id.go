package capability

import "github.com/google/uuid"

// NewID generates a short prefixed identifier, e.g. "cand-3f2a91c3".
//
// The 8-hex-char suffix is enough to avoid collisions within a request's
// lifetime; durable records store the full context alongside the id.
func NewID(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}
