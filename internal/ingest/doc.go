// Package ingest normalizes raw inventory records into the typed
// capability graph the suggestion pipeline operates on, and derives a
// point-in-time context snapshot from the clock and caller hints.
//
// Device typing prefers an exact manufacturer/model lookup and falls back
// to keyword inference over the display name. The fallback is best-effort:
// callers must treat capability assignment as advisory, not authoritative.
package ingest
