// Package feedback closes the learning loop: user reactions to
// recommendation cards become durable overlay adjustments that bias
// future scoring.
//
// Accepts and rejects move device and room affinities; snoozes, edits,
// and execution outcomes record pattern entries of varying strength.
// Pattern strengths decay with age and are pruned below a floor, and raw
// feedback records are purged past a retention window. Overlay mutation
// is serialised per user.
package feedback
