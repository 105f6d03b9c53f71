// Package powerset enumerates candidate device/service combinations from
// a capability graph.
//
// Generation proceeds by increasing combination size within a time budget
// checked between size tiers, applies cheap structural pruning (conflicts,
// unreachable devices, unavailable services, quiet-hours audio), collapses
// duplicates by capability signature, and ranks survivors by a preliminary
// value heuristic before truncation.
//
// The generator's output is deterministic for a given graph and context:
// elements are flattened in sorted order and ties are broken by signature.
package powerset
