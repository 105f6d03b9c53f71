// Package capability defines the shared data model of the suggestion
// pipeline: device and service capabilities, context snapshots, combination
// candidates, recommendation cards, user overlays, execution plans, and
// feedback records.
//
// The package is a leaf: it has no dependencies on other Hearth packages.
// All pipeline stages communicate through these types.
//
// # Capability Types
//
// A capability is one normalized, typed function a device or service
// exposes. Device types (lighting, sensing, video, ...) and service types
// (weather, calendar, presence, ...) share the Type enum so combinations
// can mix both freely.
//
// # Capability Signatures
//
// ComputeSignature produces an order-independent fingerprint of a
// combination's (type, room) multiset. Two combinations that differ only
// in which concrete device fills a slot share a signature, which drives
// deduplication in generation and clustering in packaging.
//
// # User Overlays
//
// UserOverlay is the only durable, mutable structure in the pipeline.
// Affinities stay clamped to [0,1] and pattern strengths decay over time.
// Callers hand copies across goroutine boundaries via DeepCopy.
package capability
