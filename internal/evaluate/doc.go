// Package evaluate scores combination candidates for feasibility and
// expected value.
//
// Feasibility is multiplicative: each violated rule scales the score
// down (hard safety rules scale it to zero), and a candidate survives
// only while its score stays above zero. Value is a weighted sum of
// context fit, utility, preference fit, and novelty, with a capped risk
// deduction, then nudged by the user's learned affinities. Effort,
// privacy, and safety grades are derived from the capability types
// involved so that downstream packaging and plan validation never have
// to inspect devices again.
package evaluate
