// Package engine drives the suggestion pipeline as a small state
// machine: pending, ingest, generate_combinations, evaluate, package,
// with an optional llm_fallback stage, ending in completed, partial, or
// failed.
//
// A run that generates zero combinations degrades to a partial result
// with a warning; the optional LLM fallback gets its chance first, and
// cards it produces are flagged llm_generated.
//
// The engine owns the in-flight request map (cancellation takes effect
// at stage boundaries) and a bounded index of recent results and their
// cards, so feedback and execution requests can find their way back to
// the source combination without the indexes growing forever. Execution
// outcomes feed the learning loop. Stage timings go to the telemetry
// sink; completed runs are broadcast as events.
package engine
