// Package orchestration turns accepted recommendations into abstract
// execution plans and hands them to an external executor over MQTT.
//
// The core never drives devices itself: a plan describes ordered steps,
// triggers, schedules, and fallbacks, and the executor on the other side
// of the broker owns the actual I/O. Plans pass safety gates before
// dispatch (restricted-safety and sensitive-privacy steps never leave
// the core) and every dispatch is recorded in execution history, with
// results fed back to the learning loop.
package orchestration
