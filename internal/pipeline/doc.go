// Package pipeline implements the session feature-extraction stages: global
// session identity, temporal normalization, duplicate collapsing, trailing
// screen removal, and cohort labeling.
//
// Every stage is a pure function: it takes an event slice, returns a new
// slice plus stage statistics, and never mutates its input. A failed stage
// therefore cannot leave the caller's data half-updated. Stages that depend
// on ordering re-establish the canonical (session id, timestamp) sort at
// entry instead of assuming an earlier stage's sort survived.
//
// Structural errors (unassigned session ids, empty input) abort the stage;
// data-quality anomalies are absorbed into the returned stats. A collapsing
// pass that finds nothing to collapse is success, not an error.
package pipeline
