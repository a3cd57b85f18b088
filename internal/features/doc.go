// Package features builds the wide per-session feature table from the
// cleaned, collapsed event stream: eight numeric rollups for every
// functional block, a whole-session duration, and passthrough context from
// the session's first event.
//
// The column naming contract ({prefix}_{metric}) and the fill rules (0 for
// every metric, -1 for max_step) are the interface every downstream
// consumer depends on; changing either silently corrupts downstream
// statistics.
package features
