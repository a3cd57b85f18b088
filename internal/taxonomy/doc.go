// Package taxonomy loads the functional-block categorization artifact and
// exposes O(1) lookup from (screen, functional, action) triples to block
// membership, funnel step, and success/review typing.
//
// The artifact is an externally curated JSON document describing the app's
// functional blocks, each with groups of (screen, functional) pairs and five
// typed action lists. It is validated against a CUE schema before use; a
// malformed document is a structural error, never silently partial.
//
// All triple keys are NFC-normalized before hashing so byte-different but
// canonically-equal Cyrillic strings resolve to the same entry.
package taxonomy
