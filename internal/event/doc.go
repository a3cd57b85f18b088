// Package event defines the typed records flowing through the session
// pipeline and the loaders that produce them from raw CSV sources.
//
// The raw event log is noisy: timestamps may carry a bracketed zone suffix,
// individual timestamps may be unparseable, actions may be missing, and exact
// duplicate rows occur. Loading coerces row-level problems to sentinels and
// counts them; Clean drops what cannot be recovered. Structural problems
// (missing columns, empty files) fail immediately.
//
// Every downstream stage depends on a single canonical ordering: ascending by
// global session id, then timestamp. SortCanonical re-establishes it and is
// called at the entry of every order-sensitive stage rather than assumed.
package event
