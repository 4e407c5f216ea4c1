// Package spanedit finds and replaces literal text in rich-text paragraphs
// while preserving run formatting.
//
// A match may cross run boundaries. Replacement text is written into the run
// where the match starts and inherits its formatting; runs fully covered by
// the match are emptied but kept in place; the run where the match ends keeps
// its suffix and its own formatting. Runs are never created or removed on the
// formatting-preserving path.
//
// Matches never cross paragraph boundaries.
//
// An Editor configured with AllowDegraded may fall back to replacing a
// paragraph's whole text as a single unformatted run when the span-aware
// path cannot apply a match. Every such fallback is reported through
// Result.Degraded.
//
// Nothing in this package is safe for concurrent mutation of the same
// paragraph; callers serialize writers.
package spanedit
