// Package align locates agenda item and motion markers in raw extracted
// meeting text and associates document spans and transcript segment ranges
// with the items they belong to.
//
// The package is a pure function library: no network, no database, no
// configuration. Marker detection is pattern-based (numeric prefixes,
// "Item 4.2", "Motion:" labels) and ties are always broken by document
// order. Text without a usable marker is attached to the nearest preceding
// marker; a document with no markers at all yields a single unanchored span,
// which callers must handle as a valid outcome.
package align
