// Package matter resolves agenda item references to recurring civic business.
//
// A matter is the long-lived file behind individual agenda items: a rezoning
// application, a bylaw, a development permit. Items reference matters by
// identifier ("File No. 2024-117") or by street address, with inconsistent
// formatting across meetings. The package normalizes both forms and matches
// them against an in-memory index loaded from the store at the start of a
// run. Matching is deliberately conservative: a wrong link is worse than a
// missing one, so anything below the confidence floor is NoMatch and
// unresolvable ties are Ambiguous.
package matter
