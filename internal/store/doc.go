// Package store persists the structured civic archive in SQLite: meetings,
// their agenda items and motions, and the longitudinal matter records that
// span meetings.
//
// The Store manages database connections, migrations, and the write contract
// downstream readers rely on: a meeting's agenda items and motions are always
// replaced together in one transaction, so no reader observes structure from
// two different ingestions at once. Meetings are never deleted, only enriched;
// matters are mutated additively (first/last-seen bounds widen, identifier
// sets never shrink).
//
// Treat this package as the single source of truth for archive semantics; when
// you add new columns, add a migration under migrations/ rather than editing
// an applied one.
package store
