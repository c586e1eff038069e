// Package store persists payment transactions and answers the windowed
// aggregate queries the health engine runs on.
//
// Two database/sql backends are supported: SQLite through modernc.org/sqlite
// (the default, one writer, WAL journal) and PostgreSQL through lib/pq.
// Queries are written once with ? placeholders and rebound for postgres.
//
// Timestamps are stored as fixed-width UTC text (compute.TimeLayout) so the
// inclusive window filter `created_at >= from AND created_at <= to` compares
// lexicographically on both backends.
//
// Store is opened once at startup and closed at shutdown; it holds no other
// state. RunRetention deletes rows older than the configured retention.
package store
