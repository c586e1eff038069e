// Package ingest validates client-supplied transactions and writes them to
// the store.
//
// Validate is the only place raw wire input becomes a store.Transaction.
// Failures are reported per field in a *ValidationError. A bulk request is
// validated as a whole: one bad element rejects the batch before anything is
// written.
//
// Every successful write is announced on the event bus.
package ingest
