// Package shipper delivers simulated transactions to pspwatch-server.
//
// Shipper.Ship() never blocks: transactions are appended to an in-memory
// buffer of BufferSize. When the buffer is full the oldest entries are
// evicted so the latest traffic is always preserved.
//
// Shipper.Run() flushes the buffer every ShipInterval as POST
// /api/transactions/bulk requests of at most BatchSize transactions. After a
// transient failure (network error, 5xx, 408, 429) the batch is requeued at
// the front of the buffer, keeping delivery order, and the next flush waits
// out a truncated exponential backoff (1s→60s, ±25% jitter). Any other 4xx
// discards the batch immediately.
//
// WaitReady() gates startup on the server's gRPC health service.
//
// Auth: mTLS client certificates on both surfaces, or an API key sent as an
// HTTP header and as gRPC metadata, or nothing for local development.
package shipper
