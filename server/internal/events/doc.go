// Package events carries realtime notifications from the ingest path and the
// alert engine to stream subscribers.
//
// Event types:
//   - connected    sent once to each new stream client
//   - transaction  one transaction was ingested
//   - batch        a bulk ingest completed
//   - alert        a PSP status alert fired or resolved
//   - summary      periodic health summary
//
// LocalBus fans events out in-process. RedisBus publishes them on a Redis
// pub/sub channel so every server replica's subscribers see every event.
// Both drop events for subscribers whose buffer is full rather than block
// the publisher.
package events
