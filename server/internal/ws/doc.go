// Package ws implements the realtime event stream for pspwatch-server.
//
// Hub manages a set of connected WebSocket clients. It relays every event
// published on the events.Bus (ingested transactions, completed batches,
// alert transitions) and, every interval, broadcasts a health summary built
// by the supplied SummaryFunc.
//
// New(bus, interval, summary) creates a Hub.
// Hub.Run(ctx) subscribes to the bus and starts the summary ticker. It blocks
// until ctx is cancelled, then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket and sends a
// "connected" event immediately.
//
// Every message is one events.Event encoded as JSON:
//
//	{
//	  "id":   "6f1c…",
//	  "type": "summary",
//	  "data": { /* same schema as GET /api/alerts */ },
//	  "at":   "2024-01-15T12:00:00Z"
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The server mounts the hub at /api/events.
package ws
