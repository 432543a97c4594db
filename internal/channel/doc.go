// Package channel manages the persistent push channel to the dashboard backend.
//
// A single Manager owns one WebSocket connection to the backend's /ws
// endpoint and keeps it alive: it probes liveness with an application-level
// ping/pong heartbeat, reopens the channel with bounded exponential backoff
// after transient failures, and fans decoded event frames out to subscribers.
//
// Delivery is at-most-once and ephemeral. Frames in flight during a reconnect
// are lost, and no ordering holds across the old and new channel.
package channel
