// Package archive implements a batch recorder for push-channel events.
//
// The recorder is a plain subscriber: the channel itself stays ephemeral
// and at-most-once, and the recorder simply copies what it receives into
// the channel_events table. Rows are append-only and deduplicated on
// ingest_id with ON CONFLICT DO NOTHING.
package archive
