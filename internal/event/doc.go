// Package event defines the dashboard's broadcast payload types.
//
// The push channel carries envelopes whose "type" selects one of the
// payloads here. Unknown types are legal and flow through the channel
// untouched; this package only decodes the known vocabulary.
//
// Conventions:
//   - IDs: integer database row IDs from the dashboard
//   - Timestamps: ISO 8601 strings as emitted by the server
package event
