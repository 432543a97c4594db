// Package api provides the REST client for the dashboard's HTTP API.
//
// Endpoints used:
//   - GET  /health
//   - GET  /api/alerts
//   - GET  /api/alerts/stats
//   - POST /api/alerts/{id}/resolve
//
// The live push channel at /ws is handled by the channel package.
package api
