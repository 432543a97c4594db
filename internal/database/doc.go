// Package database provides connection pool management for the event archive.
//
// A watcher keeps at most one PostgreSQL pool, used by the optional
// archive recorder. Running without a database is supported.
package database
