package config

import "time"

// WatcherConfig is the root configuration for a pulsewatch instance.
type WatcherConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this watcher.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds dashboard server settings.
type ServerConfig struct {
	Origin  string        `yaml:"origin"`  // Dashboard base URL, e.g. https://dash.example.com
	WSURL   string        `yaml:"ws_url"`  // Explicit push-channel URL; overrides the origin-derived one
	Token   string        `yaml:"token"`   // Bearer token for the handshake Authorization header
	Timeout time.Duration `yaml:"timeout"` // REST request timeout
}

// DatabaseConfig holds the Postgres connection used by the event archive.
// Optional: the watcher runs without one when archiving is disabled.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ArchiveConfig holds batch archiver settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// HealthConfig holds the local health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
