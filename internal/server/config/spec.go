// Package config defines the pqcall-server configuration.
package config

import "time"

// ServerConfig is the root configuration for pqcall-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Storage   StorageSection   `koanf:"storage"`
	Token     TokenSection     `koanf:"token"`
	Session   SessionSection   `koanf:"session"`
	Signaling SignalingSection `koanf:"signaling"`
	Sweep     SweepSection     `koanf:"sweep"`
	Log       LogSection       `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	TLSCertFile     string        `koanf:"tls_cert_file"`
	TLSKeyFile      string        `koanf:"tls_key_file"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageSection configures token metadata storage.
type StorageSection struct {
	// Backend selects the token store: "memory" or "badger".
	Backend string `koanf:"backend"`

	// DataDir is the Badger database directory.
	DataDir string `koanf:"data_dir"`
}

// TokenSection configures token issue policy.
type TokenSection struct {
	TTL              time.Duration `koanf:"ttl"`
	MaxActivePerUser int           `koanf:"max_active_per_user"`
}

// SessionSection configures the call-session lifecycle.
type SessionSection struct {
	MaxActive       int           `koanf:"max_active"`
	RingingTimeout  time.Duration `koanf:"ringing_timeout"`
	MaxCallDuration time.Duration `koanf:"max_call_duration"`
}

// SignalingSection configures the secure signaling channel.
type SignalingSection struct {
	FreshnessWindow time.Duration `koanf:"freshness_window"`
	ReplayCacheSize int           `koanf:"replay_cache_size"`
	ReplayTTL       time.Duration `koanf:"replay_ttl"`
}

// SweepSection configures the background cleanup cadence.
type SweepSection struct {
	TokenInterval   time.Duration `koanf:"token_interval"`
	SessionInterval time.Duration `koanf:"session_interval"`
	ReplayInterval  time.Duration `koanf:"replay_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
