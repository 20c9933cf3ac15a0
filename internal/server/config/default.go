// Package config defines the pqcall-server configuration.
package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5180"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultStorageBackend = "memory"
	DefaultDataDir        = "/var/lib/pqcall-server/data"

	DefaultTokenTTL         = 24 * time.Hour
	DefaultMaxActivePerUser = 5

	DefaultMaxActiveSessions = 10_000
	DefaultRingingTimeout    = 60 * time.Second
	DefaultMaxCallDuration   = 4 * time.Hour

	DefaultFreshnessWindow = 5 * time.Minute
	DefaultReplayCacheSize = 100_000
	DefaultReplayTTL       = 10 * time.Minute

	DefaultTokenSweepInterval   = 5 * time.Minute
	DefaultSessionSweepInterval = 10 * time.Second
	DefaultReplaySweepInterval  = time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		Storage: StorageSection{
			Backend: DefaultStorageBackend,
			DataDir: DefaultDataDir,
		},
		Token: TokenSection{
			TTL:              DefaultTokenTTL,
			MaxActivePerUser: DefaultMaxActivePerUser,
		},
		Session: SessionSection{
			MaxActive:       DefaultMaxActiveSessions,
			RingingTimeout:  DefaultRingingTimeout,
			MaxCallDuration: DefaultMaxCallDuration,
		},
		Signaling: SignalingSection{
			FreshnessWindow: DefaultFreshnessWindow,
			ReplayCacheSize: DefaultReplayCacheSize,
			ReplayTTL:       DefaultReplayTTL,
		},
		Sweep: SweepSection{
			TokenInterval:   DefaultTokenSweepInterval,
			SessionInterval: DefaultSessionSweepInterval,
			ReplayInterval:  DefaultReplaySweepInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
