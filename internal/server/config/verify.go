// Package config defines the pqcall-server configuration.
package config

import (
	"errors"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyToken(&cfg.Token); err != nil {
		return err
	}
	if err := verifySession(&cfg.Session); err != nil {
		return err
	}
	return verifySignaling(&cfg.Signaling)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http: tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case "memory":
		return nil
	case "badger":
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger backend")
		}
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
		return nil
	default:
		return errors.New("storage.backend must be \"memory\" or \"badger\"")
	}
}

func verifyToken(cfg *TokenSection) error {
	if cfg.TTL <= 0 {
		return errors.New("token.ttl must be positive")
	}
	if cfg.MaxActivePerUser < 1 {
		return errors.New("token.max_active_per_user must be at least 1")
	}
	return nil
}

func verifySession(cfg *SessionSection) error {
	if cfg.MaxActive < 1 {
		return errors.New("session.max_active must be at least 1")
	}
	if cfg.RingingTimeout <= 0 {
		return errors.New("session.ringing_timeout must be positive")
	}
	if cfg.MaxCallDuration <= 0 {
		return errors.New("session.max_call_duration must be positive")
	}
	return nil
}

func verifySignaling(cfg *SignalingSection) error {
	if cfg.FreshnessWindow <= 0 {
		return errors.New("signaling.freshness_window must be positive")
	}
	if cfg.ReplayCacheSize < 1 {
		return errors.New("signaling.replay_cache_size must be at least 1")
	}
	if cfg.ReplayTTL <= 0 {
		return errors.New("signaling.replay_ttl must be positive")
	}
	return nil
}
