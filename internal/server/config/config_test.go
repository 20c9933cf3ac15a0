package config

import (
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.Server.HTTP.Addr, DefaultHTTPAddr)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Token.TTL != DefaultTokenTTL {
		t.Errorf("Token.TTL = %v, want %v", cfg.Token.TTL, DefaultTokenTTL)
	}
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) error = %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *ServerConfig)
		wantErr string
	}{
		{
			name:    "missing http addr",
			mutate:  func(cfg *ServerConfig) { cfg.Server.HTTP.Addr = "" },
			wantErr: "server.http.addr",
		},
		{
			name:    "cert without key",
			mutate:  func(cfg *ServerConfig) { cfg.Server.HTTP.TLSCertFile = "/tmp/cert.pem" },
			wantErr: "tls_cert_file and tls_key_file",
		},
		{
			name:    "unknown backend",
			mutate:  func(cfg *ServerConfig) { cfg.Storage.Backend = "sqlite" },
			wantErr: "storage.backend",
		},
		{
			name: "badger without data dir",
			mutate: func(cfg *ServerConfig) {
				cfg.Storage.Backend = "badger"
				cfg.Storage.DataDir = ""
			},
			wantErr: "storage.data_dir",
		},
		{
			name:    "zero token ttl",
			mutate:  func(cfg *ServerConfig) { cfg.Token.TTL = 0 },
			wantErr: "token.ttl",
		},
		{
			name:    "zero per-user cap",
			mutate:  func(cfg *ServerConfig) { cfg.Token.MaxActivePerUser = 0 },
			wantErr: "token.max_active_per_user",
		},
		{
			name:    "zero session capacity",
			mutate:  func(cfg *ServerConfig) { cfg.Session.MaxActive = 0 },
			wantErr: "session.max_active",
		},
		{
			name:    "negative ringing timeout",
			mutate:  func(cfg *ServerConfig) { cfg.Session.RingingTimeout = -1 },
			wantErr: "session.ringing_timeout",
		},
		{
			name:    "zero freshness window",
			mutate:  func(cfg *ServerConfig) { cfg.Signaling.FreshnessWindow = 0 },
			wantErr: "signaling.freshness_window",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}
