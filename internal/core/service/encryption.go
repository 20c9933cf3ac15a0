package service

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

// signalingKeyInfo labels the HKDF expansion for signaling channel keys
// so the derived key can never collide with a media key.
const signalingKeyInfo = "pqcall-signaling-v1"

// SessionKeys bundles the per-session key material and the transport
// parameters derived from it.
type SessionKeys struct {
	Keys        domain.EncryptionKeys
	DTLS        domain.DTLSConfiguration
	SRTP        domain.SRTPConfiguration
	Fingerprint string
}

// EncryptionManager mints, holds, and wipes per-session key material.
// Every session gets fresh random keys; nothing is ever reused across
// sessions.
type EncryptionManager struct {
	mu     sync.Mutex
	keys   map[string]*SessionKeys
	logger *slog.Logger
}

// NewEncryptionManager returns an empty manager.
func NewEncryptionManager(logger *slog.Logger) *EncryptionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &EncryptionManager{
		keys:   make(map[string]*SessionKeys),
		logger: logger.With("component", "encryption_manager"),
	}
}

// Generate mints fresh key material for a session and derives its DTLS
// and SRTP parameters. Generating twice for the same session replaces
// (and wipes) the earlier material.
func (e *EncryptionManager) Generate(sessionID string) (*SessionKeys, error) {
	if sessionID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("session id")
	}

	masterKey := make([]byte, domain.MasterKeyLength)
	if _, err := rand.Read(masterKey); err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}
	masterSalt := make([]byte, domain.MasterSaltLength)
	if _, err := rand.Read(masterSalt); err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	// The DTLS fingerprint stands in for the certificate the media
	// stack will present; a digest of fresh random material until the
	// transport layer hands us the real one.
	certSeed := make([]byte, 32)
	if _, err := rand.Read(certSeed); err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}
	certDigest := sha256.Sum256(certSeed)

	sk := &SessionKeys{
		Keys: domain.EncryptionKeys{
			MasterKey:  masterKey,
			MasterSalt: masterSalt,
		},
		DTLS: domain.DTLSConfiguration{
			Fingerprint: domain.FingerprintBytes(certDigest[:]),
			Algorithm:   "sha-256",
			Setup:       "actpass",
		},
	}
	sk.SRTP = domain.SRTPConfiguration{
		CryptoSuite: domain.DefaultSRTPCryptoSuite,
		KeyParams:   domain.SRTPKeyParams(&sk.Keys),
	}
	sk.Fingerprint = domain.KeyFingerprint(&sk.Keys)

	e.mu.Lock()
	if old, ok := e.keys[sessionID]; ok {
		old.Keys.Wipe()
	}
	e.keys[sessionID] = sk
	e.mu.Unlock()

	e.logger.Debug("session keys generated", "session_id", sessionID, "fingerprint", sk.Fingerprint)
	return sk, nil
}

// Get returns the key material for a session.
func (e *EncryptionManager) Get(sessionID string) (*SessionKeys, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sk, ok := e.keys[sessionID]
	return sk, ok
}

// SignalingKey derives the 32-byte signaling channel key for a session
// via HKDF-SHA256 over the session's master key and salt.
func (e *EncryptionManager) SignalingKey(sessionID string) ([]byte, error) {
	e.mu.Lock()
	sk, ok := e.keys[sessionID]
	e.mu.Unlock()
	if !ok {
		return nil, domain.ErrChannelNotFound.WithDetails("no key material for session")
	}

	reader := hkdf.New(sha256.New, sk.Keys.MasterKey, sk.Keys.MasterSalt, []byte(signalingKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}
	return key, nil
}

// Wipe zeroes and forgets a session's key material. Idempotent.
func (e *EncryptionManager) Wipe(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sk, ok := e.keys[sessionID]
	if !ok {
		return
	}
	sk.Keys.Wipe()
	delete(e.keys, sessionID)
}

// Count reports how many sessions currently hold key material.
func (e *EncryptionManager) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.keys)
}
