package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/pqcall/pqcall-go/internal/core/domain"
	"github.com/pqcall/pqcall-go/internal/telemetry/metric"
)

// TokenStorage persists token metadata. Implementations must make
// StoreTokenMapping durable before returning; a token that cannot be
// resolved after issue is worse than no token at all.
type TokenStorage interface {
	// StoreTokenMapping persists the metadata for a freshly issued token.
	StoreTokenMapping(ctx context.Context, meta *domain.TokenMetadata) error

	// LookupByDigest returns the metadata whose lookup digest matches,
	// or domain.ErrTokenNotFound.
	LookupByDigest(ctx context.Context, digest string) (*domain.TokenMetadata, error)

	// LookupTokensByUser returns all metadata for a user, any state.
	LookupTokensByUser(ctx context.Context, userID string) ([]*domain.TokenMetadata, error)

	// UpdateTokenMapping persists changed metadata (revocation).
	UpdateTokenMapping(ctx context.Context, meta *domain.TokenMetadata) error

	// DeleteToken removes the metadata keyed by lookup digest.
	// Deleting an absent token is not an error.
	DeleteToken(ctx context.Context, digest string) error

	// CleanupExpiredTokens deletes all expired and all revoked metadata
	// storage-wide and returns how many entries were removed.
	CleanupExpiredTokens(ctx context.Context) (int, error)

	// Close releases storage resources.
	Close() error
}

// TokenManagerConfig tunes token issue policy.
type TokenManagerConfig struct {
	// TokenTTL is the validity window stamped on new tokens.
	TokenTTL time.Duration

	// MaxActivePerUser caps live tokens per user. Issuing beyond the
	// cap evicts the user's oldest active token.
	MaxActivePerUser int
}

// DefaultTokenManagerConfig returns the standard issue policy.
func DefaultTokenManagerConfig() TokenManagerConfig {
	return TokenManagerConfig{
		TokenTTL:         24 * time.Hour,
		MaxActivePerUser: 5,
	}
}

const userLockStripes = 64

// userLocks stripes per-user mutexes so concurrent issues for the same
// user serialize without a global lock.
type userLocks struct {
	stripes [userLockStripes]sync.Mutex
}

func (l *userLocks) forUser(userID string) *sync.Mutex {
	return &l.stripes[murmur3.Sum32([]byte(userID))%userLockStripes]
}

// TokenManager issues, resolves, and revokes secure tokens.
type TokenManager struct {
	cfg     TokenManagerConfig
	storage TokenStorage
	locks   userLocks
	logger  *slog.Logger
	metrics *metric.Registry
}

// NewTokenManager wires a manager over the given storage.
func NewTokenManager(cfg TokenManagerConfig, storage TokenStorage, logger *slog.Logger, metrics *metric.Registry) (*TokenManager, error) {
	if storage == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("token storage is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("token ttl must be positive")
	}
	if cfg.MaxActivePerUser <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("max active tokens per user must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenManager{
		cfg:     cfg,
		storage: storage,
		logger:  logger.With("component", "token_manager"),
		metrics: metrics,
	}, nil
}

// Generate mints a new secure token for userID, enforcing the per-user
// cap and purging the user's expired metadata along the way. The
// returned SecureToken carries the only copy of the plaintext value.
func (m *TokenManager) Generate(ctx context.Context, userID string) (*domain.SecureToken, *domain.TokenMetadata, error) {
	if userID == "" {
		return nil, nil, domain.ErrInvalidArgument.WithDetails("user id is required")
	}

	mu := m.locks.forUser(userID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := m.storage.LookupTokensByUser(ctx, userID)
	if err != nil {
		return nil, nil, domain.ErrStorageError.WithCause(err)
	}

	now := time.Now().UnixMilli()
	active := make([]*domain.TokenMetadata, 0, len(existing))
	for _, meta := range existing {
		if !meta.IsActive() {
			if derr := m.storage.DeleteToken(ctx, meta.LookupHash); derr != nil {
				return nil, nil, domain.ErrStorageError.WithCause(derr)
			}
			continue
		}
		active = append(active, meta)
	}

	// Evict the oldest active token once the cap is reached.
	for len(active) >= m.cfg.MaxActivePerUser {
		oldest := 0
		for i, meta := range active {
			if meta.CreatedAt < active[oldest].CreatedAt {
				oldest = i
			}
		}
		if derr := m.storage.DeleteToken(ctx, active[oldest].LookupHash); derr != nil {
			return nil, nil, domain.ErrStorageError.WithCause(derr)
		}
		m.logger.Info("evicted oldest token at per-user cap", "user_id", domain.MaskUserID(userID))
		active = append(active[:oldest], active[oldest+1:]...)
	}

	tok, err := domain.NewSecureToken()
	if err != nil {
		return nil, nil, domain.ErrTokenGeneration.WithCause(err)
	}
	hashed, err := domain.HashSecureToken(tok.Value)
	if err != nil {
		return nil, nil, domain.ErrTokenGeneration.WithCause(err)
	}

	meta := &domain.TokenMetadata{
		Hashed:     hashed,
		LookupHash: domain.LookupDigest(tok.Value),
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now + m.cfg.TokenTTL.Milliseconds(),
	}
	if err := m.storage.StoreTokenMapping(ctx, meta); err != nil {
		return nil, nil, domain.ErrStorageError.WithCause(err)
	}

	m.metrics.TokenIssued()
	m.logger.Info("token issued",
		"user_id", domain.MaskUserID(userID),
		"token", domain.MaskTokenValue(tok.Value),
		"expires_at", meta.ExpiresAt,
	)
	return tok, meta.Clone(), nil
}

// Resolve maps a raw QR payload back to the owning user id. Expired,
// revoked, and unknown tokens all resolve the same way, as not found.
func (m *TokenManager) Resolve(ctx context.Context, raw string) (string, error) {
	tok, err := domain.ParseQR(raw)
	if err != nil {
		return "", err
	}

	meta, err := m.storage.LookupByDigest(ctx, domain.LookupDigest(tok.Value))
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return "", domain.ErrTokenNotFound
		}
		return "", domain.ErrStorageError.WithCause(err)
	}

	// The digest located a candidate; the salted hash proves it.
	if !domain.VerifySecureToken(tok.Value, meta.Hashed) {
		return "", domain.ErrTokenNotFound
	}
	if !meta.IsActive() {
		return "", domain.ErrTokenNotFound
	}
	return meta.UserID, nil
}

// Revoke marks the token carried by raw as revoked. It reports false
// when the token was already revoked; revocation is idempotent.
func (m *TokenManager) Revoke(ctx context.Context, raw, reason string) (bool, error) {
	tok, err := domain.ParseQR(raw)
	if err != nil {
		return false, err
	}

	digest := domain.LookupDigest(tok.Value)
	meta, err := m.storage.LookupByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return false, domain.ErrTokenNotFound
		}
		return false, domain.ErrStorageError.WithCause(err)
	}

	// The owner is only known after the lookup. Take the user's stripe
	// and re-fetch: Generate or RevokeAllUserTokens may have raced us.
	mu := m.locks.forUser(meta.UserID)
	mu.Lock()
	defer mu.Unlock()

	meta, err = m.storage.LookupByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return false, domain.ErrTokenNotFound
		}
		return false, domain.ErrStorageError.WithCause(err)
	}
	if !domain.VerifySecureToken(tok.Value, meta.Hashed) {
		return false, domain.ErrTokenNotFound
	}
	if !meta.Revoke(reason) {
		return false, nil
	}
	if err := m.storage.UpdateTokenMapping(ctx, meta); err != nil {
		return false, domain.ErrStorageError.WithCause(err)
	}

	m.metrics.TokenRevoked()
	m.logger.Info("token revoked",
		"user_id", domain.MaskUserID(meta.UserID),
		"reason", reason,
	)
	return true, nil
}

// RevokeAllUserTokens revokes every active token a user holds and
// returns how many flipped state. Already-revoked tokens are skipped.
func (m *TokenManager) RevokeAllUserTokens(ctx context.Context, userID, reason string) (int, error) {
	if userID == "" {
		return 0, domain.ErrInvalidArgument.WithDetails("user id is required")
	}

	mu := m.locks.forUser(userID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := m.storage.LookupTokensByUser(ctx, userID)
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}

	revoked := 0
	for _, meta := range existing {
		if !meta.Revoke(reason) {
			continue
		}
		if err := m.storage.UpdateTokenMapping(ctx, meta); err != nil {
			return revoked, domain.ErrStorageError.WithCause(err)
		}
		m.metrics.TokenRevoked()
		revoked++
	}
	m.logger.Info("revoked all user tokens", "user_id", domain.MaskUserID(userID), "count", revoked)
	return revoked, nil
}

// CleanupExpired deletes expired and revoked metadata storage-wide.
func (m *TokenManager) CleanupExpired(ctx context.Context) (int, error) {
	removed, err := m.storage.CleanupExpiredTokens(ctx)
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	if removed > 0 {
		m.metrics.TokensSwept(removed)
		m.logger.Info("token sweep complete", "removed", removed)
	}
	return removed, nil
}
