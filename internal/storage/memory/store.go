package memory

import (
	"context"

	"github.com/pqcall/pqcall-go/internal/core/domain"
	"github.com/pqcall/pqcall-go/pkg/cmap"
)

// Store is the in-memory token storage: a sharded primary index keyed
// by lookup digest plus a per-user secondary index. Metadata is cloned
// on the way in and out, so callers can never alias stored state.
type Store struct {
	// Primary index: lookup digest -> metadata
	tokens *cmap.Map[*domain.TokenMetadata]

	// Secondary index: user id -> digests
	userIndex *UserIndex
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tokens:    cmap.New[*domain.TokenMetadata](),
		userIndex: NewUserIndex(),
	}
}

// StoreTokenMapping persists metadata for a freshly issued token.
func (s *Store) StoreTokenMapping(ctx context.Context, meta *domain.TokenMetadata) error {
	if meta == nil || meta.LookupHash == "" || meta.UserID == "" {
		return domain.ErrInvalidArgument.WithDetails("metadata with lookup hash and user id is required")
	}
	s.tokens.Set(meta.LookupHash, meta.Clone())
	s.userIndex.Add(meta.UserID, meta.LookupHash)
	return nil
}

// LookupByDigest returns the metadata stored under a lookup digest.
func (s *Store) LookupByDigest(ctx context.Context, digest string) (*domain.TokenMetadata, error) {
	meta, ok := s.tokens.Get(digest)
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return meta.Clone(), nil
}

// LookupTokensByUser returns all metadata a user holds, any state.
func (s *Store) LookupTokensByUser(ctx context.Context, userID string) ([]*domain.TokenMetadata, error) {
	digests := s.userIndex.Digests(userID)
	result := make([]*domain.TokenMetadata, 0, len(digests))
	for _, digest := range digests {
		if meta, ok := s.tokens.Get(digest); ok {
			result = append(result, meta.Clone())
		}
	}
	return result, nil
}

// UpdateTokenMapping persists changed metadata for an existing token.
func (s *Store) UpdateTokenMapping(ctx context.Context, meta *domain.TokenMetadata) error {
	if meta == nil || meta.LookupHash == "" {
		return domain.ErrInvalidArgument.WithDetails("metadata with lookup hash is required")
	}
	if !s.tokens.Has(meta.LookupHash) {
		return domain.ErrTokenNotFound
	}
	s.tokens.Set(meta.LookupHash, meta.Clone())
	return nil
}

// DeleteToken removes the metadata stored under a digest. Absent
// tokens delete cleanly.
func (s *Store) DeleteToken(ctx context.Context, digest string) error {
	meta, ok := s.tokens.Pop(digest)
	if !ok {
		return nil
	}
	s.userIndex.Remove(meta.UserID, digest)
	return nil
}

// CleanupExpiredTokens deletes all expired and revoked metadata and
// returns the number of entries removed.
func (s *Store) CleanupExpiredTokens(ctx context.Context) (int, error) {
	var stale []string
	s.tokens.Range(func(digest string, meta *domain.TokenMetadata) bool {
		if meta.Revoked || meta.IsExpired() {
			stale = append(stale, digest)
		}
		return true
	})

	removed := 0
	for _, digest := range stale {
		if meta, ok := s.tokens.Pop(digest); ok {
			s.userIndex.Remove(meta.UserID, digest)
			removed++
		}
	}
	return removed, nil
}

// Count reports how many token entries the store holds.
func (s *Store) Count() int {
	return s.tokens.Count()
}

// Close releases nothing; the store is purely in-memory.
func (s *Store) Close() error {
	return nil
}
