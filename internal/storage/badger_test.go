package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	cfg := BadgerConfig{InMemory: true, GCInterval: time.Hour, GCDiscardRatio: 0.5}
	s, err := NewBadgerStore(cfg, nil)
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func newMeta(t *testing.T, userID string, expiresAt int64) *domain.TokenMetadata {
	t.Helper()
	tok, err := domain.NewSecureToken()
	if err != nil {
		t.Fatalf("NewSecureToken() error = %v", err)
	}
	hashed, err := domain.HashSecureToken(tok.Value)
	if err != nil {
		t.Fatalf("HashSecureToken() error = %v", err)
	}
	return &domain.TokenMetadata{
		Hashed:     hashed,
		LookupHash: domain.LookupDigest(tok.Value),
		UserID:     userID,
		CreatedAt:  time.Now().UnixMilli(),
		ExpiresAt:  expiresAt,
	}
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	meta := newMeta(t, "user-1", time.Now().Add(time.Hour).UnixMilli())

	if err := s.StoreTokenMapping(ctx, meta); err != nil {
		t.Fatalf("StoreTokenMapping() error = %v", err)
	}

	got, err := s.LookupByDigest(ctx, meta.LookupHash)
	if err != nil {
		t.Fatalf("LookupByDigest() error = %v", err)
	}
	if got.UserID != meta.UserID || got.Hashed.Hash != meta.Hashed.Hash {
		t.Errorf("round trip mismatch: got %+v", got)
	}

	if _, err := s.LookupByDigest(ctx, "missing"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("LookupByDigest(missing) error = %v, want ErrTokenNotFound", err)
	}
}

func TestBadgerStore_LookupTokensByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UnixMilli()

	for i := 0; i < 3; i++ {
		if err := s.StoreTokenMapping(ctx, newMeta(t, "user-1", expires)); err != nil {
			t.Fatalf("StoreTokenMapping() error = %v", err)
		}
	}
	if err := s.StoreTokenMapping(ctx, newMeta(t, "user-10", expires)); err != nil {
		t.Fatalf("StoreTokenMapping() error = %v", err)
	}

	tokens, err := s.LookupTokensByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("LookupTokensByUser() error = %v", err)
	}
	// "user-1" must not pick up "user-10" entries.
	if len(tokens) != 3 {
		t.Errorf("len(tokens) = %d, want 3", len(tokens))
	}
	for _, meta := range tokens {
		if meta.UserID != "user-1" {
			t.Errorf("foreign token in result: %q", meta.UserID)
		}
	}
}

func TestBadgerStore_UpdateAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	meta := newMeta(t, "user-1", time.Now().Add(time.Hour).UnixMilli())

	if err := s.UpdateTokenMapping(ctx, meta); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("UpdateTokenMapping() for absent token error = %v, want ErrTokenNotFound", err)
	}

	if err := s.StoreTokenMapping(ctx, meta); err != nil {
		t.Fatalf("StoreTokenMapping() error = %v", err)
	}
	meta.Revoke("test")
	if err := s.UpdateTokenMapping(ctx, meta); err != nil {
		t.Fatalf("UpdateTokenMapping() error = %v", err)
	}
	got, err := s.LookupByDigest(ctx, meta.LookupHash)
	if err != nil {
		t.Fatalf("LookupByDigest() error = %v", err)
	}
	if !got.Revoked {
		t.Error("revocation not persisted")
	}

	if err := s.DeleteToken(ctx, meta.LookupHash); err != nil {
		t.Fatalf("DeleteToken() error = %v", err)
	}
	if _, err := s.LookupByDigest(ctx, meta.LookupHash); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("deleted token still present, err = %v", err)
	}
	tokens, _ := s.LookupTokensByUser(ctx, "user-1")
	if len(tokens) != 0 {
		t.Errorf("user index kept %d entries after delete", len(tokens))
	}
	if err := s.DeleteToken(ctx, meta.LookupHash); err != nil {
		t.Errorf("second DeleteToken() error = %v", err)
	}
}

func TestBadgerStore_CleanupExpiredTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	live := newMeta(t, "user-1", time.Now().Add(time.Hour).UnixMilli())
	expired := newMeta(t, "user-1", time.Now().Add(-time.Hour).UnixMilli())
	revoked := newMeta(t, "user-2", time.Now().Add(time.Hour).UnixMilli())
	revoked.Revoke("test")

	for _, meta := range []*domain.TokenMetadata{live, expired, revoked} {
		if err := s.StoreTokenMapping(ctx, meta); err != nil {
			t.Fatalf("StoreTokenMapping() error = %v", err)
		}
	}

	removed, err := s.CleanupExpiredTokens(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredTokens() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, err := s.LookupByDigest(ctx, live.LookupHash); err != nil {
		t.Errorf("live token removed by sweep: %v", err)
	}
}
