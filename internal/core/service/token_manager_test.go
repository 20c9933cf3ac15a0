package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pqcall/pqcall-go/internal/core/domain"
	"github.com/pqcall/pqcall-go/internal/storage/memory"
)

func newTestTokenManager(t *testing.T, cfg TokenManagerConfig) (*TokenManager, *memory.Store) {
	t.Helper()
	store := memory.New()
	tm, err := NewTokenManager(cfg, store, nil, nil)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return tm, store
}

func TestTokenManager_GenerateAndResolve(t *testing.T) {
	tm, _ := newTestTokenManager(t, DefaultTokenManagerConfig())
	ctx := context.Background()

	tok, meta, err := tm.Generate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if meta.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", meta.UserID, "user-1")
	}
	if meta.ExpiresAt <= meta.CreatedAt {
		t.Errorf("ExpiresAt %d not after CreatedAt %d", meta.ExpiresAt, meta.CreatedAt)
	}

	userID, err := tm.Resolve(ctx, tok.FormatQR())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Resolve() = %q, want %q", userID, "user-1")
	}
}

func TestTokenManager_ResolveUnknownToken(t *testing.T) {
	tm, _ := newTestTokenManager(t, DefaultTokenManagerConfig())

	other, err := domain.NewSecureToken()
	if err != nil {
		t.Fatalf("NewSecureToken() error = %v", err)
	}
	_, err = tm.Resolve(context.Background(), other.FormatQR())
	if !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("Resolve() error = %v, want ErrTokenNotFound", err)
	}
}

func TestTokenManager_ResolveMalformed(t *testing.T) {
	tm, _ := newTestTokenManager(t, DefaultTokenManagerConfig())

	_, err := tm.Resolve(context.Background(), "not-a-token")
	if !errors.Is(err, domain.ErrInvalidFormat) {
		t.Errorf("Resolve() error = %v, want ErrInvalidFormat", err)
	}
}

func TestTokenManager_ResolveExpired(t *testing.T) {
	cfg := DefaultTokenManagerConfig()
	cfg.TokenTTL = time.Millisecond
	tm, _ := newTestTokenManager(t, cfg)
	ctx := context.Background()

	tok, _, err := tm.Generate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := tm.Resolve(ctx, tok.FormatQR()); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("Resolve() error = %v, want ErrTokenNotFound", err)
	}
}

func TestTokenManager_PerUserCapEvictsOldest(t *testing.T) {
	cfg := DefaultTokenManagerConfig()
	cfg.MaxActivePerUser = 2
	tm, store := newTestTokenManager(t, cfg)
	ctx := context.Background()

	first, _, err := tm.Generate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// CreatedAt has millisecond resolution; make the first strictly oldest.
	time.Sleep(2 * time.Millisecond)
	if _, _, err := tm.Generate(ctx, "user-1"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, _, err := tm.Generate(ctx, "user-1"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if got := store.Count(); got != 2 {
		t.Errorf("store.Count() = %d, want 2", got)
	}
	if _, err := tm.Resolve(ctx, first.FormatQR()); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("oldest token still resolves, want ErrTokenNotFound, got %v", err)
	}
}

func TestTokenManager_LogsNeverCarryRawUserID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := DefaultTokenManagerConfig()
	cfg.MaxActivePerUser = 1
	tm, err := NewTokenManager(cfg, memory.New(), log, nil)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	ctx := context.Background()

	if _, _, err := tm.Generate(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// Second issue evicts at the cap, then an explicit revoke.
	tok, _, err := tm.Generate(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := tm.Revoke(ctx, tok.FormatQR(), "device lost"); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := tm.RevokeAllUserTokens(ctx, "alice@example.com", "account closed"); err != nil {
		t.Fatalf("RevokeAllUserTokens() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "alice") {
		t.Errorf("log output leaked raw user id:\n%s", out)
	}
	if !strings.Contains(out, domain.MaskUserID("alice@example.com")) {
		t.Errorf("log output missing masked user reference:\n%s", out)
	}
}

func TestTokenManager_RevokeIsIdempotent(t *testing.T) {
	tm, _ := newTestTokenManager(t, DefaultTokenManagerConfig())
	ctx := context.Background()

	tok, _, err := tm.Generate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	changed, err := tm.Revoke(ctx, tok.FormatQR(), "device lost")
	if err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if !changed {
		t.Error("first Revoke() = false, want true")
	}

	changed, err = tm.Revoke(ctx, tok.FormatQR(), "device lost")
	if err != nil {
		t.Fatalf("second Revoke() error = %v", err)
	}
	if changed {
		t.Error("second Revoke() = true, want false")
	}

	if _, err := tm.Resolve(ctx, tok.FormatQR()); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("revoked token resolves, want ErrTokenNotFound, got %v", err)
	}
}

func TestTokenManager_RevokeConcurrentWithGenerate(t *testing.T) {
	cfg := DefaultTokenManagerConfig()
	cfg.MaxActivePerUser = 2
	tm, store := newTestTokenManager(t, cfg)
	ctx := context.Background()

	const rounds = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, _, err := tm.Generate(ctx, "user-1"); err != nil {
				t.Errorf("Generate() error = %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			tok, _, err := tm.Generate(ctx, "user-1")
			if err != nil {
				t.Errorf("Generate() error = %v", err)
				return
			}
			// The sibling goroutine may evict this token first.
			if _, err := tm.Revoke(ctx, tok.FormatQR(), "rotation"); err != nil && !errors.Is(err, domain.ErrTokenNotFound) {
				t.Errorf("Revoke() error = %v", err)
				return
			}
		}
	}()
	wg.Wait()

	existing, err := store.LookupTokensByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("LookupTokensByUser() error = %v", err)
	}
	active := 0
	for _, meta := range existing {
		if meta.IsActive() {
			active++
		}
	}
	if active > cfg.MaxActivePerUser {
		t.Errorf("active tokens = %d, want at most %d", active, cfg.MaxActivePerUser)
	}
}

func TestTokenManager_RevokeAfterDeletion(t *testing.T) {
	tm, store := newTestTokenManager(t, DefaultTokenManagerConfig())
	ctx := context.Background()

	tok, meta, err := tm.Generate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err := store.DeleteToken(ctx, meta.LookupHash); err != nil {
		t.Fatalf("DeleteToken() error = %v", err)
	}

	if _, err := tm.Revoke(ctx, tok.FormatQR(), "device lost"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("Revoke() error = %v, want ErrTokenNotFound", err)
	}
}

func TestTokenManager_RevokeAllUserTokens(t *testing.T) {
	tm, _ := newTestTokenManager(t, DefaultTokenManagerConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := tm.Generate(ctx, "user-1"); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	}
	otherTok, _, err := tm.Generate(ctx, "user-2")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	revoked, err := tm.RevokeAllUserTokens(ctx, "user-1", "account closed")
	if err != nil {
		t.Fatalf("RevokeAllUserTokens() error = %v", err)
	}
	if revoked != 3 {
		t.Errorf("revoked = %d, want 3", revoked)
	}

	// Second pass flips nothing.
	revoked, err = tm.RevokeAllUserTokens(ctx, "user-1", "account closed")
	if err != nil {
		t.Fatalf("RevokeAllUserTokens() error = %v", err)
	}
	if revoked != 0 {
		t.Errorf("second revoked = %d, want 0", revoked)
	}

	// Other users are untouched.
	if _, err := tm.Resolve(ctx, otherTok.FormatQR()); err != nil {
		t.Errorf("user-2 token no longer resolves: %v", err)
	}
}

func TestTokenManager_CleanupExpired(t *testing.T) {
	cfg := DefaultTokenManagerConfig()
	cfg.TokenTTL = time.Millisecond
	tm, store := newTestTokenManager(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := tm.Generate(ctx, "user-1"); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	}
	time.Sleep(5 * time.Millisecond)

	removed, err := tm.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if got := store.Count(); got != 0 {
		t.Errorf("store.Count() = %d, want 0", got)
	}
}
