// Package storage provides Badger-backed durable token storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

// Key layout. The token record and its user-index entry live in the
// same transaction, so the two can never disagree.
const (
	tokenKeyPrefix = "tok:"
	userKeyPrefix  = "usr:"
)

// BadgerConfig holds Badger store configuration.
type BadgerConfig struct {
	// Dir is the on-disk database directory.
	Dir string

	// InMemory runs Badger without disk persistence; tests use this.
	InMemory bool

	// GCInterval is how often value-log garbage collection runs.
	GCInterval time.Duration

	// GCDiscardRatio is the reclaim threshold passed to Badger's GC.
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns the standard store configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:            dir,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// BadgerStore is the durable token storage. Writes are committed
// before StoreTokenMapping returns.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStore opens (or creates) the database and starts the GC loop.
func NewBadgerStore(cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger.With("component", "badger_store"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()
	return s, nil
}

func tokenKey(digest string) []byte {
	return []byte(tokenKeyPrefix + digest)
}

func userKey(userID, digest string) []byte {
	return []byte(userKeyPrefix + userID + ":" + digest)
}

// StoreTokenMapping durably persists metadata for a new token.
func (s *BadgerStore) StoreTokenMapping(ctx context.Context, meta *domain.TokenMetadata) error {
	if meta == nil || meta.LookupHash == "" || meta.UserID == "" {
		return domain.ErrInvalidArgument.WithDetails("metadata with lookup hash and user id is required")
	}
	value, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("badger: marshal metadata: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(tokenKey(meta.LookupHash), value); err != nil {
			return err
		}
		return txn.Set(userKey(meta.UserID, meta.LookupHash), nil)
	})
}

// LookupByDigest returns the metadata stored under a lookup digest.
func (s *BadgerStore) LookupByDigest(ctx context.Context, digest string) (*domain.TokenMetadata, error) {
	var meta domain.TokenMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey(digest))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &meta)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("badger: lookup: %w", err)
	}
	return &meta, nil
}

// LookupTokensByUser returns all metadata a user holds, any state.
func (s *BadgerStore) LookupTokensByUser(ctx context.Context, userID string) ([]*domain.TokenMetadata, error) {
	prefix := []byte(userKeyPrefix + userID + ":")
	var result []*domain.TokenMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			digest := string(bytes.TrimPrefix(it.Item().Key(), prefix))
			item, err := txn.Get(tokenKey(digest))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			var meta domain.TokenMetadata
			if err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &meta)
			}); err != nil {
				return err
			}
			result = append(result, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: lookup by user: %w", err)
	}
	return result, nil
}

// UpdateTokenMapping persists changed metadata for an existing token.
func (s *BadgerStore) UpdateTokenMapping(ctx context.Context, meta *domain.TokenMetadata) error {
	if meta == nil || meta.LookupHash == "" {
		return domain.ErrInvalidArgument.WithDetails("metadata with lookup hash is required")
	}
	value, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("badger: marshal metadata: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tokenKey(meta.LookupHash)); err != nil {
			return err
		}
		return txn.Set(tokenKey(meta.LookupHash), value)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrTokenNotFound
	}
	return err
}

// DeleteToken removes a token record and its user-index entry.
func (s *BadgerStore) DeleteToken(ctx context.Context, digest string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey(digest))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		var meta domain.TokenMetadata
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &meta)
		}); err != nil {
			return err
		}
		if err := txn.Delete(tokenKey(digest)); err != nil {
			return err
		}
		return txn.Delete(userKey(meta.UserID, digest))
	})
}

// CleanupExpiredTokens deletes all expired and revoked metadata and
// returns the number of entries removed.
func (s *BadgerStore) CleanupExpiredTokens(ctx context.Context) (int, error) {
	prefix := []byte(tokenKeyPrefix)
	var stale []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var meta domain.TokenMetadata
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &meta)
			}); err != nil {
				return err
			}
			if meta.Revoked || meta.IsExpired() {
				stale = append(stale, meta.LookupHash)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger: sweep scan: %w", err)
	}

	removed := 0
	for _, digest := range stale {
		if err := s.DeleteToken(ctx, digest); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// gcLoop periodically runs Badger's value-log garbage collection.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)
	if s.cfg.GCInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio); err != nil {
					break
				}
			}
		}
	}
}

// Close stops the GC loop and closes the database.
func (s *BadgerStore) Close() error {
	close(s.stopCh)
	<-s.doneCh
	return s.db.Close()
}
