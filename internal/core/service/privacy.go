package service

import (
	"log/slog"

	"github.com/pqcall/pqcall-go/internal/core/domain"
	"github.com/pqcall/pqcall-go/pkg/cmap"
)

// PrivacyLayer mints anonymous identifiers and owns the ephemeral
// mappings behind them. The mapping from a user id to their anonymous
// id is the only place in the system where the two meet, and it is
// erased when the session that needed it tears down.
type PrivacyLayer struct {
	byUser *cmap.Map[string] // user id -> anonymous id
	byAnon *cmap.Map[string] // anonymous id -> user id
	logger *slog.Logger
}

// NewPrivacyLayer returns an empty privacy layer.
func NewPrivacyLayer(logger *slog.Logger) *PrivacyLayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrivacyLayer{
		byUser: cmap.New[string](),
		byAnon: cmap.New[string](),
		logger: logger.With("component", "privacy_layer"),
	}
}

// MintAnonymousID mints a fresh anonymous identifier with no mapping
// behind it. Callers who never present a token stay fully anonymous.
func (p *PrivacyLayer) MintAnonymousID() (string, error) {
	return domain.NewAnonymousID()
}

// AnonymousFor returns the anonymous identifier for a user, minting
// one on first use. The mapping lives only until ClearMapping.
func (p *PrivacyLayer) AnonymousFor(userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrMissingArgument.WithDetails("user id")
	}
	if anonID, ok := p.byUser.Get(userID); ok {
		return anonID, nil
	}
	anonID, err := domain.NewAnonymousID()
	if err != nil {
		return "", err
	}
	// Another goroutine may have mapped the user first; keep whichever won.
	anonID, _ = p.byUser.GetOrSet(userID, anonID)
	p.byAnon.Set(anonID, userID)
	return anonID, nil
}

// ClearMapping forgets the linkage behind an anonymous identifier.
// Clearing an unmapped identifier is a no-op.
func (p *PrivacyLayer) ClearMapping(anonymousID string) {
	userID, ok := p.byAnon.Pop(anonymousID)
	if !ok {
		return
	}
	p.byUser.Delete(userID)
	p.logger.Debug("cleared anonymous mapping", "anonymous_id", anonymousID)
}

// MappingCount reports how many ephemeral mappings are live.
func (p *PrivacyLayer) MappingCount() int {
	return p.byAnon.Count()
}
