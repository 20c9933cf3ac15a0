package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

// TokenMapper is the privacy boundary between scanned QR payloads and
// anonymous call identities. The resolved user id never leaves
// ResolveCallee; only the callee's anonymous identifier crosses back.
type TokenMapper struct {
	tokens  *TokenManager
	privacy *PrivacyLayer
	logger  *slog.Logger
}

// NewTokenMapper wires a mapper over the token manager and privacy layer.
func NewTokenMapper(tokens *TokenManager, privacy *PrivacyLayer, logger *slog.Logger) (*TokenMapper, error) {
	if tokens == nil || privacy == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("token manager and privacy layer are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenMapper{
		tokens:  tokens,
		privacy: privacy,
		logger:  logger.With("component", "token_mapper"),
	}, nil
}

// ResolveCallee resolves a scanned QR payload to the callee's anonymous
// identifier. Malformed payloads surface as a resolution failure;
// unknown, expired, and revoked tokens surface uniformly as not found.
func (m *TokenMapper) ResolveCallee(ctx context.Context, scannedToken string) (string, error) {
	userID, err := m.tokens.Resolve(ctx, scannedToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenNotFound):
			return "", domain.ErrTokenNotFound
		case errors.Is(err, domain.ErrInvalidFormat),
			errors.Is(err, domain.ErrInvalidChecksum),
			errors.Is(err, domain.ErrUnsupportedVersion):
			return "", domain.ErrTokenResolutionFailed.WithCause(err)
		default:
			return "", err
		}
	}

	anonID, err := m.privacy.AnonymousFor(userID)
	if err != nil {
		return "", err
	}
	m.logger.Debug("resolved callee", "callee", anonID)
	return anonID, nil
}
