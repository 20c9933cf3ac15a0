package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/pqcall/pqcall-go/internal/core/domain"
	"github.com/pqcall/pqcall-go/internal/telemetry/metric"
)

// InitiateCallRequest asks the router to start a call. ScannedToken is
// the raw QR payload from the callee's code; CallerAnonymousID is
// optional and minted fresh when absent.
type InitiateCallRequest struct {
	ScannedToken      string `json:"scanned_token"`
	CallerAnonymousID string `json:"caller_anonymous_id,omitempty"`
}

// InitiateCallResponse carries everything the caller needs to proceed:
// the session, both anonymous identities, and the transport security
// parameters. No user identifier appears anywhere in it.
type InitiateCallResponse struct {
	SessionID         string                   `json:"session_id"`
	CallerAnonymousID string                   `json:"caller_anonymous_id"`
	CalleeAnonymousID string                   `json:"callee_anonymous_id"`
	Status            domain.CallStatus        `json:"status"`
	ExpiresAt         int64                    `json:"expires_at"`
	DTLS              domain.DTLSConfiguration `json:"dtls"`
	SRTP              domain.SRTPConfiguration `json:"srtp"`
}

// RoutingStats aggregates counts-only routing and session statistics.
type RoutingStats struct {
	SessionStats
	CallsInitiated    int64 `json:"calls_initiated"`
	CallsRejected     int64 `json:"calls_rejected"`
	OpenChannels      int   `json:"open_channels"`
	AnonymousMappings int   `json:"anonymous_mappings"`
}

// CallRouter orchestrates call setup end to end: token resolution
// through the privacy boundary, session creation, key generation, and
// signaling channel establishment.
type CallRouter struct {
	mapper    *TokenMapper
	privacy   *PrivacyLayer
	sessions  *SessionManager
	signaling *SignalingProtocol
	keys      *EncryptionManager
	logger    *slog.Logger
	metrics   *metric.Registry

	initiated atomic.Int64
	rejected  atomic.Int64
}

// NewCallRouter wires the router over its collaborators and registers
// the signaling teardown hook on the session manager.
func NewCallRouter(mapper *TokenMapper, privacy *PrivacyLayer, sessions *SessionManager, signaling *SignalingProtocol, keys *EncryptionManager, logger *slog.Logger, metrics *metric.Registry) (*CallRouter, error) {
	if mapper == nil || privacy == nil || sessions == nil || signaling == nil || keys == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("all router collaborators are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	sessions.AddCleanupHook(signaling.CloseChannel)
	return &CallRouter{
		mapper:    mapper,
		privacy:   privacy,
		sessions:  sessions,
		signaling: signaling,
		keys:      keys,
		logger:    logger.With("component", "call_router"),
		metrics:   metrics,
	}, nil
}

// InitiateCall resolves the scanned token to the callee's anonymous
// identity and stands up a session with fresh keys and an open
// signaling channel. Identity-linking requests (self-calls) and pairs
// with a live session are rejected outright.
func (r *CallRouter) InitiateCall(ctx context.Context, req InitiateCallRequest) (*InitiateCallResponse, error) {
	if req.ScannedToken == "" {
		r.reject()
		return nil, domain.ErrMissingArgument.WithDetails("scanned token")
	}

	calleeAnon, err := r.mapper.ResolveCallee(ctx, req.ScannedToken)
	if err != nil {
		r.reject()
		return nil, err
	}

	callerAnon := req.CallerAnonymousID
	if callerAnon == "" {
		callerAnon, err = r.privacy.MintAnonymousID()
		if err != nil {
			r.reject()
			return nil, domain.ErrRoutingFailed.WithCause(err)
		}
	} else if !domain.IsValidAnonymousID(callerAnon) {
		r.reject()
		return nil, domain.ErrInvalidArgument.WithDetails("malformed caller anonymous id")
	}

	if callerAnon == calleeAnon {
		r.reject()
		r.logger.Warn("self-call rejected", "participant", callerAnon)
		return nil, domain.ErrPrivacyViolation.WithDetails("caller and callee resolve to the same identity")
	}

	session, err := r.sessions.CreateSession(ctx, callerAnon, calleeAnon)
	if err != nil {
		r.reject()
		switch {
		case errors.Is(err, domain.ErrDuplicateSession),
			errors.Is(err, domain.ErrSessionValidation):
			return nil, err
		default:
			return nil, domain.ErrRoutingFailed.WithCause(err)
		}
	}

	if err := r.signaling.OpenChannel(session.ID); err != nil {
		_, _ = r.sessions.Terminate(ctx, session.ID, domain.StatusFailed)
		r.reject()
		return nil, domain.ErrRoutingFailed.WithCause(err)
	}

	sk, ok := r.keys.Get(session.ID)
	if !ok {
		_, _ = r.sessions.Terminate(ctx, session.ID, domain.StatusFailed)
		r.reject()
		return nil, domain.ErrRoutingFailed.WithDetails("session key material missing")
	}

	r.initiated.Add(1)
	r.metrics.CallInitiated()
	r.logger.Info("call initiated",
		"session_id", session.ID,
		"status", session.Status,
	)
	return &InitiateCallResponse{
		SessionID:         session.ID,
		CallerAnonymousID: callerAnon,
		CalleeAnonymousID: calleeAnon,
		Status:            session.Status,
		ExpiresAt:         session.ExpiresAt,
		DTLS:              sk.DTLS,
		SRTP:              sk.SRTP,
	}, nil
}

func (r *CallRouter) reject() {
	r.rejected.Add(1)
	r.metrics.CallRejected()
}

// UpdateCallStatus moves a session through the call state machine.
func (r *CallRouter) UpdateCallStatus(ctx context.Context, sessionID string, status domain.CallStatus) (bool, error) {
	return r.sessions.UpdateStatus(ctx, sessionID, status)
}

// TerminateCall ends a call and returns the final session snapshot.
// Teardown clears the privacy mappings, wipes the keys, and closes the
// signaling channel through the session manager's single cleanup path.
func (r *CallRouter) TerminateCall(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	return r.sessions.Terminate(ctx, sessionID, domain.StatusEnded)
}

// GetCallSession returns a snapshot of a live session.
func (r *CallRouter) GetCallSession(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	return r.sessions.Get(ctx, sessionID)
}

// Stats returns counts-only routing statistics.
func (r *CallRouter) Stats() RoutingStats {
	return RoutingStats{
		SessionStats:      r.sessions.Stats(),
		CallsInitiated:    r.initiated.Load(),
		CallsRejected:     r.rejected.Load(),
		OpenChannels:      r.signaling.ChannelCount(),
		AnonymousMappings: r.privacy.MappingCount(),
	}
}

// Snapshot feeds the live-state metrics collector.
func (r *CallRouter) Snapshot() metric.Snapshot {
	return metric.Snapshot{
		ActiveSessions:    r.sessions.Stats().ActiveSessions,
		OpenChannels:      r.signaling.ChannelCount(),
		AnonymousMappings: r.privacy.MappingCount(),
		ReplayCacheSize:   r.signaling.ReplayCacheSize(),
	}
}
