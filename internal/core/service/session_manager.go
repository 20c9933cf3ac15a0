package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pqcall/pqcall-go/internal/core/domain"
	"github.com/pqcall/pqcall-go/internal/telemetry/metric"
)

// SessionManagerConfig tunes the call-session lifecycle.
type SessionManagerConfig struct {
	// MaxActiveSessions caps concurrent live sessions.
	MaxActiveSessions int

	// RingingTimeout bounds how long a session may stay unanswered.
	RingingTimeout time.Duration

	// MaxCallDuration bounds a connected call.
	MaxCallDuration time.Duration
}

// DefaultSessionManagerConfig returns the standard lifecycle policy.
func DefaultSessionManagerConfig() SessionManagerConfig {
	return SessionManagerConfig{
		MaxActiveSessions: 10_000,
		RingingTimeout:    60 * time.Second,
		MaxCallDuration:   4 * time.Hour,
	}
}

// SessionStats is a counts-only view of session state. No identifiers.
type SessionStats struct {
	ActiveSessions int                       `json:"active_sessions"`
	ByStatus       map[domain.CallStatus]int `json:"by_status"`
	PairIndexSize  int                       `json:"pair_index_size"`
}

// SessionManager owns the call-session state machine. All mutation goes
// through a single mutex; sessions, the participant index, and the pair
// index never disagree.
type SessionManager struct {
	cfg     SessionManagerConfig
	privacy *PrivacyLayer
	keys    *EncryptionManager
	logger  *slog.Logger
	metrics *metric.Registry

	mu            sync.Mutex
	sessions      map[string]*domain.CallSession
	byParticipant map[string]map[string]struct{} // anonymous id -> live session ids
	byPair        map[string]string              // pair key -> session id
	cleanupHooks  []func(sessionID string)
}

// NewSessionManager wires a session manager over the privacy layer and
// encryption manager that share the session lifecycle.
func NewSessionManager(cfg SessionManagerConfig, privacy *PrivacyLayer, keys *EncryptionManager, logger *slog.Logger, metrics *metric.Registry) (*SessionManager, error) {
	if privacy == nil || keys == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("privacy layer and encryption manager are required")
	}
	if cfg.MaxActiveSessions <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("max active sessions must be positive")
	}
	if cfg.RingingTimeout <= 0 || cfg.MaxCallDuration <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("session timeouts must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		cfg:           cfg,
		privacy:       privacy,
		keys:          keys,
		logger:        logger.With("component", "session_manager"),
		metrics:       metrics,
		sessions:      make(map[string]*domain.CallSession),
		byParticipant: make(map[string]map[string]struct{}),
		byPair:        make(map[string]string),
	}, nil
}

// AddCleanupHook registers fn to run on every session teardown, after
// the session has left all indexes. Hooks must not call back into the
// manager.
func (sm *SessionManager) AddCleanupHook(fn func(sessionID string)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cleanupHooks = append(sm.cleanupHooks, fn)
}

// CreateSession creates a session between two anonymous participants,
// mints its key material, and indexes it. A live session for the same
// unordered pair rejects the create as a duplicate.
func (sm *SessionManager) CreateSession(ctx context.Context, participantA, participantB string) (*domain.CallSession, error) {
	if !domain.IsValidAnonymousID(participantA) || !domain.IsValidAnonymousID(participantB) {
		return nil, domain.ErrSessionValidation.WithDetails("participants must be well-formed anonymous ids")
	}
	if participantA == participantB {
		return nil, domain.ErrSessionValidation.WithDetails("participants must be distinct")
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	pairKey := domain.PairKey(participantA, participantB)
	if existingID, ok := sm.byPair[pairKey]; ok {
		if existing, live := sm.sessions[existingID]; live && !existing.Status.IsTerminal() {
			return nil, domain.ErrDuplicateSession.WithDetails("pair already has a live session")
		}
	}

	if len(sm.sessions) >= sm.cfg.MaxActiveSessions {
		// One opportunistic sweep before giving up.
		sm.sweepExpiredLocked()
		if len(sm.sessions) >= sm.cfg.MaxActiveSessions {
			return nil, domain.ErrSessionCreationFailed.WithDetails("session capacity reached")
		}
	}

	id, err := domain.NewSessionID()
	if err != nil {
		return nil, domain.ErrSessionCreationFailed.WithCause(err)
	}
	sk, err := sm.keys.Generate(id)
	if err != nil {
		return nil, domain.ErrSessionCreationFailed.WithCause(err)
	}

	now := time.Now()
	session := &domain.CallSession{
		ID:             id,
		ParticipantA:   participantA,
		ParticipantB:   participantB,
		Status:         domain.StatusInitiating,
		CreatedAt:      now.UnixMilli(),
		ExpiresAt:      now.Add(sm.cfg.RingingTimeout).UnixMilli(),
		KeyFingerprint: sk.Fingerprint,
	}
	if err := session.Validate(); err != nil {
		sm.keys.Wipe(id)
		return nil, err
	}

	sm.sessions[id] = session
	sm.indexParticipantLocked(participantA, id)
	sm.indexParticipantLocked(participantB, id)
	sm.byPair[pairKey] = id

	sm.logger.Info("session created",
		"session_id", id,
		"status", session.Status,
		"expires_at", session.ExpiresAt,
	)
	return session.Clone(), nil
}

// UpdateStatus moves a session through the state machine. It reports
// false without error for an unknown session. Transitions out of a
// terminal state and transitions the state machine forbids are
// rejected with the state unchanged. A transition into a terminal
// state tears the session down through the same path a sweep uses.
func (sm *SessionManager) UpdateStatus(ctx context.Context, sessionID string, next domain.CallStatus) (bool, error) {
	if !next.IsValid() {
		return false, domain.ErrInvalidArgument.WithDetails("unknown call status")
	}

	sm.mu.Lock()
	session, ok := sm.sessions[sessionID]
	if !ok {
		sm.mu.Unlock()
		return false, nil
	}
	if session.Status.IsTerminal() {
		sm.mu.Unlock()
		return false, domain.ErrSessionTerminal
	}
	if !session.Status.CanTransitionTo(next) {
		current := session.Status
		sm.mu.Unlock()
		return false, domain.ErrSessionValidation.WithDetails(
			"illegal transition " + string(current) + " -> " + string(next))
	}

	session.Status = next
	if next == domain.StatusConnected {
		session.ExpiresAt = time.Now().Add(sm.cfg.MaxCallDuration).UnixMilli()
	}

	if next.IsTerminal() {
		sm.teardownLocked(session)
	}
	sm.mu.Unlock()

	sm.logger.Info("session status updated", "session_id", sessionID, "status", next)
	return true, nil
}

// Terminate ends a session from any live state and tears it down.
// ErrSessionNotFound covers both unknown and already-terminated ids.
func (sm *SessionManager) Terminate(ctx context.Context, sessionID string, final domain.CallStatus) (*domain.CallSession, error) {
	if !final.IsTerminal() {
		return nil, domain.ErrInvalidArgument.WithDetails("final status must be terminal")
	}

	sm.mu.Lock()
	session, ok := sm.sessions[sessionID]
	if !ok {
		sm.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}

	session.Status = final
	sm.teardownLocked(session)
	snapshot := session.Clone()
	sm.mu.Unlock()

	sm.logger.Info("session terminated", "session_id", sessionID, "status", final)
	return snapshot, nil
}

// indexParticipantLocked records a live session under an anonymous id.
// A participant may be in several live sessions at once; the callee of
// two concurrent callers is the normal case.
func (sm *SessionManager) indexParticipantLocked(anonymousID, sessionID string) {
	ids, ok := sm.byParticipant[anonymousID]
	if !ok {
		ids = make(map[string]struct{})
		sm.byParticipant[anonymousID] = ids
	}
	ids[sessionID] = struct{}{}
}

// unindexParticipantLocked removes a session from a participant's index
// entry and reports whether that was the participant's last live
// session.
func (sm *SessionManager) unindexParticipantLocked(anonymousID, sessionID string) bool {
	ids, ok := sm.byParticipant[anonymousID]
	if !ok {
		return true
	}
	delete(ids, sessionID)
	if len(ids) > 0 {
		return false
	}
	delete(sm.byParticipant, anonymousID)
	return true
}

// teardownLocked finalizes a terminal session: stamps endedAt, removes
// it from every index, wipes the key material, and runs the cleanup
// hooks. A participant's anonymous mapping is erased only when this was
// its last live session; a callee still mid-call with another caller
// keeps its identity. Callers hold sm.mu; hooks must not re-enter the
// manager.
func (sm *SessionManager) teardownLocked(session *domain.CallSession) {
	session.EndedAt = time.Now().UnixMilli()

	delete(sm.sessions, session.ID)
	delete(sm.byPair, domain.PairKey(session.ParticipantA, session.ParticipantB))

	if sm.unindexParticipantLocked(session.ParticipantA, session.ID) {
		sm.privacy.ClearMapping(session.ParticipantA)
	}
	if sm.unindexParticipantLocked(session.ParticipantB, session.ID) {
		sm.privacy.ClearMapping(session.ParticipantB)
	}
	sm.keys.Wipe(session.ID)

	sm.metrics.SessionEnded()
	for _, fn := range sm.cleanupHooks {
		fn(session.ID)
	}
}

// Get returns a snapshot of a live session.
func (sm *SessionManager) Get(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	session, ok := sm.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// GetByParticipant returns the most recently created live session an
// anonymous id is part of.
func (sm *SessionManager) GetByParticipant(ctx context.Context, anonymousID string) (*domain.CallSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var latest *domain.CallSession
	for id := range sm.byParticipant[anonymousID] {
		if session := sm.sessions[id]; latest == nil || session.CreatedAt > latest.CreatedAt {
			latest = session
		}
	}
	if latest == nil {
		return nil, domain.ErrSessionNotFound
	}
	return latest.Clone(), nil
}

// CleanupExpired tears down every session past its deadline and returns
// how many were removed. Ringing deadlines fail the call; a connected
// call that hits the duration ceiling ends normally.
func (sm *SessionManager) CleanupExpired(ctx context.Context) int {
	sm.mu.Lock()
	removed := sm.sweepExpiredLocked()
	sm.mu.Unlock()

	if removed > 0 {
		sm.logger.Info("session sweep complete", "removed", removed)
	}
	return removed
}

// sweepExpiredLocked is CleanupExpired's body; callers hold sm.mu.
func (sm *SessionManager) sweepExpiredLocked() int {
	removed := 0
	for _, session := range sm.sessions {
		if !session.IsExpired() {
			continue
		}
		if session.Status == domain.StatusConnected {
			session.Status = domain.StatusEnded
		} else {
			session.Status = domain.StatusFailed
		}
		sm.teardownLocked(session)
		removed++
	}
	return removed
}

// Stats returns counts-only session statistics.
func (sm *SessionManager) Stats() SessionStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stats := SessionStats{
		ActiveSessions: len(sm.sessions),
		ByStatus:       make(map[domain.CallStatus]int),
		PairIndexSize:  len(sm.byPair),
	}
	for _, session := range sm.sessions {
		stats.ByStatus[session.Status]++
	}
	return stats
}
