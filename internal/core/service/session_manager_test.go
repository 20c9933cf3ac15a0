package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

func newTestSessionManager(t *testing.T, cfg SessionManagerConfig) (*SessionManager, *PrivacyLayer, *EncryptionManager) {
	t.Helper()
	privacy := NewPrivacyLayer(nil)
	keys := NewEncryptionManager(nil)
	sm, err := NewSessionManager(cfg, privacy, keys, nil, nil)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	return sm, privacy, keys
}

func mustAnonID(t *testing.T) string {
	t.Helper()
	id, err := domain.NewAnonymousID()
	if err != nil {
		t.Fatalf("NewAnonymousID() error = %v", err)
	}
	return id
}

func TestSessionManager_CreateSession(t *testing.T) {
	sm, _, keys := newTestSessionManager(t, DefaultSessionManagerConfig())
	a, b := mustAnonID(t), mustAnonID(t)

	session, err := sm.CreateSession(context.Background(), a, b)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.Status != domain.StatusInitiating {
		t.Errorf("Status = %q, want %q", session.Status, domain.StatusInitiating)
	}
	if !domain.IsValidSessionID(session.ID) {
		t.Errorf("session id %q is not well-formed", session.ID)
	}
	if session.KeyFingerprint == "" {
		t.Error("KeyFingerprint is empty")
	}
	if _, ok := keys.Get(session.ID); !ok {
		t.Error("no key material generated for session")
	}
}

func TestSessionManager_CreateSessionValidation(t *testing.T) {
	sm, _, _ := newTestSessionManager(t, DefaultSessionManagerConfig())
	a := mustAnonID(t)

	tests := []struct {
		name string
		a, b string
	}{
		{"empty participant", a, ""},
		{"malformed participant", a, "not-an-id"},
		{"identical participants", a, a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sm.CreateSession(context.Background(), tt.a, tt.b)
			if !errors.Is(err, domain.ErrSessionValidation) {
				t.Errorf("CreateSession() error = %v, want ErrSessionValidation", err)
			}
		})
	}
}

func TestSessionManager_DuplicatePairRejected(t *testing.T) {
	sm, _, _ := newTestSessionManager(t, DefaultSessionManagerConfig())
	a, b := mustAnonID(t), mustAnonID(t)
	ctx := context.Background()

	if _, err := sm.CreateSession(ctx, a, b); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	// Same pair in both orders is a duplicate.
	if _, err := sm.CreateSession(ctx, b, a); !errors.Is(err, domain.ErrDuplicateSession) {
		t.Errorf("CreateSession() error = %v, want ErrDuplicateSession", err)
	}
}

func TestSessionManager_PairFreeAfterTermination(t *testing.T) {
	sm, _, _ := newTestSessionManager(t, DefaultSessionManagerConfig())
	a, b := mustAnonID(t), mustAnonID(t)
	ctx := context.Background()

	first, err := sm.CreateSession(ctx, a, b)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := sm.Terminate(ctx, first.ID, domain.StatusEnded); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if _, err := sm.CreateSession(ctx, a, b); err != nil {
		t.Errorf("CreateSession() after termination error = %v", err)
	}
}

func TestSessionManager_SharedParticipantSurvivesPeerTeardown(t *testing.T) {
	sm, privacy, _ := newTestSessionManager(t, DefaultSessionManagerConfig())
	ctx := context.Background()

	calleeAnon, err := privacy.AnonymousFor("callee-user")
	if err != nil {
		t.Fatalf("AnonymousFor() error = %v", err)
	}

	first, err := sm.CreateSession(ctx, mustAnonID(t), calleeAnon)
	if err != nil {
		t.Fatalf("CreateSession(first) error = %v", err)
	}
	second, err := sm.CreateSession(ctx, mustAnonID(t), calleeAnon)
	if err != nil {
		t.Fatalf("CreateSession(second) error = %v", err)
	}

	if _, err := sm.Terminate(ctx, first.ID, domain.StatusEnded); err != nil {
		t.Fatalf("Terminate(first) error = %v", err)
	}

	// The callee is still on the second call: its index entry and
	// anonymous-id mapping must survive the first call's teardown.
	got, err := sm.GetByParticipant(ctx, calleeAnon)
	if err != nil {
		t.Fatalf("GetByParticipant() after peer teardown error = %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("GetByParticipant() = %s, want %s", got.ID, second.ID)
	}
	again, err := privacy.AnonymousFor("callee-user")
	if err != nil {
		t.Fatalf("AnonymousFor() error = %v", err)
	}
	if again != calleeAnon {
		t.Errorf("AnonymousFor() re-minted %s, want stable %s", again, calleeAnon)
	}

	// Only the last live session releases the mapping.
	if _, err := sm.Terminate(ctx, second.ID, domain.StatusEnded); err != nil {
		t.Fatalf("Terminate(second) error = %v", err)
	}
	if _, err := sm.GetByParticipant(ctx, calleeAnon); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("GetByParticipant() after final teardown error = %v, want ErrSessionNotFound", err)
	}
	fresh, err := privacy.AnonymousFor("callee-user")
	if err != nil {
		t.Fatalf("AnonymousFor() error = %v", err)
	}
	if fresh == calleeAnon {
		t.Error("anonymous id survived teardown of the user's last session")
	}
}

func TestSessionManager_StateMachine(t *testing.T) {
	tests := []struct {
		name    string
		path    []domain.CallStatus
		invalid domain.CallStatus
	}{
		{"initiating cannot connect directly", nil, domain.StatusConnected},
		{"ringing cannot restart", []domain.CallStatus{domain.StatusRinging}, domain.StatusInitiating},
		{"connected cannot ring again", []domain.CallStatus{domain.StatusRinging, domain.StatusConnected}, domain.StatusRinging},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, _, _ := newTestSessionManager(t, DefaultSessionManagerConfig())
			ctx := context.Background()
			session, err := sm.CreateSession(ctx, mustAnonID(t), mustAnonID(t))
			if err != nil {
				t.Fatalf("CreateSession() error = %v", err)
			}
			for _, status := range tt.path {
				if _, err := sm.UpdateStatus(ctx, session.ID, status); err != nil {
					t.Fatalf("UpdateStatus(%q) error = %v", status, err)
				}
			}

			ok, err := sm.UpdateStatus(ctx, session.ID, tt.invalid)
			if ok || !errors.Is(err, domain.ErrSessionValidation) {
				t.Errorf("UpdateStatus(%q) = (%v, %v), want rejection", tt.invalid, ok, err)
			}

			got, err := sm.Get(ctx, session.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			want := domain.StatusInitiating
			if len(tt.path) > 0 {
				want = tt.path[len(tt.path)-1]
			}
			if got.Status != want {
				t.Errorf("status after rejected transition = %q, want %q", got.Status, want)
			}
		})
	}
}

func TestSessionManager_UpdateUnknownSession(t *testing.T) {
	sm, _, _ := newTestSessionManager(t, DefaultSessionManagerConfig())

	ok, err := sm.UpdateStatus(context.Background(), "pqcs-00000000000000000000000000", domain.StatusRinging)
	if ok || err != nil {
		t.Errorf("UpdateStatus(unknown) = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestSessionManager_TerminalTeardown(t *testing.T) {
	sm, privacy, keys := newTestSessionManager(t, DefaultSessionManagerConfig())
	ctx := context.Background()

	var hookCalls []string
	sm.AddCleanupHook(func(sessionID string) {
		hookCalls = append(hookCalls, sessionID)
	})

	session, err := sm.CreateSession(ctx, mustAnonID(t), mustAnonID(t))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if _, err := sm.UpdateStatus(ctx, session.ID, domain.StatusRinging); err != nil {
		t.Fatalf("UpdateStatus(ringing) error = %v", err)
	}
	ok, err := sm.UpdateStatus(ctx, session.ID, domain.StatusEnded)
	if !ok || err != nil {
		t.Fatalf("UpdateStatus(ended) = (%v, %v)", ok, err)
	}

	if _, err := sm.Get(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Get() after teardown error = %v, want ErrSessionNotFound", err)
	}
	if _, ok := keys.Get(session.ID); ok {
		t.Error("key material survived teardown")
	}
	if got := privacy.MappingCount(); got != 0 {
		t.Errorf("MappingCount() = %d, want 0", got)
	}
	if len(hookCalls) != 1 || hookCalls[0] != session.ID {
		t.Errorf("cleanup hooks = %v, want [%s]", hookCalls, session.ID)
	}
}

func TestSessionManager_TerminateUnknown(t *testing.T) {
	sm, _, _ := newTestSessionManager(t, DefaultSessionManagerConfig())

	_, err := sm.Terminate(context.Background(), "pqcs-00000000000000000000000000", domain.StatusEnded)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Terminate(unknown) error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionManager_CapacityWithSweep(t *testing.T) {
	cfg := DefaultSessionManagerConfig()
	cfg.MaxActiveSessions = 1
	cfg.RingingTimeout = time.Millisecond
	sm, _, _ := newTestSessionManager(t, cfg)
	ctx := context.Background()

	if _, err := sm.CreateSession(ctx, mustAnonID(t), mustAnonID(t)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	// At capacity with a live session: reject.
	if _, err := sm.CreateSession(ctx, mustAnonID(t), mustAnonID(t)); !errors.Is(err, domain.ErrSessionCreationFailed) {
		t.Fatalf("CreateSession() at capacity error = %v, want ErrSessionCreationFailed", err)
	}

	// Once the first session expires, the opportunistic sweep frees a slot.
	time.Sleep(5 * time.Millisecond)
	if _, err := sm.CreateSession(ctx, mustAnonID(t), mustAnonID(t)); err != nil {
		t.Errorf("CreateSession() after expiry error = %v", err)
	}
}

func TestSessionManager_SweepFailsUnansweredCalls(t *testing.T) {
	cfg := DefaultSessionManagerConfig()
	cfg.RingingTimeout = time.Millisecond
	sm, _, _ := newTestSessionManager(t, cfg)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, mustAnonID(t), mustAnonID(t))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if removed := sm.CleanupExpired(ctx); removed != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", removed)
	}
	if _, err := sm.Get(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expired session still present, err = %v", err)
	}
}

func TestSessionManager_ConnectExtendsDeadline(t *testing.T) {
	cfg := DefaultSessionManagerConfig()
	cfg.RingingTimeout = 10 * time.Millisecond
	cfg.MaxCallDuration = time.Hour
	sm, _, _ := newTestSessionManager(t, cfg)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, mustAnonID(t), mustAnonID(t))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := sm.UpdateStatus(ctx, session.ID, domain.StatusRinging); err != nil {
		t.Fatalf("UpdateStatus(ringing) error = %v", err)
	}
	if _, err := sm.UpdateStatus(ctx, session.ID, domain.StatusConnected); err != nil {
		t.Fatalf("UpdateStatus(connected) error = %v", err)
	}

	// Well past the ringing timeout, the connected call survives sweeps.
	time.Sleep(20 * time.Millisecond)
	if removed := sm.CleanupExpired(ctx); removed != 0 {
		t.Errorf("CleanupExpired() = %d, want 0", removed)
	}
	got, err := sm.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.StatusConnected {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusConnected)
	}
}

func TestSessionManager_Stats(t *testing.T) {
	sm, _, _ := newTestSessionManager(t, DefaultSessionManagerConfig())
	ctx := context.Background()

	first, err := sm.CreateSession(ctx, mustAnonID(t), mustAnonID(t))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := sm.CreateSession(ctx, mustAnonID(t), mustAnonID(t)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := sm.UpdateStatus(ctx, first.ID, domain.StatusRinging); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	stats := sm.Stats()
	if stats.ActiveSessions != 2 {
		t.Errorf("ActiveSessions = %d, want 2", stats.ActiveSessions)
	}
	if stats.ByStatus[domain.StatusRinging] != 1 || stats.ByStatus[domain.StatusInitiating] != 1 {
		t.Errorf("ByStatus = %v, want one ringing and one initiating", stats.ByStatus)
	}
}
