package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pqcall/pqcall-go/internal/core/domain"
)

// SweeperConfig tunes the background cleanup cadence.
type SweeperConfig struct {
	// TokenSweepInterval is how often expired token metadata is purged.
	TokenSweepInterval time.Duration

	// SessionSweepInterval is how often session deadlines are enforced.
	SessionSweepInterval time.Duration

	// ReplaySweepInterval is how often the replay cache is pruned.
	ReplaySweepInterval time.Duration
}

// DefaultSweeperConfig returns the standard sweep cadence.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		TokenSweepInterval:   5 * time.Minute,
		SessionSweepInterval: 10 * time.Second,
		ReplaySweepInterval:  time.Minute,
	}
}

// Sweeper runs the periodic cleanup loops: token metadata purges,
// session deadline enforcement, and replay cache pruning. Deadline
// enforcement goes through the session manager's normal termination
// path, so a timed-out call tears down exactly like a hung-up one.
type Sweeper struct {
	cfg       SweeperConfig
	tokens    *TokenManager
	sessions  *SessionManager
	signaling *SignalingProtocol
	logger    *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSweeper wires a sweeper over the services it cleans up after.
func NewSweeper(cfg SweeperConfig, tokens *TokenManager, sessions *SessionManager, signaling *SignalingProtocol, logger *slog.Logger) (*Sweeper, error) {
	if tokens == nil || sessions == nil || signaling == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("all sweeper collaborators are required")
	}
	if cfg.TokenSweepInterval <= 0 || cfg.SessionSweepInterval <= 0 || cfg.ReplaySweepInterval <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("sweep intervals must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cfg:       cfg,
		tokens:    tokens,
		sessions:  sessions,
		signaling: signaling,
		logger:    logger.With("component", "sweeper"),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start launches the sweep loop. Call Stop to shut it down.
func (s *Sweeper) Start() {
	go s.run()
	s.logger.Info("sweeper started",
		"token_interval", s.cfg.TokenSweepInterval,
		"session_interval", s.cfg.SessionSweepInterval,
	)
}

// Stop shuts the sweep loop down and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	tokenTicker := time.NewTicker(s.cfg.TokenSweepInterval)
	defer tokenTicker.Stop()
	sessionTicker := time.NewTicker(s.cfg.SessionSweepInterval)
	defer sessionTicker.Stop()
	replayTicker := time.NewTicker(s.cfg.ReplaySweepInterval)
	defer replayTicker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-tokenTicker.C:
			if _, err := s.tokens.CleanupExpired(context.Background()); err != nil {
				s.logger.Error("token sweep failed", "error", err)
			}
		case <-sessionTicker.C:
			s.sessions.CleanupExpired(context.Background())
		case <-replayTicker.C:
			s.signaling.PruneReplayCache()
		}
	}
}
