package service

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pqcall/pqcall-go/internal/core/domain"
	"github.com/pqcall/pqcall-go/internal/telemetry/metric"
	"github.com/pqcall/pqcall-go/pkg/cmap"
	"github.com/pqcall/pqcall-go/pkg/crypto/aead"
)

// SignalingConfig tunes the secure signaling channel.
type SignalingConfig struct {
	// FreshnessWindow bounds how far a message timestamp may drift from
	// local time, in either direction.
	FreshnessWindow time.Duration

	// ReplayCacheSize caps the processed-message-id cache.
	ReplayCacheSize int

	// ReplayTTL is how long a message id stays in the replay cache.
	ReplayTTL time.Duration
}

// DefaultSignalingConfig returns the standard signaling policy.
func DefaultSignalingConfig() SignalingConfig {
	return SignalingConfig{
		FreshnessWindow: 5 * time.Minute,
		ReplayCacheSize: 100_000,
		ReplayTTL:       10 * time.Minute,
	}
}

// channelState is the per-session signaling state. sendSeq counts
// messages this side has created; recvSeq counts messages accepted by
// validation. Both advance strictly by one.
type channelState struct {
	mu      sync.Mutex
	sendSeq uint64
	recvSeq uint64
	cipher  aead.Cipher
}

// SignalingProtocol frames, protects, and validates signaling messages.
// Every message carries a unique id, a freshness timestamp, and an
// integrity digest bound to the session's sequence position; payloads
// are AEAD-encrypted once key material exists.
type SignalingProtocol struct {
	cfg      SignalingConfig
	keys     *EncryptionManager
	channels *cmap.Map[*channelState]
	seen     *MessageCache
	logger   *slog.Logger
	metrics  *metric.Registry
}

// NewSignalingProtocol wires a protocol over the encryption manager.
func NewSignalingProtocol(cfg SignalingConfig, keys *EncryptionManager, logger *slog.Logger, metrics *metric.Registry) (*SignalingProtocol, error) {
	if keys == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("encryption manager is required")
	}
	if cfg.FreshnessWindow <= 0 || cfg.ReplayTTL <= 0 || cfg.ReplayCacheSize <= 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("signaling windows and cache size must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalingProtocol{
		cfg:      cfg,
		keys:     keys,
		channels: cmap.New[*channelState](),
		seen:     NewMessageCache(cfg.ReplayCacheSize, cfg.ReplayTTL),
		logger:   logger.With("component", "signaling"),
		metrics:  metrics,
	}, nil
}

// OpenChannel establishes the signaling channel for a session, deriving
// its channel key from the session's key material. Opening an already
// open channel is a no-op.
func (p *SignalingProtocol) OpenChannel(sessionID string) error {
	if p.channels.Has(sessionID) {
		return nil
	}
	key, err := p.keys.SignalingKey(sessionID)
	if err != nil {
		return err
	}
	cipher, err := aead.New(key)
	if err != nil {
		return domain.ErrInternalServer.WithCause(err)
	}
	p.channels.SetIfAbsent(sessionID, &channelState{cipher: cipher})
	p.logger.Debug("signaling channel opened", "session_id", sessionID, "cipher", cipher.Type())
	return nil
}

// CloseChannel tears down a session's signaling channel. Idempotent.
func (p *SignalingProtocol) CloseChannel(sessionID string) {
	if _, ok := p.channels.Pop(sessionID); ok {
		p.logger.Debug("signaling channel closed", "session_id", sessionID)
	}
}

// ChannelCount reports the number of open channels.
func (p *SignalingProtocol) ChannelCount() int {
	return p.channels.Count()
}

// ReplayCacheSize reports how many message ids the replay cache holds.
func (p *SignalingProtocol) ReplayCacheSize() int {
	return p.seen.Size()
}

// channelAAD binds a ciphertext to its session, type, and sequence
// position, so moving it between any of those fails decryption.
func channelAAD(sessionID string, msgType domain.MessageType, sequence uint64) []byte {
	return fmt.Appendf(nil, "%s|%s|%d", sessionID, msgType, sequence)
}

// CreateMessage builds the next outbound message on a session's
// channel: advances the send sequence, encrypts the payload when
// requested, and stamps id, timestamp, and integrity digest. The
// message id is recorded as processed before returning, so a reflected
// copy of our own message can never validate here.
func (p *SignalingProtocol) CreateMessage(sessionID string, msgType domain.MessageType, payload []byte, encrypt bool) (*domain.SignalingMessage, error) {
	if !msgType.IsValid() {
		return nil, domain.ErrInvalidArgument.WithDetails("unknown message type")
	}
	ch, ok := p.channels.Get(sessionID)
	if !ok {
		return nil, domain.ErrChannelNotFound
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	seq := ch.sendSeq + 1
	wirePayload := payload
	encrypted := false
	if encrypt {
		ct, err := ch.cipher.Encrypt(payload, channelAAD(sessionID, msgType, seq))
		if err != nil {
			return nil, domain.ErrInternalServer.WithCause(err)
		}
		wirePayload = ct
		encrypted = true
	}

	msg := &domain.SignalingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Payload:   wirePayload,
		Timestamp: time.Now().UnixMilli(),
		MessageID: uuid.NewString(),
		Encrypted: encrypted,
	}
	msg.Integrity = domain.MessageIntegrity(msg.Type, msg.SessionID, msg.Payload, msg.Timestamp, seq)

	ch.sendSeq = seq
	p.seen.Add(msg.MessageID)
	p.metrics.MessageCreated()
	return msg, nil
}

// ValidateMessage checks an inbound message and returns its plaintext
// payload. Checks run in a fixed order: channel, freshness, replay,
// integrity at the expected sequence, then decryption. Only full
// success advances the expected sequence and records the message id;
// a failed message leaves the channel state untouched so a corrected
// retransmission can still land.
func (p *SignalingProtocol) ValidateMessage(msg *domain.SignalingMessage) ([]byte, error) {
	if msg == nil {
		return nil, domain.ErrMissingArgument.WithDetails("message")
	}
	if !msg.Type.IsValid() {
		p.metrics.MessageRejected("type")
		return nil, domain.ErrInvalidArgument.WithDetails("unknown message type")
	}
	if msg.MessageID == "" {
		p.metrics.MessageRejected("message_id")
		return nil, domain.ErrMissingArgument.WithDetails("message id")
	}
	ch, ok := p.channels.Get(msg.SessionID)
	if !ok {
		p.metrics.MessageRejected("channel")
		return nil, domain.ErrChannelNotFound
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	now := time.Now().UnixMilli()
	drift := now - msg.Timestamp
	if drift < 0 {
		drift = -drift
	}
	if drift > p.cfg.FreshnessWindow.Milliseconds() {
		p.metrics.MessageRejected("stale")
		return nil, domain.ErrMessageStale
	}

	if p.seen.Contains(msg.MessageID) {
		p.metrics.MessageRejected("replay")
		p.logger.Warn("replayed signaling message dropped",
			"session_id", msg.SessionID, "type", msg.Type)
		return nil, domain.ErrMessageReplay
	}

	expected := ch.recvSeq + 1
	want := domain.MessageIntegrity(msg.Type, msg.SessionID, msg.Payload, msg.Timestamp, expected)
	if subtle.ConstantTimeCompare([]byte(want), []byte(msg.Integrity)) != 1 {
		p.metrics.MessageRejected("integrity")
		p.logger.Warn("signaling integrity mismatch",
			"session_id", msg.SessionID, "type", msg.Type)
		return nil, domain.ErrMessageIntegrity
	}

	payload := msg.Payload
	if msg.Encrypted {
		pt, err := ch.cipher.Decrypt(msg.Payload, channelAAD(msg.SessionID, msg.Type, expected))
		if err != nil {
			p.metrics.MessageRejected("decrypt")
			return nil, domain.ErrMessageDecryption.WithCause(err)
		}
		payload = pt
	}

	ch.recvSeq = expected
	p.seen.Add(msg.MessageID)
	p.metrics.MessageValidated()
	return payload, nil
}

// PruneReplayCache drops expired replay entries; the sweeper calls this.
func (p *SignalingProtocol) PruneReplayCache() int {
	return p.seen.Prune()
}
