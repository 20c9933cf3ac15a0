// Package domain defines the core domain models for pqcall.
package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// MessageType identifies a signaling message on the duplex channel.
type MessageType string

const (
	MessageCallStart       MessageType = "call-start"
	MessageOffer           MessageType = "offer"
	MessageAnswer          MessageType = "answer"
	MessageICECandidate    MessageType = "ice-candidate"
	MessageCallEnd         MessageType = "call-end"
	MessageQualityFeedback MessageType = "quality-feedback"
)

// IsValid reports whether the message type is a known value.
func (t MessageType) IsValid() bool {
	switch t {
	case MessageCallStart, MessageOffer, MessageAnswer,
		MessageICECandidate, MessageCallEnd, MessageQualityFeedback:
		return true
	}
	return false
}

// SignalingMessage is the wire record exchanged during call setup. The
// per-session sequence number is deliberately absent from the wire: the
// receiver recomputes the integrity digest against its own expected
// sequence, so a message cannot be replayed at a different position.
type SignalingMessage struct {
	// Type is the signaling message type.
	Type MessageType `json:"type"`

	// SessionID is the anonymous call session this message belongs to.
	SessionID string `json:"session_id"`

	// Payload is the message body. Ciphertext when Encrypted is true,
	// plaintext only for the pre-key handshake.
	Payload []byte `json:"payload"`

	// Timestamp is the creation time (Unix milliseconds), checked
	// against the freshness window.
	Timestamp int64 `json:"timestamp"`

	// MessageID is unique per message and tracked for replay detection.
	MessageID string `json:"message_id"`

	// Integrity is the hex digest over type, session, payload,
	// timestamp, and the implicit sequence number.
	Integrity string `json:"integrity"`

	// Encrypted reports whether Payload is AEAD ciphertext.
	Encrypted bool `json:"encrypted"`
}

// MessageIntegrity computes the integrity digest for a signaling message
// at a given sequence position. Fields are length-framed so no two
// distinct field combinations share an input encoding.
func MessageIntegrity(msgType MessageType, sessionID string, payload []byte, timestamp int64, sequence uint64) string {
	h := sha256.New()

	writeFrame := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}

	writeFrame([]byte(msgType))
	writeFrame([]byte(sessionID))
	writeFrame(payload)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(timestamp))
	h.Write(ts[:])

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	h.Write(seq[:])

	return hex.EncodeToString(h.Sum(nil))
}
