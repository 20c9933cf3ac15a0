// Package domain defines the core domain models for pqcall.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling: scan tokens and their QR wire
// encoding, hashed token metadata, anonymous call sessions, signaling
// messages, and per-session key material.
package domain
