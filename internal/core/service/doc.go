// Package service provides the domain services for pqcall.
//
// The services compose bottom-up: TokenManager owns token issue,
// resolution, and revocation against a pluggable TokenStorage;
// PrivacyLayer mints unlinkable anonymous identifiers and the ephemeral
// mappings behind them; TokenMapper turns a scanned QR payload into a
// callee's anonymous identifier; SessionManager drives the call-session
// state machine; SignalingProtocol and EncryptionManager handle secure
// message framing and per-session key material; CallRouter is the
// top-level orchestrator. A Sweeper owns the periodic cleanup tasks.
//
// The privacy invariant threads through all of them: a real user
// identifier exists only inside token resolution and the PrivacyLayer's
// ephemeral mappings, never on a session, a message, or a log line.
package service
