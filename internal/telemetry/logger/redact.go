// Package logger provides structured logging for pqcall.
package logger

import (
	"log/slog"
	"strings"
)

// QR payloads carry this prefix on the wire.
const qrValuePrefix = "pqc:"

// Sensitive key patterns that are fully redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"credential",
	"auth",
	"bearer",
	"master_key",
	"salt",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data and
// redacts it if necessary. QR payloads and bare token values are
// partially masked; attributes with sensitive key names are dropped
// entirely.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if strings.HasPrefix(strVal, qrValuePrefix) {
			return slog.String(a.Key, maskValue(strVal))
		}
		if looksLikeTokenValue(strVal) {
			return slog.String(a.Key, maskValue(strVal))
		}

		keyLower := strings.ToLower(a.Key)
		for _, pattern := range sensitiveKeyPatterns {
			if strings.Contains(keyLower, pattern) {
				if strVal != "" {
					return slog.String(a.Key, redactedValue)
				}
				break
			}
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// looksLikeTokenValue reports whether a string has the shape of a bare
// 256-bit token value: exactly 64 lowercase hex characters.
func looksLikeTokenValue(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// maskValue partially masks a sensitive value, keeping short hints at
// either end.
func maskValue(value string) string {
	if len(value) < 12 {
		return redactedValue
	}
	return value[:6] + "..." + value[len(value)-4:]
}

// RedactString manually redacts a string value. Use this when a value
// must be sanitized before it reaches any logging call.
func RedactString(value string) string {
	if strings.HasPrefix(value, qrValuePrefix) || looksLikeTokenValue(value) {
		return maskValue(value)
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
