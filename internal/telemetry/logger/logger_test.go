package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Output: &buf})

	l.Info("hello", "component", "test")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["component"] != "test" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "json", Output: &buf})

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info line emitted at warn level: %s", buf.String())
	}
	l.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn line not emitted")
	}
}

func TestRedaction_QRPayload(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	qr := "pqc:1:" + strings.Repeat("ab", 32) + ":12345678"
	l.Info("scan", "payload", qr)

	out := buf.String()
	if strings.Contains(out, strings.Repeat("ab", 32)) {
		t.Error("full token value reached the log output")
	}
	if !strings.Contains(out, "pqc:1:") {
		t.Errorf("masked value lost its prefix hint: %s", out)
	}
}

func TestRedaction_BareTokenValue(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	value := strings.Repeat("cd", 32)
	l.Info("resolve", "value", value)

	if strings.Contains(buf.String(), value) {
		t.Error("bare token value reached the log output")
	}
}

func TestRedaction_SensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("config", "db_password", "hunter2", "master_key", "aabbcc")

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "aabbcc") {
		t.Errorf("sensitive values reached the log output: %s", out)
	}
	if !strings.Contains(out, redactedValue) {
		t.Errorf("no redaction placeholder in output: %s", out)
	}
}

func TestRedactString(t *testing.T) {
	qr := "pqc:1:" + strings.Repeat("ef", 32) + ":12345678"
	if got := RedactString(qr); strings.Contains(got, strings.Repeat("ef", 32)) {
		t.Errorf("RedactString(%q) = %q, token survived", qr, got)
	}
	if got := RedactString("plain string"); got != "plain string" {
		t.Errorf("RedactString mangled a benign value: %q", got)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"DB_Password", true},
		{"master_key", true},
		{"session_id", false},
		{"status", false},
	}
	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if id := RequestIDFromContext(ctx); id != "" {
		t.Errorf("RequestIDFromContext(empty) = %q, want empty", id)
	}
	ctx = WithRequestID(ctx, "req-1")
	if id := RequestIDFromContext(ctx); id != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want %q", id, "req-1")
	}
	if l := L(ctx); l == nil {
		t.Fatal("L() returned nil")
	}
}

func TestSetLevel(t *testing.T) {
	SetLevel("debug")
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel() = %q, want debug", got)
	}
	SetLevel("info")
	if got := GetLevel(); got != "info" {
		t.Errorf("GetLevel() = %q, want info", got)
	}
}
