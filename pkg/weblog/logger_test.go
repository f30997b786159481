package weblog

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core), logs
}

func TestLoggerErrorf(t *testing.T) {
	z, logs := newObserved()
	l := New(z)
	l.Errorf("failed on %s: %d", "resource", 42)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("level = %v, want error", entries[0].Level)
	}
	if !strings.Contains(entries[0].Message, "failed on resource: 42") {
		t.Fatalf("message = %q", entries[0].Message)
	}
}

func TestAccessLoggerDefaultsToCommonLogFormat(t *testing.T) {
	z, logs := newObserved()
	a := NewAccessLogger(z)
	if a.Ident != "-" || a.AuthUser != "-" {
		t.Fatalf("Ident/AuthUser defaults = %q/%q, want -/-", a.Ident, a.AuthUser)
	}

	a.LogAccess("127.0.0.1", "GET / HTTP/1.1", 200, 1234, "INFO")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	msg := entries[0].Message
	for _, want := range []string{"127.0.0.1", "-", `"GET / HTTP/1.1"`, "200", "1234"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("common-log-format message %q missing %q", msg, want)
		}
	}
}

func TestAccessLoggerStructuredModeEmitsFields(t *testing.T) {
	z, logs := newObserved()
	a := NewAccessLogger(z)
	a.Structured = true

	a.LogAccess("10.0.0.1", "POST /x HTTP/1.1", 500, 0, "ERROR")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["host"] != "10.0.0.1" || fields["code"] != int64(500) {
		t.Fatalf("structured fields = %+v", fields)
	}
}

func TestCommonLogFormatShape(t *testing.T) {
	line := commonLogFormat("host", "ident", "auth", "GET / HTTP/1.1", 200, 5)
	if !strings.HasPrefix(line, "host ident auth [") {
		t.Fatalf("commonLogFormat = %q, unexpected prefix", line)
	}
	if !strings.Contains(line, `"GET / HTTP/1.1" 200 5`) {
		t.Fatalf("commonLogFormat = %q, missing request/code/size suffix", line)
	}
}
