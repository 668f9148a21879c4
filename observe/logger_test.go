package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}
	return entry
}

func TestLogger_IncludesProbeFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.WithProbe(ProbeMeta{Name: "postgres", Tags: []string{"db", "ready"}}).
		Info(context.Background(), "probe run completed")

	entry := decodeLine(t, &buf)
	if v, ok := entry["probe.name"].(string); !ok || v != "postgres" {
		t.Errorf("expected probe.name='postgres', got %v", entry["probe.name"])
	}
	tags, ok := entry["probe.tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "db" {
		t.Errorf("expected probe.tags=[db ready], got %v", entry["probe.tags"])
	}
	if entry["msg"] != "probe run completed" || entry["level"] != "info" {
		t.Errorf("unexpected msg/level: %v", entry)
	}
}

func TestLogger_WithProbeDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	_ = logger.WithProbe(ProbeMeta{Name: "child"})

	logger.Info(context.Background(), "parent")
	entry := decodeLine(t, &buf)
	if _, ok := entry["probe.name"]; ok {
		t.Errorf("parent logger should not carry probe.name, got %v", entry)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Debug(context.Background(), "debug")
	logger.Info(context.Background(), "info")
	if buf.Len() != 0 {
		t.Fatalf("expected debug/info to be filtered, got: %s", buf.String())
	}

	logger.Warn(context.Background(), "warn")
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected warn entry, got: %s", buf.String())
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "probe built",
		F("dsn", "postgres://user:pw@db/app"),
		F("token", "abc"),
		F("url", "http://svc/healthz"),
	)

	entry := decodeLine(t, &buf)
	if entry["dsn"] != "[REDACTED]" || entry["token"] != "[REDACTED]" {
		t.Errorf("expected dsn and token redacted, got %v", entry)
	}
	if entry["url"] != "http://svc/healthz" {
		t.Errorf("expected url untouched, got %v", entry["url"])
	}
}

func TestLogger_ErrorValuesRenderAsStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "probe run failed", F("error", errors.New("connection refused")))

	entry := decodeLine(t, &buf)
	if entry["error"] != "connection refused" {
		t.Errorf("expected error string, got %v", entry["error"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

type panickyLogger struct{}

func (panickyLogger) Info(context.Context, string, ...Field)  { panic("sink down") }
func (panickyLogger) Warn(context.Context, string, ...Field)  { panic("sink down") }
func (panickyLogger) Error(context.Context, string, ...Field) { panic("sink down") }
func (panickyLogger) Debug(context.Context, string, ...Field) { panic("sink down") }
func (panickyLogger) WithProbe(ProbeMeta) Logger              { panic("sink down") }

func TestSafeLogger_SwallowsPanics(t *testing.T) {
	l := SafeLogger(panickyLogger{})
	ctx := context.Background()

	l.Info(ctx, "x")
	l.Warn(ctx, "x")
	l.Error(ctx, "x")
	l.Debug(ctx, "x")
	l.WithProbe(ProbeMeta{Name: "p"}).Info(ctx, "x")
}

func TestSafeLogger_Nil(t *testing.T) {
	l := SafeLogger(nil)
	l.Info(context.Background(), "discarded")
	if SafeLogger(l) != l {
		t.Error("expected SafeLogger to be idempotent")
	}
}
