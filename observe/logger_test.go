package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
	}
	return entry
}

// TestLogger_IncludesSiteFields verifies call site fields are present in log output.
func TestLogger_IncludesSiteFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithSite(SiteMeta{
		Handler:  "users.get",
		Request:  "app.GetUser",
		Response: "app.User",
		Profile:  "fast",
	})

	logger.Info(context.Background(), "test message")

	entry := decodeLine(t, buf.String())
	want := map[string]string{
		"cache.site":          "users.get",
		"cache.request_type":  "app.GetUser",
		"cache.response_type": "app.User",
		"cache.profile":       "fast",
		"level":               "info",
		"msg":                 "test message",
	}
	for k, v := range want {
		if got, _ := entry[k].(string); got != v {
			t.Errorf("%s = %v, want %q", k, entry[k], v)
		}
	}
	if _, ok := entry["timestamp"].(string); !ok {
		t.Error("expected a timestamp")
	}
}

// TestLogger_UnnamedSiteUsesRequestType verifies the site id falls back to the request type.
func TestLogger_UnnamedSiteUsesRequestType(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).
		WithSite(SiteMeta{Request: "app.GetUser"}).
		Info(context.Background(), "m")

	entry := decodeLine(t, buf.String())
	if entry["cache.site"] != "app.GetUser" {
		t.Errorf("cache.site = %v, want app.GetUser", entry["cache.site"])
	}
	if _, ok := entry["cache.profile"]; ok {
		t.Error("empty profile should be omitted")
	}
}

// TestLogger_ErrorValuesRenderAsStrings verifies error fields are readable.
func TestLogger_ErrorValuesRenderAsStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "store failed",
		Field{Key: "error", Value: errors.New("connection timeout")},
		Field{Key: "attempt", Value: 2},
	)

	entry := decodeLine(t, buf.String())
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
	if entry["error"] != "connection timeout" {
		t.Errorf("error = %v, want 'connection timeout'", entry["error"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", entry["attempt"])
	}
}

// TestLogger_PayloadsRedacted verifies request and response values never reach the output.
func TestLogger_PayloadsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Debug(context.Background(), "cache miss",
		Field{Key: "request", Value: "user@example.com"},
		Field{Key: "response", Value: "secret profile"},
		Field{Key: "token", Value: "tok_123"},
	)

	out := buf.String()
	for _, raw := range []string{"user@example.com", "secret profile", "tok_123"} {
		if strings.Contains(out, raw) {
			t.Errorf("raw value %q leaked into output: %s", raw, out)
		}
	}
	if strings.Count(out, "[REDACTED]") != 3 {
		t.Errorf("expected three redaction markers: %s", out)
	}
}

// TestLogger_LevelFiltering verifies entries below the configured level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Debug(context.Background(), "debug message")
	logger.Info(context.Background(), "info message")
	if buf.Len() != 0 {
		t.Fatalf("debug/info should be filtered at warn: %s", buf.String())
	}

	logger.Warn(context.Background(), "warn message")
	logger.Error(context.Background(), "error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
}

// TestLogger_WithSiteDoesNotLeakIntoParent verifies derived loggers copy attributes.
func TestLogger_WithSiteDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.WithSite(SiteMeta{Handler: "child"})

	parent.Info(context.Background(), "from parent")

	entry := decodeLine(t, buf.String())
	if _, ok := entry["cache.site"]; ok {
		t.Error("parent logger should not carry the child's site")
	}
}

// TestLogger_ConcurrentWritesStayWhole verifies lines are not interleaved.
func TestLogger_ConcurrentWritesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	root := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := root.WithSite(SiteMeta{Handler: "h"})
			for j := 0; j < 25; j++ {
				l.Info(context.Background(), "concurrent")
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 500 {
		t.Fatalf("expected 500 lines, got %d", len(lines))
	}
	for _, line := range lines {
		decodeLine(t, line)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
		"":      LevelInfo,
		"loud":  LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if LevelWarn.String() != "warn" {
		t.Errorf("LevelWarn.String() = %q", LevelWarn.String())
	}
}
