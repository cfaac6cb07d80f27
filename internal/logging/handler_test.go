package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSanitizingHandlerRedactsSecretKeys(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"api_key", "plainly-not-a-credential"},
		{"Authorization", "Basic dXNlcjpwYXNz"},
		{"token", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewSanitizingHandler(slog.NewTextHandler(&buf, nil), NewSanitizer())
			slog.New(h).Info("configured uploader", tt.key, tt.value)

			out := buf.String()
			if strings.Contains(out, tt.value) {
				t.Errorf("value under key %q leaked: %s", tt.key, out)
			}
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("no redaction marker: %s", out)
			}
		})
	}
}

func TestSanitizingHandlerRedactsSecretKeysInGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewSanitizingHandler(slog.NewTextHandler(&buf, nil), NewSanitizer())
	slog.New(h).Info("upload", slog.Group("upload", slog.String("api_key", "grouped-credential")))

	if strings.Contains(buf.String(), "grouped-credential") {
		t.Errorf("grouped credential leaked: %s", buf.String())
	}
}

func TestPrettyHandlerLiftsComponentIntoPrefix(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, slog.LevelDebug)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "stream closed", 0)
	r.AddAttrs(slog.String("component", "receiver"), slog.String("state", "Done"))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "[receiver]") {
		t.Errorf("component not in prefix: %s", out)
	}
	if idx := strings.Index(out, "[receiver]"); idx > strings.Index(out, "stream closed") {
		t.Errorf("component after message: %s", out)
	}
	if strings.Contains(out, "component=") {
		t.Errorf("component repeated as attribute: %s", out)
	}
	if !strings.Contains(out, "state") {
		t.Errorf("ordinary attribute dropped: %s", out)
	}
}

func TestPrettyHandlerColorsCrashKeys(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, slog.LevelDebug)

	r := slog.NewRecord(time.Now(), slog.LevelWarn, "crash received", 0)
	r.AddAttrs(
		slog.String("report_id", "abc-123"),
		slog.String("signame", "SIGSEGV"),
		slog.String("socket", "/tmp/ct.sock"),
	)
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, colorMagenta+"report_id") {
		t.Errorf("report_id not highlighted: %q", out)
	}
	if !strings.Contains(out, colorRed+"signame") {
		t.Errorf("signame not highlighted: %q", out)
	}
	if !strings.Contains(out, colorCyan+"socket") {
		t.Errorf("plain attribute lost default color: %q", out)
	}
}

func TestPrettyHandlerGroupsPrefixKeys(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, slog.LevelDebug).WithGroup("upload")

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "sent", 0)
	r.AddAttrs(slog.Int("status", 202))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), "upload.status") {
		t.Errorf("group prefix missing: %s", buf.String())
	}
}

func TestPrettyHandlerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, slog.LevelWarn)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled at warn level")
	}
}
