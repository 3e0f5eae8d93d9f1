package logging

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesLogfmt(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info).With(Component("chat"))
	logger.Debug("hidden")
	logger.Info("send failed", F("chat_id", "abc"), Err(errors.New("boom now")), F("took", 2*time.Second))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	for _, want := range []string{"level=info", `msg="send failed"`, "component=chat", "chat_id=abc", `error="boom now"`, "took=2s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		" WARN ":  Warn,
		"warning": Warn,
		"error":   Error,
		"":        Info,
		"verbose": Info,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNopLoggerDropsEverything(t *testing.T) {
	logger := Nop()
	if logger.Enabled(Error) {
		t.Fatalf("nop logger should not be enabled")
	}
	logger.Error("ignored")
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "botdesk.log")
	logger, closer, err := OpenFile(path, Debug)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	logger.Debug("first")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, _, err := OpenFile("  ", Info); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
