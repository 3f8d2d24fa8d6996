package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"none":    LevelNone,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(LevelWarn, &buf, "")

	l.Debug("drop me")
	l.Info("drop me too")
	l.Warn("keep the warning")
	l.Error("keep the error")

	out := buf.String()
	if strings.Contains(out, "drop me") {
		t.Errorf("sub-threshold lines were written: %s", out)
	}
	if !strings.Contains(out, "keep the warning") || !strings.Contains(out, "keep the error") {
		t.Errorf("expected lines missing: %s", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "[ERROR]") {
		t.Errorf("level tags missing: %s", out)
	}
}

func TestWithPrefixCombines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(LevelInfo, &buf, "web")

	l.WithPrefix("hub").Info("client joined")

	if !strings.Contains(buf.String(), "[web:hub]") {
		t.Errorf("combined prefix missing: %s", buf.String())
	}
}

func TestSetLevelTakesEffect(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(LevelInfo, &buf, "")

	l.Debug("before")
	l.SetLevel(LevelDebug)
	l.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Error("debug line written while level was info")
	}
	if !strings.Contains(out, "after") {
		t.Error("debug line missing after lowering the level")
	}
}

func TestFileBackedLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "daybook.log")

	l, err := New(LevelInfo, logPath, "digest")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("generated digest for %d sources", 3)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(content), "generated digest for 3 sources") {
		t.Errorf("log file content = %q", content)
	}
	if !strings.Contains(string(content), "[digest]") {
		t.Errorf("prefix missing: %q", content)
	}
}

func TestDisabledLogger(t *testing.T) {
	l, err := New(LevelNone, "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}

func TestGlobalWorksWithoutInit(t *testing.T) {
	if Global() == nil {
		t.Fatal("Global() returned nil")
	}
	Debug("x")
	Info("x")
	Warn("x")
	Error("x")
}
