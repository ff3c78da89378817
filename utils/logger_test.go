package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLoggerWritesPlainLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.log")
	l, err := NewFileLogger(path, false)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	var console bytes.Buffer
	l.console = &console
	l.errOut = &console

	l.Info("collected %d pairs", 3)
	l.Debug("hidden")
	l.SetDebug(true)
	l.Debug("shown")
	l.Error("boom")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 {
		t.Fatalf("log lines: got %d, want 3:\n%s", len(lines), b)
	}
	if !strings.HasSuffix(lines[0], " - INFO - collected 3 pairs") {
		t.Errorf("info line: got %q", lines[0])
	}
	if strings.Contains(string(b), "\033[") {
		t.Error("log file should not contain colour codes")
	}
	if strings.Contains(console.String(), "hidden") {
		t.Error("debug line emitted while debug was off")
	}
	if !strings.Contains(console.String(), "shown") {
		t.Error("debug line missing after SetDebug(true)")
	}
}
