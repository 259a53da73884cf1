package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDailyWriter_SplitsByDay(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDailyWriter(dir)
	if err != nil {
		t.Fatalf("NewDailyWriter: %v", err)
	}

	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return day }
	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.now = func() time.Time { return day.Add(2 * time.Minute) }
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	for name, want := range map[string]string{
		"newsletter_2026-03-01.log": "first\n",
		"newsletter_2026-03-02.log": "second\n",
	} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != want {
			t.Fatalf("%s: expected %q, got %q", name, want, got)
		}
	}
}

func TestNew_WritesToFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello from test")
	_ = logger.Sync()

	got, err := os.ReadFile(filepath.Join(dir, DailyFilename(time.Now())))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(got), "hello from test") {
		t.Fatalf("log file missing entry: %q", got)
	}
}
