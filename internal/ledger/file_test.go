package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestResultLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.txt")
	log, err := OpenFileResultLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	day := time.Date(2025, 8, 25, 14, 30, 0, 0, time.UTC)
	if err := log.RecordSuccess(context.Background(), "https://example.com/a", day); err != nil {
		t.Fatalf("RecordSuccess error: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got, want := string(data), "https://example.com/a;2025-08-25\n"; got != want {
		t.Fatalf("ledger line = %q, want %q", got, want)
	}
}

func TestResultLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.txt")
	day := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)

	for _, url := range []string{"https://example.com/a", "https://example.com/b"} {
		log, err := OpenFileResultLog(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := log.RecordSuccess(context.Background(), url, day); err != nil {
			t.Fatalf("RecordSuccess error: %v", err)
		}
		log.Close()
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after reopen, got %d:\n%s", len(lines), data)
	}
}

func TestBadURLLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_urls.txt")
	log, err := OpenFileBadURLLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := log.RecordRejected(context.Background(), "https://example.com/bad", "code=400, status=INVALID_ARGUMENT"); err != nil {
		t.Fatalf("RecordRejected error: %v", err)
	}
	log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	parts := strings.SplitN(strings.TrimRight(string(data), "\n"), " | ", 3)
	if len(parts) != 3 {
		t.Fatalf("expected 3 fields, got %q", data)
	}
	if _, err := time.Parse(time.RFC3339, parts[0]); err != nil {
		t.Fatalf("timestamp field %q not RFC3339: %v", parts[0], err)
	}
	if parts[1] != "https://example.com/bad" {
		t.Fatalf("url field = %q", parts[1])
	}
	if parts[2] != "code=400, status=INVALID_ARGUMENT" {
		t.Fatalf("reason field = %q", parts[2])
	}
}
