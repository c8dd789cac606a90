package ledger

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileResultLog appends "<url>;<ISO date>" lines.
type FileResultLog struct {
	f *os.File
}

func OpenFileResultLog(path string) (*FileResultLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open result log %s: %w", path, err)
	}
	return &FileResultLog{f: f}, nil
}

func (l *FileResultLog) RecordSuccess(ctx context.Context, url string, day time.Time) error {
	if _, err := fmt.Fprintf(l.f, "%s;%s\n", url, day.Format("2006-01-02")); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

func (l *FileResultLog) Close() error {
	return l.f.Close()
}

// FileBadURLLog appends "<RFC3339 timestamp> | <url> | <reason>" lines.
type FileBadURLLog struct {
	f *os.File
}

func OpenFileBadURLLog(path string) (*FileBadURLLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open bad-url log %s: %w", path, err)
	}
	return &FileBadURLLog{f: f}, nil
}

func (l *FileBadURLLog) RecordRejected(ctx context.Context, url, reason string) error {
	if _, err := fmt.Fprintf(l.f, "%s | %s | %s\n", time.Now().Format(time.RFC3339), url, reason); err != nil {
		return fmt.Errorf("append bad url: %w", err)
	}
	return nil
}

func (l *FileBadURLLog) Close() error {
	return l.f.Close()
}
