package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the queue as a newline-delimited UTF-8 file, one URL per
// line, no header.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load queue %s: %w", s.path, err)
	}

	var urls []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		url := strings.TrimSpace(line)
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	return urls, nil
}

// Replace writes the new queue to a temp file in the same directory, syncs
// it, and renames it over the target.
func (s *FileStore) Replace(ctx context.Context, urls []string) error {
	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, ".queue-*")
	if err != nil {
		return fmt.Errorf("replace queue %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	var b strings.Builder
	for _, url := range urls {
		b.WriteString(url)
		b.WriteByte('\n')
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("replace queue %s: %w", s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("replace queue %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("replace queue %s: %w", s.path, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace queue %s: %w", s.path, err)
	}
	return nil
}
