package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyExt is the extension a file must carry to be treated as a credential.
const KeyExt = ".json"

// ErrNoCredentials marks the configuration-error class: a missing credential
// directory or one containing zero key files. Fatal before any submission.
var ErrNoCredentials = errors.New("no credentials available")

// Credential is one service-account key file. The key bytes are read lazily
// so discovery stays cheap for large pools.
type Credential struct {
	Path string
}

func (c Credential) Name() string {
	return filepath.Base(c.Path)
}

func (c Credential) Key() ([]byte, error) {
	return os.ReadFile(c.Path)
}

// Discover recursively scans dir for key files and returns them sorted by
// path, so repeated runs use credentials in the same order.
func Discover(dir string) ([]Credential, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("credential directory %q: %w", dir, ErrNoCredentials)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), KeyExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan credential directory %q: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("credential directory %q contains no %s key files: %w", dir, KeyExt, ErrNoCredentials)
	}

	sort.Strings(paths)

	creds := make([]Credential, 0, len(paths))
	for _, p := range paths {
		creds = append(creds, Credential{Path: p})
	}
	return creds, nil
}
