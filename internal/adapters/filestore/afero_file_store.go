package filestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// AferoFileStore keeps proof-of-delivery images under Dir on an afero filesystem.
// The returned reference is the slash-separated path relative to the filesystem root.
type AferoFileStore struct {
	fs  afero.Fs
	dir string
}

// NewOSFileStore stores files on the local disk under dir.
func NewOSFileStore(dir string) *AferoFileStore {
	return NewAferoFileStore(afero.NewOsFs(), dir)
}

func NewAferoFileStore(fs afero.Fs, dir string) *AferoFileStore {
	return &AferoFileStore{fs: fs, dir: dir}
}

func (s *AferoFileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("save file: invalid name %q", name)
	}
	if len(data) == 0 {
		return "", errors.New("save file: empty payload")
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("save file: create dir %q: %w", s.dir, err)
	}

	ref := path.Join(s.dir, name)
	if err := afero.WriteFile(s.fs, ref, data, 0o644); err != nil {
		return "", fmt.Errorf("save file %q: %w", ref, err)
	}

	return ref, nil
}

// Delete removes ref, a reference returned by Save. Only files inside dir can be removed.
func (s *AferoFileStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if path.Dir(ref) != path.Clean(s.dir) {
		return fmt.Errorf("delete file: %q is outside %q", ref, s.dir)
	}
	if err := s.fs.Remove(ref); err != nil {
		return fmt.Errorf("delete file %q: %w", ref, err)
	}
	return nil
}
