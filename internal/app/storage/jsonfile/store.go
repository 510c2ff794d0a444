// Package jsonfile persists the application collection as a single JSON
// document on the local filesystem.
package jsonfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/storage"
)

const defaultFileMode os.FileMode = 0o644

// Store reads the whole document on every Load and replaces it on every
// Persist. Writes go to a temp file in the same directory that is synced and
// renamed over the target, so readers only ever see complete documents.
type Store struct {
	path string
	mode os.FileMode

	// writeMu serializes writers within this process.
	writeMu sync.Mutex
}

var (
	_ storage.CollectionStore = (*Store)(nil)
	_ storage.RawLoader       = (*Store)(nil)
)

// New returns a store for the document at path. The file does not have to
// exist until the first Load.
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("jsonfile: path is required")
	}
	return &Store{path: filepath.Clean(path), mode: defaultFileMode}, nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// LoadRaw returns the document bytes verbatim.
func (s *Store) LoadRaw(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrDocumentNotFound, s.path)
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return data, nil
}

// Load decodes the document.
func (s *Store) Load(ctx context.Context) ([]application.Application, error) {
	data, err := s.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	apps, err := storage.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return apps, nil
}

// Persist replaces the document with apps.
func (s *Store) Persist(ctx context.Context, apps []application.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := storage.Encode(apps)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := writeFileAtomic(s.path, data, s.mode); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, "."+base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some filesystems refuse fsync on directories; the rename already
	// happened, so only report real I/O failures.
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}
