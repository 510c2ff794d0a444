package memory

import (
	"context"
	"sync"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/storage"
)

// Store is an in-memory implementation of storage.CollectionStore. It keeps
// the encoded document rather than live structs, so loads and persists go
// through the same codec as the durable backends. It is safe for concurrent
// use and is primarily intended for tests and local development.
type Store struct {
	mu       sync.RWMutex
	document []byte
	writes   int

	// failWrites, when set, is returned by Persist without touching the
	// document.
	failWrites error
}

var _ storage.CollectionStore = (*Store)(nil)
var _ storage.RawLoader = (*Store)(nil)

// New creates a store with no document. Load fails with
// storage.ErrDocumentNotFound until something is persisted.
func New() *Store {
	return &Store{}
}

// NewWithApps creates a store seeded with apps.
func NewWithApps(apps []application.Application) *Store {
	data, err := storage.Encode(apps)
	if err != nil {
		panic(err)
	}
	return &Store{document: data}
}

// NewWithDocument creates a store holding raw bytes verbatim, including
// malformed ones.
func NewWithDocument(data []byte) *Store {
	return &Store{document: append([]byte(nil), data...)}
}

func (s *Store) LoadRaw(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.document == nil {
		return nil, storage.ErrDocumentNotFound
	}
	return append([]byte(nil), s.document...), nil
}

func (s *Store) Load(ctx context.Context) ([]application.Application, error) {
	data, err := s.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	return storage.Decode(data)
}

func (s *Store) Persist(ctx context.Context, apps []application.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := storage.Encode(apps)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites != nil {
		return s.failWrites
	}
	s.document = data
	s.writes++
	return nil
}

// FailWrites makes every subsequent Persist return err. Pass nil to restore
// normal behaviour.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// Writes reports how many successful Persist calls the store has seen.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
