// Package applications implements the record store: reads and writes against
// the persisted application collection.
package applications

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/metrics"
	"github.com/R3E-Network/app_registry/internal/app/storage"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

// Operation names used in errors, logs and metrics.
const (
	OpList   = "list"
	OpGet    = "get"
	OpSearch = "search"
	OpUpdate = "update"
	OpDelete = "delete"
	OpAudit  = "audit"
)

// Service loads the whole collection on every call and, for mutations,
// persists the whole collection before returning. It keeps no state between
// calls, so concurrent mutations race with last-writer-wins semantics; the
// backend guarantees each write is an atomic replacement.
type Service struct {
	store storage.CollectionStore
	log   *logger.Logger
}

// New constructs the record store over the given backend.
func New(store storage.CollectionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("applications")
	}
	return &Service{store: store, log: log}
}

// LoadAll returns the full collection in stored order.
func (s *Service) LoadAll(ctx context.Context) (apps []application.Application, err error) {
	defer s.observe(OpList, time.Now(), &err, nil)
	return s.load(ctx, OpList)
}

// FindByName returns the first record whose appName equals name exactly.
// found is false when no record matches; that is not an error.
func (s *Service) FindByName(ctx context.Context, name string) (app application.Application, found bool, err error) {
	defer s.observe(OpGet, time.Now(), &err, &found)

	apps, err := s.load(ctx, OpGet)
	if err != nil {
		return application.Application{}, false, err
	}
	idx := application.IndexOf(apps, name)
	if idx < 0 {
		return application.Application{}, false, nil
	}
	return apps[idx], true, nil
}

// Search returns the records matching every present criterion, in stored
// order. Empty criteria return the whole collection.
func (s *Service) Search(ctx context.Context, criteria application.Criteria) (matches []application.Application, err error) {
	defer s.observe(OpSearch, time.Now(), &err, nil)

	apps, err := s.load(ctx, OpSearch)
	if err != nil {
		return nil, err
	}
	if criteria.IsEmpty() {
		return apps, nil
	}
	matches = make([]application.Application, 0, len(apps))
	for _, app := range apps {
		if criteria.Matches(app) {
			matches = append(matches, app)
		}
	}
	return matches, nil
}

// Update applies patch to the first record named name and persists the
// collection. When no record matches, found is false and nothing is written.
// On a write failure the change is not committed and a *StorageWriteError is
// returned.
func (s *Service) Update(ctx context.Context, name string, patch application.Patch) (updated application.Application, found bool, err error) {
	defer s.observe(OpUpdate, time.Now(), &err, &found)

	apps, err := s.load(ctx, OpUpdate)
	if err != nil {
		return application.Application{}, false, err
	}
	idx := application.IndexOf(apps, name)
	if idx < 0 {
		return application.Application{}, false, nil
	}

	next := application.Clone(apps)
	next[idx] = patch.Apply(next[idx])
	if err := s.persist(ctx, OpUpdate, next); err != nil {
		return application.Application{}, false, err
	}

	s.log.WithField("app_name", name).
		WithField("owner_changed", patch.AppOwner != nil).
		WithField("validity_changed", patch.IsValid != nil).
		Info("application updated")
	return next[idx], true, nil
}

// Delete removes the first record named name and persists the collection,
// returning the removed record. Duplicates beyond the first are kept. When no
// record matches, found is false and nothing is written.
func (s *Service) Delete(ctx context.Context, name string) (removed application.Application, found bool, err error) {
	defer s.observe(OpDelete, time.Now(), &err, &found)

	apps, err := s.load(ctx, OpDelete)
	if err != nil {
		return application.Application{}, false, err
	}
	idx := application.IndexOf(apps, name)
	if idx < 0 {
		return application.Application{}, false, nil
	}

	removed = apps[idx]
	next := make([]application.Application, 0, len(apps)-1)
	next = append(next, apps[:idx]...)
	next = append(next, apps[idx+1:]...)
	if err := s.persist(ctx, OpDelete, next); err != nil {
		return application.Application{}, false, err
	}

	s.log.WithField("app_name", name).Info("application deleted")
	return removed, true, nil
}

// ValidateCollection runs the structural checks against the persisted
// document. It is never invoked by the other operations. Backends that cannot
// return the raw document are validated through their decoded form.
func (s *Service) ValidateCollection(ctx context.Context) error {
	var (
		data []byte
		err  error
	)
	if raw, ok := s.store.(storage.RawLoader); ok {
		data, err = raw.LoadRaw(ctx)
	} else {
		var apps []application.Application
		if apps, err = s.store.Load(ctx); err == nil {
			data, err = storage.Encode(apps)
		}
	}
	if err != nil {
		return &StorageReadError{Op: OpAudit, Err: err}
	}
	return application.ValidateDocument(data)
}

func (s *Service) load(ctx context.Context, op string) ([]application.Application, error) {
	apps, err := s.store.Load(ctx)
	if err != nil {
		s.log.WithError(err).WithField("op", op).Error("error reading data file")
		return nil, &StorageReadError{Op: op, Err: err}
	}
	return apps, nil
}

func (s *Service) persist(ctx context.Context, op string, apps []application.Application) error {
	if err := s.store.Persist(ctx, apps); err != nil {
		s.log.WithError(err).WithField("op", op).Error("error writing data file")
		return &StorageWriteError{Op: op, Err: err}
	}
	return nil
}

func (s *Service) observe(op string, start time.Time, err *error, found *bool) {
	outcome := "ok"
	switch {
	case *err != nil && errors.Is(*err, ErrStorageWrite):
		outcome = "write_error"
	case *err != nil:
		outcome = "read_error"
	case found != nil && !*found:
		outcome = "not_found"
	}
	metrics.RecordStoreOperation(op, outcome, time.Since(start))
}
