package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
)

// ErrDocumentNotFound is returned by Load when the backing document does not
// exist yet.
var ErrDocumentNotFound = errors.New("collection document not found")

// CollectionStore reads and replaces the whole application collection.
// Persist must replace the document atomically: a concurrent Load observes
// either the previous or the new collection, never a partial one.
type CollectionStore interface {
	Load(ctx context.Context) ([]application.Application, error)
	Persist(ctx context.Context, apps []application.Application) error
}

// RawLoader is implemented by backends that can return the persisted document
// verbatim, for structural validation.
type RawLoader interface {
	LoadRaw(ctx context.Context) ([]byte, error)
}

// Closer is implemented by backends holding connections.
type Closer interface {
	Close() error
}

// Encode renders the collection the way it is persisted: a JSON array with
// two-space indentation and a trailing newline.
func Encode(apps []application.Application) ([]byte, error) {
	if apps == nil {
		apps = []application.Application{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(apps); err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a persisted document. Anything other than a JSON array of
// records is rejected.
func Decode(data []byte) ([]application.Application, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("decode collection: document is not a JSON array")
	}
	var apps []application.Application
	if err := json.Unmarshal(trimmed, &apps); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if apps == nil {
		apps = []application.Application{}
	}
	return apps, nil
}
