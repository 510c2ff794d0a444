// Package redis keeps the application collection under a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/go-redis/redis/v8"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/storage"
)

// DefaultKey is used when no key is configured.
const DefaultKey = "app_registry:applications"

// Store reads the document with GET and replaces it with SET, which Redis
// applies atomically.
type Store struct {
	client goredis.UniversalClient
	key    string
}

var _ storage.CollectionStore = (*Store)(nil)
var _ storage.RawLoader = (*Store)(nil)
var _ storage.Closer = (*Store)(nil)

// New wraps an existing client.
func New(client goredis.UniversalClient, key string) *Store {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Open dials addr and verifies the connection with PING.
func Open(ctx context.Context, addr, password string, db int, key string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client, key), nil
}

// Key returns the Redis key holding the document.
func (s *Store) Key() string { return s.key }

func (s *Store) LoadRaw(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%w: %s", storage.ErrDocumentNotFound, s.key)
		}
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	return data, nil
}

func (s *Store) Load(ctx context.Context) ([]application.Application, error) {
	data, err := s.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	return storage.Decode(data)
}

func (s *Store) Persist(ctx context.Context, apps []application.Application) error {
	data, err := storage.Encode(apps)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
