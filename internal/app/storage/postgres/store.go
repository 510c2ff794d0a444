// Package postgres keeps each application collection as one JSONB row,
// replaced by a single upsert.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/storage"
)

// DefaultDocument is the row name used when none is configured.
const DefaultDocument = "applications"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store keeps the whole collection as one JSONB row in app_collections.
// Persist is a single upsert, so readers see either the old or the new body.
type Store struct {
	db       *sqlx.DB
	document string
}

var _ storage.CollectionStore = (*Store)(nil)
var _ storage.RawLoader = (*Store)(nil)
var _ storage.Closer = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB, document string) *Store {
	if strings.TrimSpace(document) == "" {
		document = DefaultDocument
	}
	return &Store{db: db, document: document}
}

// Open connects to dsn and returns a store for document.
func Open(ctx context.Context, dsn, document string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db, document), nil
}

// Migrate applies the embedded schema migrations.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: "app_registry_schema_migrations"})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// DB exposes the underlying handle, e.g. for Migrate.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) LoadRaw(ctx context.Context) ([]byte, error) {
	var body []byte
	err := s.db.GetContext(ctx, &body, `SELECT body FROM app_collections WHERE name = $1`, s.document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrDocumentNotFound, s.document)
		}
		return nil, fmt.Errorf("select collection %s: %w", s.document, err)
	}
	return body, nil
}

func (s *Store) Load(ctx context.Context) ([]application.Application, error) {
	body, err := s.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	return storage.Decode(body)
}

func (s *Store) Persist(ctx context.Context, apps []application.Application) error {
	body, err := storage.Encode(apps)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_collections (name, body, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, s.document, string(body))
	if err != nil {
		return fmt.Errorf("upsert collection %s: %w", s.document, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
