// Package sqlite implements the query index: the store executing compiled
// expressions and the source of the query tag catalog.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/interfaces"
)

//go:embed schema.sql
var schemaSQL string

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the logger used by the store.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is the SQLite query index.
type Store struct {
	db     *sql.DB
	sq     sq.StatementBuilderType
	logger *zap.Logger
}

var (
	_ interfaces.QueryStore     = (*Store)(nil)
	_ interfaces.QueryTagSource = (*Store)(nil)
	_ interfaces.Indexer        = (*Store)(nil)
)

// Open opens the database at path, creating the schema when missing.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: index path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "execute %s", pragma)
		}
	}
	// A single connection keeps in-memory databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return New(db, opts...), nil
}

// New wraps an open database whose schema is already in place.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		sq:     sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
