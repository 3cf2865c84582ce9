package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Store is the relational store for submissions, judges, assignments and
// evaluations. Queries use ? placeholders and are rebound for the driver.
type Store struct {
	db *sqlx.DB
}

func NewStore(dbx *sqlx.DB) *Store {
	return &Store{db: dbx}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
