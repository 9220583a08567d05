package queries

import (
	"github.com/jmoiron/sqlx"
)

// Store runs the application's SQL against a PostgreSQL pool. Lookups that
// find nothing return (nil, nil).
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}
