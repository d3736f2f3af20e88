package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/family-health/internal/adapters/postgres"
)

// Store is a Postgres implementation of kvstore.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the kv table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.pool == nil {
		return nil, false, errors.New("nil postgres pool")
	}
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, wrapPgError(err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return wrapPgError(err)
	}
	return nil
}

func wrapPgError(err error) error {
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UndefinedTableCode {
		return fmt.Errorf("kv table missing (EnsureSchema not run): %w", err)
	}
	return err
}
