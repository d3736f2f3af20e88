package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/family-health/internal/adapters/postgres"
)

// OpenPool connects to DATABASE_URL, skipping the test when it is unset.
func OpenPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping postgres tests")
	}
	pool, err := postgres.NewPool(context.Background(), dsn, postgres.PoolOptions{MaxConns: 4})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
