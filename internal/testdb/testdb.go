// AngelaMos | 2026
// testdb.go

// Package testdb opens the Postgres database used by repository
// integration tests. Tests skip when TEST_DATABASE_URL is unset.
package testdb

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/community-api/internal/config"
	"github.com/carterperez-dev/community-api/internal/core"
	"github.com/carterperez-dev/community-api/migrations"
)

var errMissingURL = errors.New("missing TEST_DATABASE_URL")

var (
	once  sync.Once
	db    *core.Database
	dbErr error
)

func DB(tb testing.TB) *core.Database {
	tb.Helper()

	once.Do(func() {
		url := os.Getenv("TEST_DATABASE_URL")
		if url == "" {
			dbErr = errMissingURL
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, dbErr = core.NewDatabase(ctx, config.DatabaseConfig{
			URL:             url,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
		})
		if dbErr != nil {
			return
		}

		dbErr = core.Migrate(ctx, db.DB, migrations.FS)
	})

	if errors.Is(dbErr, errMissingURL) {
		tb.Skip("set TEST_DATABASE_URL to run repository integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("init test db: %v", dbErr)
	}
	return db
}

// SeedUser inserts an account with a unique username derived from prefix
// and returns its id and username.
func SeedUser(tb testing.TB, d core.DBTX, prefix, role, status string) (string, string) {
	tb.Helper()

	id := uuid.New().String()
	username := prefix + "_" + id[:8]
	_, err := d.ExecContext(context.Background(), `
		INSERT INTO users (id, email, username, password_hash, display_name, role, status)
		VALUES ($1, $2, $3, 'x', $3, $4, $5)`,
		id, username+"@test.local", username, role, status)
	if err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return id, username
}

func SeedSpace(tb testing.TB, d core.DBTX, creatorID, visibility string) string {
	tb.Helper()

	id := uuid.New().String()
	_, err := d.ExecContext(context.Background(), `
		INSERT INTO spaces (id, name, slug, visibility, creator_id)
		VALUES ($1, $2, $2, $3, $4)`,
		id, "space-"+id[:8], visibility, creatorID)
	if err != nil {
		tb.Fatalf("seed space: %v", err)
	}
	return id
}
