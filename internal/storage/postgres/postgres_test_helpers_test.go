package postgres

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway postgres container with the schema applied.
// Skipped under -short since it needs a docker daemon.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	container, err := testpostgres.Run(ctx,
		"docker.io/postgres:16-alpine",
		testpostgres.WithDatabase("vitalpages_test"),
		testpostgres.WithUsername("vitalpages"),
		testpostgres.WithPassword("vitalpages"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "start postgres container")

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrationsPath := filepath.Join(projectRoot(), DefaultMigrationsPath)
	require.NoError(t, MigrateUp(dbURL, migrationsPath))

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		cancel()
		_ = container.Terminate(context.Background())
	})
	return pool
}

func projectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..")
}
