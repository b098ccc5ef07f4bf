// Package testhelpers spins up disposable Postgres/Redis containers for
// integration tests, grounded on the teacher's testhelpers package
// (container + migration-apply + truncate-between-tests shape), adapted to
// the settlement gateway's schema and to the dedicated testcontainers-go
// database modules rather than a hand-rolled GenericContainer.
package testhelpers

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/deltran/settlement-gateway/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDatabase wraps a running Postgres container with the config needed to
// connect to it and a Cleanup that terminates the container.
type TestDatabase struct {
	container *postgres.PostgresContainer
	Config    *config.DatabaseConfig
}

func SetupTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Name:            "testdb",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}

	return &TestDatabase{container: container, Config: cfg}
}

func (td *TestDatabase) Cleanup(t *testing.T) {
	require.NoError(t, td.container.Terminate(context.Background()))
}

// MigrationSQL returns the init schema so a caller holding the pgx pool can
// apply it without this package depending on pgx directly.
func MigrationSQL(t *testing.T) string {
	root := projectRoot()
	path := filepath.Join(root, "db", "migrations", "001_init.up.sql")
	raw, err := os.ReadFile(path) //nolint:gosec // test helper, controlled path
	require.NoError(t, err, "read migration file from %s", path)
	return string(raw)
}

func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Dir(filepath.Dir(filepath.Dir(filename)))
}
