//go:build integration

// Package dbtest starts a disposable PostgreSQL container for repository
// integration tests:
//
//	go test -tags integration ./database/...
package dbtest

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"flashsell-engine/database"
)

const postgresImage = "postgres:16-alpine"

// SkipIfNoDocker skips the test when the Docker daemon is not reachable
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// NewDatabase starts PostgreSQL, initialises the schema and returns a
// connected Database. The container is terminated on test cleanup.
func NewDatabase(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.Connect(Start(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.InitSchema())
	return db
}

// Start starts PostgreSQL and returns its connection settings
func Start(t *testing.T) database.Config {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "flashsell",
				"POSTGRES_USER":     "flashsell",
				"POSTGRES_PASSWORD": "flashsell",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return database.Config{
		Host:     host,
		Port:     port.Port(),
		User:     "flashsell",
		Password: "flashsell",
		DBName:   "flashsell",
	}
}
