//go:build integration

package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/database"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/domain"
)

func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "faceauth_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/faceauth_test?sslmode=disable", host, port.Port())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Connect(ctx, database.DefaultPoolConfig(connStr), logger)
	require.NoError(t, err)

	require.NoError(t, database.MigrateUp(db))

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func TestUserRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewUserRepository(db)

	require.NoError(t, repo.Ping(ctx))

	users, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	for i, name := range []string{"carol", "alice", "bob"} {
		err := repo.Insert(ctx, &domain.User{Name: name, Embedding: testDescriptor(float64(i) / 10)})
		require.NoError(t, err)
		// created_at decides order
		time.Sleep(5 * time.Millisecond)
	}

	err = repo.Insert(ctx, &domain.User{Name: "alice", Embedding: testDescriptor(0.9)})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	exists, err := repo.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := repo.ListNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "alice", "bob"}, names)

	users, err = repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.InDelta(t, 0.1, users[1].Embedding[0], 1e-6)
	assert.InDelta(t, 0.2, users[2].Embedding[127], 1e-6)

	require.NoError(t, repo.Delete(ctx, "alice"))
	assert.ErrorIs(t, repo.Delete(ctx, "alice"), domain.ErrUserNotFound)

	exists, err = repo.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}
