//go:build integration

package api

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/database"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/mlclient"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/repository"
	"github.com/saturnino-fabrica-de-software/faceauth/internal/service"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	// Start PostgreSQL container with pgvector
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
	if err != nil {
		fmt.Printf("Failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	connStr := fmt.Sprintf("postgres://test:test@%s:%s/faceauth_test?sslmode=disable", host, port.Port())

	testDB, err = database.Connect(ctx, database.DefaultPoolConfig(connStr), testLogger())
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	if err := database.MigrateUp(testDB); err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		testDB.Close()
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	if err := container.Terminate(ctx); err != nil {
		fmt.Printf("Failed to terminate container: %v\n", err)
	}
	os.Exit(code)
}

func TestIntegration_PostgresStore(t *testing.T) {
	ml := httptest.NewServer(adaptor.FiberApp(newModelRouter(true).App()))
	defer ml.Close()

	logger := testLogger()
	client := mlclient.NewClient(mlclient.Config{BaseURL: ml.URL, Timeout: 5 * time.Second})
	svc := service.NewUserService(repository.NewUserRepository(testDB), client, audit.NewSlogLogger(logger), logger)

	router := NewDatabaseRouter(logger, &DatabaseDependencies{
		Users:     svc,
		Health:    handler.NewHealthHandler("Database service is running", nil, svc.Health),
		RateLimit: middleware.DefaultRateLimiterConfig(),
	})
	router.Setup()
	defer func() {
		_ = router.Shutdown()
	}()
	app := router.App()

	alice := faceImage(t, 11, false)

	resp, err := app.Test(addUserRequest(t, "Alice", alice), -1)
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, resp)["is_saved"])

	resp, err = app.Test(addUserRequest(t, "dave", faceImage(t, 40, false)), -1)
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, resp)["is_saved"])

	resp, err = app.Test(httptest.NewRequest("GET", "/getAllUsers", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"alice", "dave"}, decode(t, resp)["user_names"])

	resp, err = app.Test(authenticateRequest(alice, nil), -1)
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, true, body["is_authenticated"])
	assert.Equal(t, "alice", body["user_name"])

	resp, err = app.Test(httptest.NewRequest("DELETE", "/deleteUser/alice", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, resp)["is_deleted"])

	resp, err = app.Test(httptest.NewRequest("GET", "/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
