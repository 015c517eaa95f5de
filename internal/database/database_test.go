package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sbilibin2017/culinary-connect/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestOpenAndMigrate_SQLite(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, config.DriverSQLite, ":memory:", Pool{})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db))

	var tables []string
	err = db.SelectContext(ctx, &tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'auth_tokens', 'recipes') ORDER BY name")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth_tokens", "recipes", "users"}, tables)

	var fk int
	require.NoError(t, db.GetContext(ctx, &fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)

	// running twice is a no-op
	assert.NoError(t, Migrate(ctx, db))
}

func TestOpen_SQLiteRejectsInvalidCheck(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, config.DriverSQLite, ":memory:", Pool{})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(ctx, db))

	_, err = db.ExecContext(ctx, `
		INSERT INTO recipes (title, description, ingredients, instructions, difficulty)
		VALUES ('t', 'd', 'i', 's', 'extreme')`)
	assert.Error(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	db, err := Open(context.Background(), "nope", "dsn", Pool{})
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestOpenAndMigrate_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "password", "POSTGRES_DB": "testdb", "POSTGRES_USER": "postgres"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer container.Terminate(ctx)

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://postgres:password@%s:%d/testdb?sslmode=disable", host, port.Int())

	var openErr error
	for i := 0; i < 10; i++ {
		db, err := Open(ctx, config.DriverPostgres, dsn, Pool{MaxOpenConns: 4, MaxIdleConns: 2})
		if err == nil {
			defer db.Close()
			require.NoError(t, Migrate(ctx, db))

			var count int
			require.NoError(t, db.GetContext(ctx, &count,
				"SELECT COUNT(*) FROM information_schema.tables WHERE table_name IN ('users', 'auth_tokens', 'recipes')"))
			assert.Equal(t, 3, count)
			return
		}
		openErr = err
		time.Sleep(time.Second)
	}
	t.Fatalf("postgres not reachable: %v", openErr)
}
