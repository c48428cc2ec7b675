package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/wordrace/internal/config"
	"github.com/cory-johannsen/wordrace/internal/storage/postgres"
	"github.com/cory-johannsen/wordrace/internal/testutil"
)

func TestPool_HealthAndApplicationName(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in -short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	ctx := context.Background()

	require.NoError(t, pc.Pool.Health(ctx, time.Second))

	var name string
	require.NoError(t, pc.RawPool.QueryRow(ctx, "SELECT current_setting('application_name')").Scan(&name))
	assert.Equal(t, "wordrace", name)
}

func TestNewPool_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := postgres.NewPool(ctx, config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "u", Password: "p", Name: "db", SSLMode: "disable",
	})
	assert.Error(t, err)
}
