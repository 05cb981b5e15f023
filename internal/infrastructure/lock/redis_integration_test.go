//go:build integration

package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func newRedisConfig(t *testing.T) config.RedisConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return config.RedisConfig{Enabled: true, Host: host, Port: port.Int()}
}

func TestRedisLocker(t *testing.T) {
	client, err := NewRedisClient(newRedisConfig(t))
	require.NoError(t, err)
	defer client.Close()

	locker := NewRedisLocker(client, config.LockConfig{
		TTL:        2 * time.Second,
		RetryCount: 2,
		RetryDelay: 10 * time.Millisecond,
	}, zap.NewNop())
	ctx := context.Background()

	lock, err := locker.Obtain(ctx, "pharmacy:lock:draft:1")
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, "pharmacy:lock:draft:1")
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

	require.NoError(t, lock.Release(ctx))
	require.NoError(t, lock.Release(ctx))

	again, err := locker.Obtain(ctx, "pharmacy:lock:draft:1")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}
