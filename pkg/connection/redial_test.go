package connection_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolt-protocol/bolt-go/internal/testserver"
	"github.com/bolt-protocol/bolt-go/pkg/connection"
	"github.com/bolt-protocol/bolt-go/pkg/version"
)

func fastBackoff() connection.BackoffConfig {
	return connection.BackoffConfig{
		Initial: 5 * time.Millisecond,
		Max:     20 * time.Millisecond,
	}
}

func TestRedialerConnectsFirstTry(t *testing.T) {
	srv := startServer(t, testserver.Config{})

	r := connection.NewRedialer(srv.Addr(), connection.RedialerConfig{
		Connection: connection.DefaultConfig(),
		Backoff:    fastBackoff(),
	})

	conn, err := r.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, connection.StateReady, conn.State())
	assert.Equal(t, 0, r.Attempts())
}

func TestRedialerRetriesUntilServerAppears(t *testing.T) {
	// Reserve an address with no listener behind it yet.
	srv := startServer(t, testserver.Config{})
	addr := srv.Addr()
	srv.Close()

	cfg := connection.DefaultConfig()
	cfg.Transport.ConnectTimeout = 100 * time.Millisecond
	r := connection.NewRedialer(addr, connection.RedialerConfig{
		Connection:  cfg,
		Backoff:     fastBackoff(),
		MaxAttempts: 3,
	})

	_, err := r.Dial(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, connection.ErrMaxAttempts)
}

func TestRedialerDoesNotRetryVersionMismatch(t *testing.T) {
	srv := startServer(t, testserver.Config{
		Supported: []version.ProtocolVersion{{Major: 9, Minor: 9}},
	})

	r := connection.NewRedialer(srv.Addr(), connection.RedialerConfig{
		Connection: connection.DefaultConfig(),
		Backoff:    fastBackoff(),
	})

	start := time.Now()
	_, err := r.Dial(context.Background())
	require.ErrorIs(t, err, connection.ErrNoCompatibleVersion)
	// A single attempt, no backoff sleeps.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRedialerHonorsContextCancel(t *testing.T) {
	srv := startServer(t, testserver.Config{})
	addr := srv.Addr()
	srv.Close()

	cfg := connection.DefaultConfig()
	cfg.Transport.ConnectTimeout = 50 * time.Millisecond
	r := connection.NewRedialer(addr, connection.RedialerConfig{
		Connection: cfg,
		Backoff: connection.BackoffConfig{
			Initial: 10 * time.Second, // would stall without cancellation
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := r.Dial(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
