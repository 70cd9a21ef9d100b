package router

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opizontas/grpc-gateway/internal/config"
	"github.com/opizontas/grpc-gateway/internal/logging"
)

type fakeConn struct {
	addr      string
	canTake   bool
	roundErr  error
	roundTrip int64
	closed    atomic.Bool
}

func (f *fakeConn) RoundTrip(*http.Request) (*http.Response, error) {
	atomic.AddInt64(&f.roundTrip, 1)
	if f.roundErr != nil {
		return nil, f.roundErr
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func (f *fakeConn) CanTakeNewRequest() bool { return f.canTake }

func (f *fakeConn) Close() error {
	f.closed.Store(true)
	return nil
}

func testPool(t *testing.T, cfg config.PoolConfig) (*ForwardPool, *[]*fakeConn) {
	t.Helper()
	logger, err := logging.NewLogger(&logging.Config{
		Level:      logging.LevelError,
		File:       filepath.Join(t.TempDir(), "test.log"),
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)

	p := NewForwardPool(cfg, logger)
	dialed := &[]*fakeConn{}
	p.dial = func(_ context.Context, addr string) (h2Conn, error) {
		c := &fakeConn{addr: addr, canTake: true}
		*dialed = append(*dialed, c)
		return c, nil
	}
	return p, dialed
}

func poolConfig() config.PoolConfig {
	return config.PoolConfig{MaxConnections: 2, ConnectionTTL: 300, IdleTimeout: 60, CleanupInterval: 30}
}

func TestPoolReusesConnections(t *testing.T) {
	p, dialed := testPool(t, poolConfig())
	ctx := context.Background()

	req := func() *http.Request {
		r, err := http.NewRequest(http.MethodPost, "http://backend/chat.Service/Say", http.NoBody)
		require.NoError(t, err)
		return r
	}

	resp, err := p.RoundTrip(ctx, req(), "10.0.0.1:50052")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = p.RoundTrip(ctx, req(), "10.0.0.1:50052")
	require.NoError(t, err)

	require.Len(t, *dialed, 1, "second request must reuse the cached connection")
	assert.Equal(t, int64(2), (*dialed)[0].roundTrip)

	stats := p.Stats()
	assert.Equal(t, 1, stats.ActiveConnections)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ConnectionsCreated)
}

func TestPoolEvictsOldestAtCapacity(t *testing.T) {
	p, dialed := testPool(t, poolConfig())
	ctx := context.Background()

	for _, addr := range []string{"a:1", "b:1", "c:1"} {
		_, err := p.get(ctx, addr)
		require.NoError(t, err)
		// Distinct createdAt so the eviction order is deterministic.
		time.Sleep(time.Millisecond)
	}

	stats := p.Stats()
	assert.Equal(t, 2, stats.ActiveConnections)
	assert.Equal(t, int64(1), stats.ConnectionsEvicted)

	// The first dialed connection was the oldest and must be the one closed.
	assert.Eventually(t, func() bool { return (*dialed)[0].closed.Load() }, time.Second, 5*time.Millisecond)
	assert.False(t, (*dialed)[2].closed.Load())
}

func TestPoolDiscardsFailedConnections(t *testing.T) {
	p, dialed := testPool(t, poolConfig())
	ctx := context.Background()

	_, err := p.get(ctx, "a:1")
	require.NoError(t, err)
	(*dialed)[0].roundErr = errors.New("connection reset")

	req, err := http.NewRequest(http.MethodPost, "http://backend/chat.Service/Say", http.NoBody)
	require.NoError(t, err)

	_, err = p.RoundTrip(ctx, req, "a:1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForwarding))

	// The failed connection is gone; the next request dials fresh.
	_, err = p.get(ctx, "a:1")
	require.NoError(t, err)
	assert.Len(t, *dialed, 2)
}

func TestPoolReplacesSaturatedConnections(t *testing.T) {
	p, dialed := testPool(t, poolConfig())
	ctx := context.Background()

	_, err := p.get(ctx, "a:1")
	require.NoError(t, err)

	// MAX_CONCURRENT_STREAMS exhausted: the cached connection refuses new
	// requests and must be replaced.
	(*dialed)[0].canTake = false

	_, err = p.get(ctx, "a:1")
	require.NoError(t, err)
	require.Len(t, *dialed, 2)
	assert.Eventually(t, func() bool { return (*dialed)[0].closed.Load() }, time.Second, 5*time.Millisecond)
}

func TestPoolSweepExpired(t *testing.T) {
	p, dialed := testPool(t, poolConfig())
	ctx := context.Background()

	_, err := p.get(ctx, "a:1")
	require.NoError(t, err)

	assert.Equal(t, 0, p.SweepExpired(time.Now()))

	// Past the TTL every entry is stale.
	n := p.SweepExpired(time.Now().Add(301 * time.Second))
	assert.Equal(t, 1, n)
	assert.True(t, (*dialed)[0].closed.Load())

	stats := p.Stats()
	assert.Equal(t, 0, stats.ActiveConnections)
	assert.Equal(t, int64(1), stats.ConnectionsExpired)
}

func TestPoolClose(t *testing.T) {
	p, dialed := testPool(t, poolConfig())
	ctx := context.Background()

	_, err := p.get(ctx, "a:1")
	require.NoError(t, err)
	_, err = p.get(ctx, "b:1")
	require.NoError(t, err)

	p.Close()

	for _, c := range *dialed {
		assert.True(t, c.closed.Load())
	}
	assert.Equal(t, 0, p.Stats().ActiveConnections)
}
