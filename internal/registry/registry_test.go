package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opizontas/grpc-gateway/internal/logging"
)

func testRegistry(t *testing.T, timeout time.Duration) *Registry {
	t.Helper()
	logger, err := logging.NewLogger(&logging.Config{
		Level:      logging.LevelError,
		File:       filepath.Join(t.TempDir(), "test.log"),
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)
	return New(timeout, logger)
}

func TestRegisterAndLookup(t *testing.T) {
	r := testRegistry(t, time.Minute)

	r.Register("10.0.0.1:50052", []string{"chat.api", "chat.rooms"})

	addr, ok := r.HealthyAddress("chat.api")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1:50052", addr)

	services := r.HealthyServices()
	assert.Len(t, services, 2)
	assert.Equal(t, 2, r.ServiceCount())
	assert.Equal(t, 2, r.InstanceCount())
}

func TestRegisterUpsertsByAddress(t *testing.T) {
	r := testRegistry(t, time.Minute)

	r.Register("10.0.0.1:50052", []string{"chat.api"})
	r.Register("10.0.0.1:50052", []string{"chat.api"})

	assert.Equal(t, 1, r.InstanceCount(), "same address must upsert, not duplicate")
}

func TestTunneledInstancesAreNotDialable(t *testing.T) {
	r := testRegistry(t, time.Minute)

	r.UpsertInstance("chat.api", "conn-1", "")

	_, ok := r.HealthyAddress("chat.api")
	assert.False(t, ok, "tunneled instances have no dialable address")
	assert.Empty(t, r.HealthyServices())
	assert.Equal(t, 1, r.InstanceCount())
}

func TestUpdateHealthAffectsAllInstances(t *testing.T) {
	r := testRegistry(t, time.Minute)

	r.Register("10.0.0.1:50052", []string{"chat.api"})
	r.Register("10.0.0.2:50052", []string{"chat.api"})

	require.True(t, r.UpdateHealth("chat.api", Unhealthy))
	_, ok := r.HealthyAddress("chat.api")
	assert.False(t, ok)

	require.True(t, r.UpdateHealth("chat.api", Healthy))
	_, ok = r.HealthyAddress("chat.api")
	assert.True(t, ok)

	assert.False(t, r.UpdateHealth("billing.api", Healthy), "unknown service")
}

func TestUnregisterAndRemoveInstance(t *testing.T) {
	r := testRegistry(t, time.Minute)

	r.Register("10.0.0.1:50052", []string{"chat.api"})
	r.UpsertInstance("chat.api", "conn-1", "")

	r.RemoveInstance("chat.api", "conn-1")
	assert.Equal(t, 1, r.InstanceCount())

	// Removing the last instance prunes the service entry.
	r.RemoveInstance("chat.api", "10.0.0.1:50052")
	assert.Equal(t, 0, r.ServiceCount())

	r.Register("10.0.0.1:50052", []string{"chat.api"})
	assert.True(t, r.Unregister("chat.api"))
	assert.False(t, r.Unregister("chat.api"))
}

func TestTouchInstanceAcrossServices(t *testing.T) {
	r := testRegistry(t, time.Minute)

	r.UpsertInstance("chat.api", "conn-1", "")
	r.UpsertInstance("chat.rooms", "conn-1", "")

	assert.True(t, r.TouchInstance("conn-1"))
	assert.False(t, r.TouchInstance("conn-2"))
}

func TestSweepExpiredPrunesEmptyServices(t *testing.T) {
	r := testRegistry(t, 10*time.Millisecond)

	r.Register("10.0.0.1:50052", []string{"chat.api"})
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, r.SweepExpired(time.Now()))
	assert.Equal(t, 0, r.ServiceCount())
}
