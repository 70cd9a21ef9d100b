// Package registry keeps the in-memory map of service names to backend
// instances. Forward-routed instances are keyed by their address; tunneled
// instances are keyed by their connection id and carry no dialable address.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/opizontas/grpc-gateway/internal/logging"
)

// HealthStatus of a single service instance.
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Unhealthy HealthStatus = "unhealthy"
	Unknown   HealthStatus = "unknown"
)

// Instance is one backend process serving a service.
type Instance struct {
	Address       string
	LastHeartbeat time.Time
	Health        HealthStatus
}

// Registry maps service name -> instance id -> instance. All state is
// in-memory; nothing survives a restart.
type Registry struct {
	mu       sync.RWMutex
	services map[string]map[string]*Instance

	heartbeatTimeout time.Duration
	logger           *logging.Logger
}

func New(heartbeatTimeout time.Duration, logger *logging.Logger) *Registry {
	return &Registry{
		services:         make(map[string]map[string]*Instance),
		heartbeatTimeout: heartbeatTimeout,
		logger:           logger,
	}
}

// Register upserts one instance per service, keyed by address.
func (r *Registry) Register(address string, services []string) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range services {
		instances, ok := r.services[name]
		if !ok {
			instances = make(map[string]*Instance)
			r.services[name] = instances
		}
		instances[address] = &Instance{
			Address:       address,
			LastHeartbeat: now,
			Health:        Healthy,
		}
	}

	r.logger.Info("Registered %d service(s) at %s", len(services), address)
}

// UpsertInstance records a tunneled instance keyed by its connection id.
// The address may be empty; such instances are never candidates for
// forward routing.
func (r *Registry) UpsertInstance(service, instanceID, address string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instances, ok := r.services[service]
	if !ok {
		instances = make(map[string]*Instance)
		r.services[service] = instances
	}
	instances[instanceID] = &Instance{
		Address:       address,
		LastHeartbeat: time.Now(),
		Health:        Healthy,
	}
}

// RemoveInstance drops one instance and prunes the service entry when it
// was the last one.
func (r *Registry) RemoveInstance(service, instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instances, ok := r.services[service]
	if !ok {
		return
	}
	delete(instances, instanceID)
	if len(instances) == 0 {
		delete(r.services, service)
	}
}

// TouchInstance refreshes the heartbeat of one instance across all services
// it serves. Returns true when at least one instance matched.
func (r *Registry) TouchInstance(instanceID string) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	touched := false
	for _, instances := range r.services {
		if inst, ok := instances[instanceID]; ok {
			inst.LastHeartbeat = now
			touched = true
		}
	}
	return touched
}

// HealthyAddress returns the address of the first healthy, dialable
// instance of the service.
func (r *Registry) HealthyAddress(service string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inst := range r.services[service] {
		if inst.Health == Healthy && inst.Address != "" {
			return inst.Address, true
		}
	}
	return "", false
}

// HealthyServices returns service name -> address for every service with at
// least one healthy dialable instance.
func (r *Registry) HealthyServices() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.services))
	for name, instances := range r.services {
		for _, inst := range instances {
			if inst.Health == Healthy && inst.Address != "" {
				out[name] = inst.Address
				break
			}
		}
	}
	return out
}

// UpdateHealth sets the health of every instance of the service. Returns
// false when the service is unknown.
func (r *Registry) UpdateHealth(service string, health HealthStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	instances, ok := r.services[service]
	if !ok {
		return false
	}
	for _, inst := range instances {
		inst.Health = health
	}
	return true
}

// Unregister removes the service and all its instances.
func (r *Registry) Unregister(service string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.services[service]
	delete(r.services, service)
	return ok
}

// ServiceCount returns the number of known services.
func (r *Registry) ServiceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}

// InstanceCount returns the number of known instances across all services.
func (r *Registry) InstanceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, instances := range r.services {
		n += len(instances)
	}
	return n
}

// SweepExpired removes instances whose heartbeat is older than the
// heartbeat timeout and prunes services left without instances. Returns
// the number of instances removed.
func (r *Registry) SweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for name, instances := range r.services {
		for id, inst := range instances {
			if now.Sub(inst.LastHeartbeat) > r.heartbeatTimeout {
				delete(instances, id)
				removed++
				r.logger.Warn("Expired instance %s of service %s", id, name)
			}
		}
		if len(instances) == 0 {
			delete(r.services, name)
		}
	}
	return removed
}

// StartSweeper runs SweepExpired every interval until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := r.SweepExpired(now); n > 0 {
					r.logger.Info("Registry sweep removed %d expired instance(s)", n)
				}
			}
		}
	}()
}
