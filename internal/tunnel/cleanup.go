package tunnel

import (
	"context"
	"time"
)

// Start launches the periodic cleanup sweep. It stops when ctx is
// cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				conns := m.sweepConnections(now)
				pending := m.sweepPending(now)
				if conns > 0 || pending > 0 {
					m.logger.Info("Cleanup sweep: %d expired tunnel(s), %d stale pending request(s)", conns, pending)
				}
			}
		}
	}()
}

// sweepConnections detaches every tunnel whose heartbeat is older than the
// heartbeat timeout: both indices, empty-pool pruning and the registry
// instances.
func (m *Manager) sweepConnections(now time.Time) int {
	m.mu.Lock()
	var expired []*Connection
	for id, conn := range m.byID {
		if !conn.Expired(m.heartbeatTimeout, now) {
			continue
		}
		delete(m.byID, id)
		for _, svc := range conn.Services {
			if pool, ok := m.byService[svc]; ok {
				pool.Remove(id)
				if pool.Empty() {
					delete(m.byService, svc)
				}
			}
		}
		expired = append(expired, conn)
	}
	m.mu.Unlock()

	for _, conn := range expired {
		conn.Close()
		if m.registry != nil {
			for _, svc := range conn.Services {
				m.registry.RemoveInstance(svc, conn.ID)
			}
		}
		m.logger.Warn("Swept expired tunnel %s (last heartbeat %s)", conn.ID, conn.LastHeartbeat().Format(time.RFC3339))
	}
	return len(expired)
}

// sweepPending drops pending requests and stream handlers older than the
// request timeout. Their waiters have timed out already or will observe the
// closed sink.
func (m *Manager) sweepPending(now time.Time) int {
	var dropped []*pendingRequest

	m.pendingMu.Lock()
	for id, p := range m.pending {
		if now.Sub(p.createdAt) > m.requestTimeout {
			delete(m.pending, id)
			dropped = append(dropped, p)
		}
	}
	m.pendingMu.Unlock()

	m.streamsMu.Lock()
	for id, h := range m.streams {
		if now.Sub(h.createdAt) > m.requestTimeout {
			delete(m.streams, id)
			dropped = append(dropped, h.sink)
		}
	}
	m.streamsMu.Unlock()

	for _, p := range dropped {
		p.drop()
	}
	return len(dropped)
}
