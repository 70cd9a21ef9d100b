// Package tunnel implements the reverse connection layer: established
// tunnels indexed by connection id and by announced service, round-robin
// service pools, pending-request correlation, streamed-response reassembly
// and the periodic cleanup sweeps.
package tunnel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opizontas/grpc-gateway/internal/logging"
	"github.com/opizontas/grpc-gateway/internal/proto"
	"github.com/opizontas/grpc-gateway/internal/registry"
)

// maxTunneledBodySize caps request bodies collected for tunnel dispatch.
const maxTunneledBodySize = 100 << 20 // 100 MiB

// pendingRequest is the single-shot response sink for one in-flight
// request. deliver and drop race through the sync.Once: whichever runs
// first wins, the loser is a no-op.
type pendingRequest struct {
	id        string
	createdAt time.Time
	ch        chan *proto.ForwardResponse
	once      sync.Once
}

func newPendingRequest(id string) *pendingRequest {
	return &pendingRequest{
		id:        id,
		createdAt: time.Now(),
		ch:        make(chan *proto.ForwardResponse, 1),
	}
}

func (p *pendingRequest) deliver(resp *proto.ForwardResponse) {
	p.once.Do(func() {
		p.ch <- resp
		close(p.ch)
	})
}

// drop closes the sink without a response; the waiter observes a closed
// channel.
func (p *pendingRequest) drop() {
	p.once.Do(func() {
		close(p.ch)
	})
}

// Manager owns the two tunnel indices (by connection id and by service
// name), the pending-request table and the streamed-response handlers.
// Both indices are mutated under one lock so they never disagree about
// which tunnels exist.
type Manager struct {
	mu        sync.RWMutex
	byID      map[string]*Connection
	byService map[string]*Pool

	pendingMu sync.Mutex
	pending   map[string]*pendingRequest

	streamsMu sync.Mutex
	streams   map[string]*streamHandler

	heartbeatTimeout time.Duration
	requestTimeout   time.Duration
	cleanupInterval  time.Duration
	maxPending       int

	registry *registry.Registry
	logger   *logging.Logger
}

// NewManager wires a manager against the registry (may be nil in tests).
func NewManager(heartbeatTimeout, requestTimeout, cleanupInterval time.Duration, maxPending int, reg *registry.Registry, logger *logging.Logger) *Manager {
	return &Manager{
		byID:             make(map[string]*Connection),
		byService:        make(map[string]*Pool),
		pending:          make(map[string]*pendingRequest),
		streams:          make(map[string]*streamHandler),
		heartbeatTimeout: heartbeatTimeout,
		requestTimeout:   requestTimeout,
		cleanupInterval:  cleanupInterval,
		maxPending:       maxPending,
		registry:         reg,
		logger:           logger,
	}
}

// RegisterConnection creates a tunnel record under id, inserts it into both
// indices and upserts a registry instance per announced service. A tunnel
// re-registering under the same id replaces the previous record.
func (m *Manager) RegisterConnection(id string, services []string) *Connection {
	conn := newConnection(id, services)

	m.mu.Lock()
	if old, ok := m.byID[id]; ok {
		for _, svc := range old.Services {
			if pool, ok := m.byService[svc]; ok {
				pool.Remove(id)
				if pool.Empty() {
					delete(m.byService, svc)
				}
			}
		}
		old.Close()
		m.logger.Warn("Replacing existing tunnel %s", id)
	}
	m.byID[id] = conn
	for _, svc := range services {
		pool, ok := m.byService[svc]
		if !ok {
			pool = newPool()
			m.byService[svc] = pool
		}
		if replaced := pool.Add(conn); replaced != nil && replaced != conn {
			replaced.Close()
		}
	}
	m.mu.Unlock()

	if m.registry != nil {
		for _, svc := range services {
			m.registry.UpsertInstance(svc, id, "")
		}
	}

	m.logger.Info("Registered tunnel %s serving %s", id, strings.Join(services, ", "))
	return conn
}

// UnregisterConnection detaches the tunnel from both indices, prunes empty
// pools and removes its registry instances.
func (m *Manager) UnregisterConnection(id string) {
	m.mu.Lock()
	conn, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return
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
	m.mu.Unlock()

	conn.Close()
	if m.registry != nil {
		for _, svc := range conn.Services {
			m.registry.RemoveInstance(svc, id)
		}
	}

	m.logger.Info("Unregistered tunnel %s", id)
}

// Connection returns the tunnel with the given id.
func (m *Manager) Connection(id string) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.byID[id]
	return conn, ok
}

func (m *Manager) pool(service string) *Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byService[service]
}

// Heartbeat refreshes the tunnel with the given connection id. Unknown ids
// fall back to a legacy path where clients send their service name instead
// of the connection id; everything else gets a shape-specific diagnostic.
func (m *Manager) Heartbeat(id string) {
	if id == "" {
		m.logger.Error("Heartbeat with empty connection id")
		return
	}

	if conn, ok := m.Connection(id); ok {
		conn.Touch()
		if m.registry != nil {
			m.registry.TouchInstance(id)
		}
		return
	}

	// Legacy clients heartbeat with their service name. Refresh one fresh
	// tunnel of that pool so it is not swept while clearly alive.
	if pool := m.pool(id); pool != nil {
		if fresh := pool.Fresh(m.heartbeatTimeout); len(fresh) > 0 {
			conn := fresh[0]
			conn.Touch()
			if m.registry != nil {
				m.registry.TouchInstance(conn.ID)
			}
			m.logger.Error("Heartbeat addressed by service name %q; refreshed tunnel %s. Client should send its connection id", id, conn.ID)
			return
		}
	}

	if !isCanonicalUUID(id) {
		m.logger.Error("Heartbeat with malformed connection id %q", id)
		return
	}
	m.logger.Warn("Heartbeat for unknown connection %s (already swept or never registered)", id)
}

// Resolve picks a fresh tunnel for the service: the exact name first, then
// progressively shorter dotted prefixes ("a.b.c" -> "a.b" -> "a").
func (m *Manager) Resolve(service string) *Connection {
	if pool := m.pool(service); pool != nil {
		if conn := pool.Next(m.heartbeatTimeout); conn != nil {
			return conn
		}
	}

	parts := strings.Split(service, ".")
	for i := len(parts) - 1; i >= 1; i-- {
		prefix := strings.Join(parts[:i], ".")
		if pool := m.pool(prefix); pool != nil {
			if conn := pool.Next(m.heartbeatTimeout); conn != nil {
				m.logger.Debug("Resolved %s via prefix %s (tunnel %s)", service, prefix, conn.ID)
				return conn
			}
		}
	}
	return nil
}

// HasConnection reports whether a fresh tunnel serves the service, directly
// or via a dotted-prefix fallback. The round-robin cursor does not move.
func (m *Manager) HasConnection(service string) bool {
	if pool := m.pool(service); pool != nil && pool.HasFresh(m.heartbeatTimeout) {
		return true
	}
	parts := strings.Split(service, ".")
	for i := len(parts) - 1; i >= 1; i-- {
		if pool := m.pool(strings.Join(parts[:i], ".")); pool != nil && pool.HasFresh(m.heartbeatTimeout) {
			return true
		}
	}
	return false
}

func (m *Manager) addPending(id string) (*pendingRequest, error) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	if len(m.pending) >= m.maxPending {
		return nil, fmt.Errorf("%w: %d in flight", ErrTooManyPendingRequests, len(m.pending))
	}
	p := newPendingRequest(id)
	m.pending[id] = p
	return p, nil
}

func (m *Manager) removePending(id string) {
	m.pendingMu.Lock()
	delete(m.pending, id)
	m.pendingMu.Unlock()
}

// takePending removes and returns the pending entry, if any. Used by
// response delivery so each sink is consumed exactly once.
func (m *Manager) takePending(id string) *pendingRequest {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	p, ok := m.pending[id]
	if !ok {
		return nil
	}
	delete(m.pending, id)
	return p
}

// SendRequest dispatches a unary request over a resolved tunnel and waits
// for the correlated response.
func (m *Manager) SendRequest(ctx context.Context, service, methodPath string, headers map[string]string, payload []byte) (*proto.ForwardResponse, error) {
	return m.SendRequestWithID(ctx, uuid.NewString(), service, methodPath, headers, payload)
}

// SendRequestWithID is SendRequest with a caller-chosen request id, used
// when relaying service-to-service calls so the original id is preserved.
func (m *Manager) SendRequestWithID(ctx context.Context, requestID, service, methodPath string, headers map[string]string, payload []byte) (*proto.ForwardResponse, error) {
	conn := m.Resolve(service)
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoReverseConnection, service)
	}

	p, err := m.addPending(requestID)
	if err != nil {
		return nil, err
	}

	req := &proto.ForwardRequest{
		RequestId:      requestID,
		MethodPath:     methodPath,
		Headers:        headers,
		Payload:        payload,
		TimeoutSeconds: int32(m.requestTimeout / time.Second),
		StreamingInfo: &proto.StreamingInfo{
			StreamType:  proto.StreamType_UNARY,
			IsStreamEnd: true,
		},
	}
	if err := conn.Send(&proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Request{Request: req},
	}); err != nil {
		m.removePending(requestID)
		return nil, fmt.Errorf("%w: %v", ErrTunnelSendFailed, err)
	}

	return m.awaitResponse(ctx, requestID, p)
}

// SendRequestStream collects a request body (bounded) and dispatches it as
// a single tunneled request.
func (m *Manager) SendRequestStream(ctx context.Context, service, methodPath string, headers map[string]string, body io.Reader) (*proto.ForwardResponse, error) {
	payload, err := io.ReadAll(io.LimitReader(body, maxTunneledBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(payload) > maxTunneledBodySize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, maxTunneledBodySize)
	}
	return m.SendRequest(ctx, service, methodPath, headers, payload)
}

// SendChunkedRequest dispatches a client-streaming request as a sequence of
// frames sharing one request id; the final frame carries is_stream_end. One
// correlated response is awaited.
func (m *Manager) SendChunkedRequest(ctx context.Context, service, methodPath string, headers map[string]string, chunks [][]byte, streamType proto.StreamType) (*proto.ForwardResponse, error) {
	conn := m.Resolve(service)
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoReverseConnection, service)
	}

	requestID := uuid.NewString()
	p, err := m.addPending(requestID)
	if err != nil {
		return nil, err
	}

	for i, chunk := range chunks {
		req := &proto.ForwardRequest{
			RequestId:      requestID,
			MethodPath:     methodPath,
			Payload:        chunk,
			TimeoutSeconds: int32(m.requestTimeout / time.Second),
			StreamingInfo: &proto.StreamingInfo{
				StreamType:     streamType,
				IsStreamEnd:    i == len(chunks)-1,
				SequenceNumber: int64(i),
				ChunkSize:      int64(len(chunk)),
			},
		}
		if i == 0 {
			req.Headers = headers
		}
		if err := conn.Send(&proto.ConnectionMessage{
			MessageType: &proto.ConnectionMessage_Request{Request: req},
		}); err != nil {
			m.removePending(requestID)
			return nil, fmt.Errorf("%w: %v", ErrTunnelSendFailed, err)
		}
	}

	return m.awaitResponse(ctx, requestID, p)
}

func (m *Manager) awaitResponse(ctx context.Context, requestID string, p *pendingRequest) (*proto.ForwardResponse, error) {
	timer := time.NewTimer(m.requestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-p.ch:
		if !ok {
			m.removePending(requestID)
			return nil, ErrResponseChannelClosed
		}
		return resp, nil
	case <-timer.C:
		m.removePending(requestID)
		return nil, fmt.Errorf("%w after %s: request %s", ErrRequestTimeout, m.requestTimeout, requestID)
	case <-ctx.Done():
		m.removePending(requestID)
		return nil, ctx.Err()
	}
}

// Stats is the admin-facing view of manager state.
type Stats struct {
	ActiveConnections int            `json:"active_connections"`
	Services          map[string]int `json:"services"`
	PendingRequests   int            `json:"pending_requests"`
	StreamHandlers    int            `json:"stream_handlers"`
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	services := make(map[string]int, len(m.byService))
	for name, pool := range m.byService {
		services[name] = pool.Len()
	}
	active := len(m.byID)
	m.mu.RUnlock()

	m.pendingMu.Lock()
	pending := len(m.pending)
	m.pendingMu.Unlock()

	m.streamsMu.Lock()
	handlers := len(m.streams)
	m.streamsMu.Unlock()

	return Stats{
		ActiveConnections: active,
		Services:          services,
		PendingRequests:   pending,
		StreamHandlers:    handlers,
	}
}

// ConnectionInfo is the admin-facing view of one tunnel.
type ConnectionInfo struct {
	ID            string    `json:"id"`
	Services      []string  `json:"services"`
	CreatedAt     time.Time `json:"created_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

func (m *Manager) Connections() []ConnectionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ConnectionInfo, 0, len(m.byID))
	for _, conn := range m.byID {
		out = append(out, ConnectionInfo{
			ID:            conn.ID,
			Services:      conn.Services,
			CreatedAt:     conn.CreatedAt,
			LastHeartbeat: conn.LastHeartbeat(),
		})
	}
	return out
}

// isCanonicalUUID reports whether s has the canonical 36-character dashed
// hex form. Used only for heartbeat diagnostics.
func isCanonicalUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, r := range s {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
			if !isHex {
				return false
			}
		}
	}
	return true
}
