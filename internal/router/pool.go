package router

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"

	"github.com/opizontas/grpc-gateway/internal/config"
	"github.com/opizontas/grpc-gateway/internal/logging"
)

const dialTimeout = 10 * time.Second

// h2Conn is the slice of *http2.ClientConn the pool uses; tests substitute
// fakes through the dial field.
type h2Conn interface {
	RoundTrip(*http.Request) (*http.Response, error)
	CanTakeNewRequest() bool
	Close() error
}

// poolEntry is one cached cleartext HTTP/2 connection to a backend address.
type poolEntry struct {
	addr      string
	cc        h2Conn
	createdAt time.Time
	lastUsed  time.Time
	useCount  int64
}

// expired is TTL or idle, whichever fires first.
func (e *poolEntry) expired(ttl, idle time.Duration, now time.Time) bool {
	return now.Sub(e.createdAt) > ttl || now.Sub(e.lastUsed) > idle
}

// PoolStats are the forward pool's lifetime counters plus current size.
type PoolStats struct {
	ActiveConnections  int   `json:"active_connections"`
	CacheHits          int64 `json:"cache_hits"`
	CacheMisses        int64 `json:"cache_misses"`
	ConnectionsCreated int64 `json:"connections_created"`
	ConnectionsEvicted int64 `json:"connections_evicted"`
	ConnectionsExpired int64 `json:"connections_expired"`
}

// ForwardPool caches dialed HTTP/2 connections per backend address with a
// TTL, an idle timeout and a size cap (oldest connection evicted first).
type ForwardPool struct {
	mu      sync.Mutex
	entries map[string]*poolEntry

	dial func(ctx context.Context, addr string) (h2Conn, error)

	maxConnections  int
	ttl             time.Duration
	idle            time.Duration
	cleanupInterval time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	created atomic.Int64
	evicted atomic.Int64
	expired atomic.Int64

	logger *logging.Logger
}

func NewForwardPool(cfg config.PoolConfig, logger *logging.Logger) *ForwardPool {
	// Cleartext HTTP/2: dial plain TCP where TLS would normally happen.
	transport := &http2.Transport{AllowHTTP: true}

	p := &ForwardPool{
		entries:         make(map[string]*poolEntry),
		maxConnections:  cfg.MaxConnections,
		ttl:             cfg.ConnectionTTLDuration(),
		idle:            cfg.IdleTimeoutDuration(),
		cleanupInterval: cfg.CleanupIntervalDuration(),
		logger:          logger,
	}
	p.dial = func(ctx context.Context, addr string) (h2Conn, error) {
		hostport := strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "https://")

		dialer := &net.Dialer{Timeout: dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", hostport)
		if err != nil {
			return nil, err
		}
		cc, err := transport.NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return cc, nil
	}
	return p
}

// RoundTrip sends req over the cached connection for addr, dialing one on a
// cache miss. A connection that fails the round trip is discarded.
func (p *ForwardPool) RoundTrip(ctx context.Context, req *http.Request, addr string) (*http.Response, error) {
	cc, err := p.get(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrForwarding, addr, err)
	}

	resp, err := cc.RoundTrip(req)
	if err != nil {
		p.discard(addr, cc)
		return nil, fmt.Errorf("%w: %s: %v", ErrForwarding, addr, err)
	}
	return resp, nil
}

func (p *ForwardPool) get(ctx context.Context, addr string) (h2Conn, error) {
	now := time.Now()

	p.mu.Lock()
	if e, ok := p.entries[addr]; ok {
		switch {
		case e.expired(p.ttl, p.idle, now):
			delete(p.entries, addr)
			p.expired.Add(1)
			go e.cc.Close()
		case !e.cc.CanTakeNewRequest():
			delete(p.entries, addr)
			go e.cc.Close()
		default:
			e.lastUsed = now
			e.useCount++
			p.hits.Add(1)
			cc := e.cc
			p.mu.Unlock()
			return cc, nil
		}
	}
	p.misses.Add(1)
	p.mu.Unlock()

	cc, err := p.dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	// A concurrent miss may have dialed first; keep the cached one.
	if e, ok := p.entries[addr]; ok && e.cc.CanTakeNewRequest() {
		e.lastUsed = time.Now()
		e.useCount++
		cached := e.cc
		p.mu.Unlock()
		go cc.Close()
		return cached, nil
	}
	if len(p.entries) >= p.maxConnections {
		p.evictOldestLocked()
	}
	p.entries[addr] = &poolEntry{
		addr:      addr,
		cc:        cc,
		createdAt: time.Now(),
		lastUsed:  time.Now(),
		useCount:  1,
	}
	p.created.Add(1)
	p.mu.Unlock()

	p.logger.Debug("Forward pool dialed %s", addr)
	return cc, nil
}

// evictOldestLocked removes the entry with the oldest createdAt.
func (p *ForwardPool) evictOldestLocked() {
	var oldest *poolEntry
	for _, e := range p.entries {
		if oldest == nil || e.createdAt.Before(oldest.createdAt) {
			oldest = e
		}
	}
	if oldest == nil {
		return
	}
	delete(p.entries, oldest.addr)
	p.evicted.Add(1)
	go oldest.cc.Close()
	p.logger.Debug("Forward pool evicted oldest connection to %s", oldest.addr)
}

// discard drops the cached entry for addr if it still holds cc.
func (p *ForwardPool) discard(addr string, cc h2Conn) {
	p.mu.Lock()
	if e, ok := p.entries[addr]; ok && e.cc == cc {
		delete(p.entries, addr)
	}
	p.mu.Unlock()
	go cc.Close()
}

// SweepExpired closes and removes expired entries, returning how many.
func (p *ForwardPool) SweepExpired(now time.Time) int {
	var stale []*poolEntry

	p.mu.Lock()
	for addr, e := range p.entries {
		if e.expired(p.ttl, p.idle, now) {
			delete(p.entries, addr)
			p.expired.Add(1)
			stale = append(stale, e)
		}
	}
	p.mu.Unlock()

	for _, e := range stale {
		e.cc.Close()
	}
	return len(stale)
}

// Start runs the periodic expiry sweep until ctx is cancelled.
func (p *ForwardPool) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := p.SweepExpired(now); n > 0 {
					p.logger.Info("Forward pool sweep closed %d expired connection(s)", n)
				}
			}
		}
	}()
}

func (p *ForwardPool) Stats() PoolStats {
	p.mu.Lock()
	active := len(p.entries)
	p.mu.Unlock()

	return PoolStats{
		ActiveConnections:  active,
		CacheHits:          p.hits.Load(),
		CacheMisses:        p.misses.Load(),
		ConnectionsCreated: p.created.Load(),
		ConnectionsEvicted: p.evicted.Load(),
		ConnectionsExpired: p.expired.Load(),
	}
}

// Close tears down every cached connection.
func (p *ForwardPool) Close() {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*poolEntry)
	p.mu.Unlock()

	for _, e := range entries {
		e.cc.Close()
	}
}
