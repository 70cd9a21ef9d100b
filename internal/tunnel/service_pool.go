package tunnel

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Pool holds every tunnel announcing one service name and hands them out
// round-robin. Expired tunnels are reaped during selection; the full detach
// (both manager indices plus the registry) happens in the cleanup sweep.
type Pool struct {
	mu     sync.RWMutex
	conns  map[string]*Connection // keyed by connection id
	cursor atomic.Uint64
}

func newPool() *Pool {
	return &Pool{conns: make(map[string]*Connection)}
}

// Add inserts the connection, returning the connection it replaced (same
// id) if any.
func (p *Pool) Add(conn *Connection) *Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.conns[conn.ID]
	p.conns[conn.ID] = conn
	return old
}

// Remove drops the connection with the given id.
func (p *Pool) Remove(id string) *Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn := p.conns[id]
	delete(p.conns, id)
	return conn
}

// Next returns the next fresh connection in round-robin order, dropping
// expired entries it walks over. Returns nil when no fresh connection
// remains.
func (p *Pool) Next(timeout time.Duration) *Connection {
	now := time.Now()

	p.mu.Lock()
	fresh := make([]*Connection, 0, len(p.conns))
	for id, c := range p.conns {
		if c.Closed() || c.Expired(timeout, now) {
			delete(p.conns, id)
			continue
		}
		fresh = append(fresh, c)
	}
	p.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	// Map iteration order is random; sort so the cursor actually rotates.
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })

	i := p.cursor.Add(1) - 1
	return fresh[i%uint64(len(fresh))]
}

// HasFresh reports whether at least one fresh connection is present,
// without advancing the round-robin cursor.
func (p *Pool) HasFresh(timeout time.Duration) bool {
	now := time.Now()

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, c := range p.conns {
		if !c.Closed() && !c.Expired(timeout, now) {
			return true
		}
	}
	return false
}

// Fresh returns every fresh connection in the pool.
func (p *Pool) Fresh(timeout time.Duration) []*Connection {
	now := time.Now()

	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*Connection, 0, len(p.conns))
	for _, c := range p.conns {
		if !c.Closed() && !c.Expired(timeout, now) {
			out = append(out, c)
		}
	}
	return out
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

func (p *Pool) Empty() bool {
	return p.Len() == 0
}
