package tunnel

import (
	"sync/atomic"
	"time"

	"github.com/opizontas/grpc-gateway/internal/proto"
)

// Connection is one established reverse tunnel: identity, the services it
// announced, and the outbound frame queue its writer goroutine drains.
type Connection struct {
	ID        string
	Services  []string
	CreatedAt time.Time

	lastHeartbeat atomic.Int64 // UnixNano; written by heartbeats, read by sweeps
	closed        atomic.Bool
	queue         *sendQueue
}

func newConnection(id string, services []string) *Connection {
	c := &Connection{
		ID:        id,
		Services:  services,
		CreatedAt: time.Now(),
		queue:     newSendQueue(),
	}
	c.lastHeartbeat.Store(c.CreatedAt.UnixNano())
	return c
}

// Touch refreshes the heartbeat timestamp.
func (c *Connection) Touch() {
	c.lastHeartbeat.Store(time.Now().UnixNano())
}

func (c *Connection) LastHeartbeat() time.Time {
	return time.Unix(0, c.lastHeartbeat.Load())
}

// Expired reports whether the last heartbeat is older than timeout.
func (c *Connection) Expired(timeout time.Duration, now time.Time) bool {
	return now.Sub(c.LastHeartbeat()) > timeout
}

// Send queues a frame for the tunnel's writer goroutine.
func (c *Connection) Send(msg *proto.ConnectionMessage) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	return c.queue.Enqueue(msg)
}

// Next blocks until an outbound frame is available; the second return is
// false once the connection is closed and the queue drained. Only the
// tunnel's writer goroutine calls this.
func (c *Connection) Next() (*proto.ConnectionMessage, bool) {
	return c.queue.Dequeue()
}

// Close marks the connection dead and wakes the writer goroutine.
func (c *Connection) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.queue.Close()
	}
}

func (c *Connection) Closed() bool {
	return c.closed.Load()
}
