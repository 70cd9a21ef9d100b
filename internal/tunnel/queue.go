package tunnel

import (
	"sync"

	"github.com/opizontas/grpc-gateway/internal/proto"
)

// sendQueue is the unbounded outbound frame queue of one tunnel. It must
// never drop frames: heartbeats and responses share it and liveness depends
// on heartbeats getting through.
type sendQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*proto.ConnectionMessage
	closed bool
}

func newSendQueue() *sendQueue {
	q := &sendQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *sendQueue) Enqueue(msg *proto.ConnectionMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrConnectionClosed
	}
	q.items = append(q.items, msg)
	q.cond.Signal()
	return nil
}

// Dequeue blocks until a frame is available or the queue is closed. The
// second return is false once the queue is closed and drained.
func (q *sendQueue) Dequeue() (*proto.ConnectionMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

func (q *sendQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

func (q *sendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
