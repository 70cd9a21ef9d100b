package tunnel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opizontas/grpc-gateway/internal/proto"
)

func heartbeatFrame(id string) *proto.ConnectionMessage {
	return &proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Heartbeat{Heartbeat: &proto.HeartbeatMessage{ConnectionId: id}},
	}
}

func TestSendQueueFIFO(t *testing.T) {
	q := newSendQueue()

	require.NoError(t, q.Enqueue(heartbeatFrame("a")))
	require.NoError(t, q.Enqueue(heartbeatFrame("b")))

	msg, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", msg.GetHeartbeat().GetConnectionId())

	msg, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", msg.GetHeartbeat().GetConnectionId())
}

func TestSendQueueCloseDrainsThenStops(t *testing.T) {
	q := newSendQueue()
	require.NoError(t, q.Enqueue(heartbeatFrame("a")))

	q.Close()

	// Queued frames survive the close; new ones are rejected.
	assert.Error(t, q.Enqueue(heartbeatFrame("b")))

	msg, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", msg.GetHeartbeat().GetConnectionId())

	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestSendQueueCloseWakesBlockedReader(t *testing.T) {
	q := newSendQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, ok := q.Dequeue()
		assert.False(t, ok)
	}()

	q.Close()
	wg.Wait()
}
