package tunnel

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opizontas/grpc-gateway/internal/logging"
	"github.com/opizontas/grpc-gateway/internal/proto"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(&logging.Config{
		Level:      logging.LevelError,
		File:       filepath.Join(t.TempDir(), "test.log"),
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)
	return logger
}

func testManager(t *testing.T, requestTimeout time.Duration, maxPending int) *Manager {
	t.Helper()
	return NewManager(time.Minute, requestTimeout, time.Minute, maxPending, nil, testLogger(t))
}

// drainRequest pops the next outbound frame of conn and returns its
// ForwardRequest.
func drainRequest(t *testing.T, conn *Connection) *proto.ForwardRequest {
	t.Helper()
	msg, ok := conn.Next()
	require.True(t, ok, "expected an outbound frame")
	req := msg.GetRequest()
	require.NotNil(t, req, "expected a request frame")
	return req
}

func TestRegisterAndUnregisterKeepIndicesConsistent(t *testing.T) {
	m := testManager(t, time.Second, 10)

	conn := m.RegisterConnection("conn-1", []string{"chat.api", "chat.rooms"})
	require.NotNil(t, conn)

	stats := m.Stats()
	assert.Equal(t, 1, stats.ActiveConnections)
	assert.Equal(t, 1, stats.Services["chat.api"])
	assert.Equal(t, 1, stats.Services["chat.rooms"])

	m.UnregisterConnection("conn-1")

	stats = m.Stats()
	assert.Equal(t, 0, stats.ActiveConnections)
	assert.Empty(t, stats.Services, "empty pools must be pruned")
	assert.True(t, conn.Closed())
}

func TestRegisterSameIDReplacesConnection(t *testing.T) {
	m := testManager(t, time.Second, 10)

	first := m.RegisterConnection("conn-1", []string{"chat"})
	second := m.RegisterConnection("conn-1", []string{"chat"})

	assert.True(t, first.Closed(), "replaced tunnel must be closed")
	assert.False(t, second.Closed())
	assert.Equal(t, 1, m.Stats().ActiveConnections)

	got, ok := m.Connection("conn-1")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestResolveRoundRobin(t *testing.T) {
	m := testManager(t, time.Second, 10)

	m.RegisterConnection("conn-a", []string{"chat"})
	m.RegisterConnection("conn-b", []string{"chat"})

	first := m.Resolve("chat")
	second := m.Resolve("chat")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID, "round robin must alternate between two tunnels")
}

func TestResolveHierarchicalFallback(t *testing.T) {
	m := testManager(t, time.Second, 10)
	m.RegisterConnection("conn-1", []string{"chat"})

	conn := m.Resolve("chat.api.v1")
	require.NotNil(t, conn, "dotted prefixes must fall back to the root pool")
	assert.Equal(t, "conn-1", conn.ID)

	assert.Nil(t, m.Resolve("billing.api"), "unrelated service must not resolve")
	assert.True(t, m.HasConnection("chat.api.v1"))
	assert.False(t, m.HasConnection("billing.api"))
}

func TestSendRequestCorrelatesResponse(t *testing.T) {
	m := testManager(t, time.Second, 10)
	conn := m.RegisterConnection("conn-1", []string{"chat"})

	type result struct {
		resp *proto.ForwardResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := m.SendRequest(context.Background(), "chat", "/chat.Service/Say", map[string]string{"k": "v"}, []byte("hello"))
		done <- result{resp, err}
	}()

	req := drainRequest(t, conn)
	assert.Equal(t, "/chat.Service/Say", req.GetMethodPath())
	assert.Equal(t, []byte("hello"), req.GetPayload())
	assert.True(t, req.GetStreamingInfo().GetIsStreamEnd())

	m.HandleResponse(&proto.ForwardResponse{
		RequestId:  req.GetRequestId(),
		StatusCode: 200,
		Payload:    []byte("world"),
	})

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, int32(200), res.resp.GetStatusCode())
	assert.Equal(t, []byte("world"), res.resp.GetPayload())
	assert.Equal(t, 0, m.Stats().PendingRequests, "pending entry must be consumed")
}

func TestSendRequestTimesOut(t *testing.T) {
	m := testManager(t, 50*time.Millisecond, 10)
	m.RegisterConnection("conn-1", []string{"chat"})

	_, err := m.SendRequest(context.Background(), "chat", "/chat.Service/Say", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestTimeout))
	assert.Equal(t, 0, m.Stats().PendingRequests, "timed-out entry must be removed")
}

func TestSendRequestNoConnection(t *testing.T) {
	m := testManager(t, time.Second, 10)

	_, err := m.SendRequest(context.Background(), "chat", "/chat.Service/Say", nil, nil)
	assert.True(t, errors.Is(err, ErrNoReverseConnection))
}

func TestSendRequestPendingCap(t *testing.T) {
	m := testManager(t, time.Second, 0)
	m.RegisterConnection("conn-1", []string{"chat"})

	_, err := m.SendRequest(context.Background(), "chat", "/chat.Service/Say", nil, nil)
	assert.True(t, errors.Is(err, ErrTooManyPendingRequests))
}

func TestStreamedResponseReassembly(t *testing.T) {
	m := testManager(t, time.Second, 10)
	conn := m.RegisterConnection("conn-1", []string{"chat"})

	type result struct {
		resp *proto.ForwardResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := m.SendRequest(context.Background(), "chat", "/chat.Service/List", nil, nil)
		done <- result{resp, err}
	}()

	req := drainRequest(t, conn)
	id := req.GetRequestId()

	chunk := func(index int64, payload string, final bool) *proto.ForwardResponse {
		return &proto.ForwardResponse{
			RequestId:  id,
			StatusCode: 200,
			Payload:    []byte(payload),
			ResponseStreamInfo: &proto.ResponseStreamInfo{
				IsStreamed:   true,
				ChunkIndex:   index,
				IsFinalChunk: final,
				ChunkSize:    int64(len(payload)),
			},
		}
	}

	// Out of order: the final chunk (highest index) arrives last.
	m.HandleResponse(chunk(1, "B", false))
	m.HandleResponse(chunk(0, "A", false))
	m.HandleResponse(chunk(2, "C", true))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, []byte("ABC"), res.resp.GetPayload())
	assert.Nil(t, res.resp.GetResponseStreamInfo(), "assembled response must not look streamed")
	assert.Equal(t, 0, m.Stats().StreamHandlers)
}

func TestStreamedResponseFinalChunkArrivesFirst(t *testing.T) {
	m := testManager(t, time.Second, 10)
	conn := m.RegisterConnection("conn-1", []string{"chat"})

	type result struct {
		resp *proto.ForwardResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := m.SendRequest(context.Background(), "chat", "/chat.Service/List", nil, nil)
		done <- result{resp, err}
	}()

	req := drainRequest(t, conn)
	id := req.GetRequestId()

	chunk := func(index int64, payload string, final bool) *proto.ForwardResponse {
		return &proto.ForwardResponse{
			RequestId:  id,
			StatusCode: 200,
			Payload:    []byte(payload),
			ResponseStreamInfo: &proto.ResponseStreamInfo{
				IsStreamed:   true,
				ChunkIndex:   index,
				IsFinalChunk: final,
				ChunkSize:    int64(len(payload)),
			},
		}
	}

	// The final chunk arrives first; the earlier indices trickle in after.
	// Chunk index is authoritative, wire order is not.
	m.HandleResponse(chunk(2, "C", true))
	m.HandleResponse(chunk(0, "A", false))
	m.HandleResponse(chunk(1, "B", false))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, []byte("ABC"), res.resp.GetPayload())
	assert.Nil(t, res.resp.GetResponseStreamInfo())
	assert.Equal(t, 0, m.Stats().StreamHandlers)
}

func TestStreamedResponseMissingChunkTimesOut(t *testing.T) {
	m := testManager(t, 100*time.Millisecond, 10)
	conn := m.RegisterConnection("conn-1", []string{"chat"})

	type result struct {
		resp *proto.ForwardResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := m.SendRequest(context.Background(), "chat", "/chat.Service/List", nil, nil)
		done <- result{resp, err}
	}()

	req := drainRequest(t, conn)

	// Chunk 1 never arrives; the final chunk exposes the gap.
	m.HandleResponse(&proto.ForwardResponse{
		RequestId: req.GetRequestId(),
		Payload:   []byte("A"),
		ResponseStreamInfo: &proto.ResponseStreamInfo{
			IsStreamed: true,
			ChunkIndex: 0,
		},
	})
	m.HandleResponse(&proto.ForwardResponse{
		RequestId: req.GetRequestId(),
		Payload:   []byte("C"),
		ResponseStreamInfo: &proto.ResponseStreamInfo{
			IsStreamed:   true,
			ChunkIndex:   2,
			IsFinalChunk: true,
		},
	})

	res := <-done
	assert.True(t, errors.Is(res.err, ErrRequestTimeout), "the waiter runs into its deadline, not a closed sink")
}

func TestChunkedRequestFrames(t *testing.T) {
	m := testManager(t, time.Second, 10)
	conn := m.RegisterConnection("conn-1", []string{"chat"})

	go func() {
		_, _ = m.SendChunkedRequest(context.Background(), "chat", "/chat.Service/Upload", map[string]string{"k": "v"},
			[][]byte{[]byte("one"), []byte("two")}, proto.StreamType_CLIENT_STREAMING)
	}()

	first := drainRequest(t, conn)
	second := drainRequest(t, conn)

	assert.Equal(t, first.GetRequestId(), second.GetRequestId())
	assert.Equal(t, int64(0), first.GetStreamingInfo().GetSequenceNumber())
	assert.False(t, first.GetStreamingInfo().GetIsStreamEnd())
	assert.NotEmpty(t, first.GetHeaders())
	assert.Equal(t, int64(1), second.GetStreamingInfo().GetSequenceNumber())
	assert.True(t, second.GetStreamingInfo().GetIsStreamEnd())

	// Resolve the pending entry so the sender goroutine exits.
	m.HandleResponse(&proto.ForwardResponse{RequestId: first.GetRequestId(), StatusCode: 200})
}

func TestHeartbeatByServiceNameRefreshesPool(t *testing.T) {
	m := testManager(t, time.Second, 10)
	conn := m.RegisterConnection("conn-1", []string{"chat"})

	before := conn.LastHeartbeat()
	time.Sleep(5 * time.Millisecond)

	m.Heartbeat("chat") // legacy clients send the service name
	assert.True(t, conn.LastHeartbeat().After(before))

	// Unknown ids of either shape must not panic.
	m.Heartbeat("")
	m.Heartbeat("not-a-uuid")
	m.Heartbeat("123e4567-e89b-12d3-a456-426614174000")
}

func TestHeartbeatByServiceNameRefreshesOneTunnel(t *testing.T) {
	m := testManager(t, time.Second, 10)
	a := m.RegisterConnection("conn-a", []string{"chat"})
	b := m.RegisterConnection("conn-b", []string{"chat"})

	beforeA := a.LastHeartbeat()
	beforeB := b.LastHeartbeat()
	time.Sleep(5 * time.Millisecond)

	m.Heartbeat("chat")

	touched := 0
	if a.LastHeartbeat().After(beforeA) {
		touched++
	}
	if b.LastHeartbeat().After(beforeB) {
		touched++
	}
	assert.Equal(t, 1, touched, "a service-name heartbeat refreshes exactly one tunnel")
}

func TestSweepDetachesExpiredConnections(t *testing.T) {
	m := NewManager(10*time.Millisecond, time.Second, time.Minute, 10, nil, testLogger(t))
	conn := m.RegisterConnection("conn-1", []string{"chat"})

	time.Sleep(20 * time.Millisecond)
	removed := m.sweepConnections(time.Now())

	assert.Equal(t, 1, removed)
	assert.True(t, conn.Closed())
	stats := m.Stats()
	assert.Equal(t, 0, stats.ActiveConnections)
	assert.Empty(t, stats.Services)
}

func TestSweepDropsStalePendingRequests(t *testing.T) {
	m := testManager(t, 10*time.Millisecond, 10)

	p, err := m.addPending("req-1")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, m.sweepPending(time.Now()))

	_, ok := <-p.ch
	assert.False(t, ok, "stale sink must be closed")
	assert.Equal(t, 0, m.Stats().PendingRequests)
}

func TestPoolReapsExpiredDuringSelection(t *testing.T) {
	pool := newPool()
	conn := newConnection("conn-1", []string{"chat"})
	pool.Add(conn)

	conn.lastHeartbeat.Store(time.Now().Add(-time.Hour).UnixNano())

	assert.Nil(t, pool.Next(time.Minute))
	assert.Equal(t, 0, pool.Len(), "expired entry must be reaped")
}

func TestIsCanonicalUUID(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"123e4567-e89b-12d3-a456-426614174000", true},
		{"123E4567-E89B-12D3-A456-426614174000", true},
		{"", false},
		{"chat.api", false},
		{"123e4567e89b12d3a456426614174000", false},
		{"123e4567-e89b-12d3-a456-42661417400g", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isCanonicalUUID(tc.in), "input %q", tc.in)
	}
}
