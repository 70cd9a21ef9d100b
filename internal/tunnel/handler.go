package tunnel

import (
	"time"

	"github.com/opizontas/grpc-gateway/internal/proto"
)

// streamHandler reassembles one streamed response. It owns the pending
// sink it stole from the correlation table on first chunk. Chunk index is
// authoritative; wire arrival order is not. The final chunk fixes the
// highest index and the response envelope, but later-arriving chunks keep
// filling gaps until 0..=max is contiguous.
type streamHandler struct {
	requestID string
	sink      *pendingRequest
	chunks    map[int64][]byte
	createdAt time.Time

	complete bool // final chunk seen
	maxIndex int64

	// Envelope of the final chunk, mirrored on delivery.
	statusCode   int32
	headers      map[string]string
	errorMessage string
}

// HandleResponse demultiplexes one inbound ForwardResponse from a tunnel:
// streamed chunks go to the reassembler, everything else resolves the
// pending request directly. Responses with no pending entry are dropped.
func (m *Manager) HandleResponse(resp *proto.ForwardResponse) {
	if resp.GetResponseStreamInfo().GetIsStreamed() {
		m.handleStreamedResponse(resp)
		return
	}

	p := m.takePending(resp.GetRequestId())
	if p == nil {
		m.logger.Warn("Response for unknown request %s dropped", resp.GetRequestId())
		return
	}
	p.deliver(resp)
}

func (m *Manager) handleStreamedResponse(resp *proto.ForwardResponse) {
	id := resp.GetRequestId()
	info := resp.GetResponseStreamInfo()

	m.streamsMu.Lock()
	h, ok := m.streams[id]
	if !ok {
		// First chunk: steal the pending sink so the plain response path
		// can no longer resolve this request.
		p := m.takePending(id)
		if p == nil {
			m.streamsMu.Unlock()
			m.logger.Warn("Streamed chunk for unknown request %s dropped", id)
			return
		}
		h = &streamHandler{
			requestID: id,
			sink:      p,
			chunks:    make(map[int64][]byte),
			createdAt: time.Now(),
		}
		m.streams[id] = h
	}
	h.chunks[info.GetChunkIndex()] = resp.GetPayload()

	if info.GetIsFinalChunk() {
		h.complete = true
		h.maxIndex = info.GetChunkIndex()
		h.statusCode = resp.GetStatusCode()
		h.headers = resp.GetHeaders()
		h.errorMessage = resp.GetErrorMessage()
	}

	if !h.complete {
		m.streamsMu.Unlock()
		return
	}

	// Deliver once indices 0..=max are contiguous. A gap is not an error
	// yet: the missing chunk may still be in flight. Handlers that never
	// fill up are swept on the request timeout.
	total := 0
	for i := int64(0); i <= h.maxIndex; i++ {
		chunk, ok := h.chunks[i]
		if !ok {
			m.streamsMu.Unlock()
			m.logger.Debug("Request %s waiting for chunk %d of %d", id, i, h.maxIndex+1)
			return
		}
		total += len(chunk)
	}
	payload := make([]byte, 0, total)
	for i := int64(0); i <= h.maxIndex; i++ {
		payload = append(payload, h.chunks[i]...)
	}
	delete(m.streams, id)
	m.streamsMu.Unlock()

	// The delivered response mirrors the final chunk, with the payload
	// replaced by the assembly and the stream marker cleared.
	h.sink.deliver(&proto.ForwardResponse{
		RequestId:    id,
		StatusCode:   h.statusCode,
		Headers:      h.headers,
		Payload:      payload,
		ErrorMessage: h.errorMessage,
	})
}
