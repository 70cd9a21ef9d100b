package router

import (
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/opizontas/grpc-gateway/internal/proto"
)

// writeGRPCError writes a gRPC trailer-style error: HTTP 200 with the
// status carried in grpc-status/grpc-message headers, the way grpc clients
// expect transport-level failures.
func writeGRPCError(w http.ResponseWriter, code codes.Code, message string) {
	h := w.Header()
	h.Set("Content-Type", "application/grpc")
	h.Set("Grpc-Status", strconv.Itoa(int(code)))
	h.Set("Grpc-Message", message)
	w.WriteHeader(http.StatusOK)
}

// writeForwardResponse writes a tunneled ForwardResponse back to the edge
// client. A zero status code means 200.
func writeForwardResponse(w http.ResponseWriter, resp *proto.ForwardResponse) {
	h := w.Header()
	for k, v := range resp.GetHeaders() {
		h.Set(k, v)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/grpc")
	}

	status := int(resp.GetStatusCode())
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if payload := resp.GetPayload(); len(payload) > 0 {
		if _, err := w.Write(payload); err == nil {
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

// collectHeaders flattens an http.Header into the string map carried by
// ForwardRequest, lowercased the way gRPC metadata keys are. Multi-valued
// headers keep their first value.
func collectHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for k, v := range header {
		if len(v) > 0 {
			out[strings.ToLower(k)] = v[0]
		}
	}
	return out
}
