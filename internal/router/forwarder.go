package router

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opizontas/grpc-gateway/internal/tunnel"
)

// forward streams the request to a dialed backend address and streams the
// response back, trailers included. Bodies are never buffered on this path.
// The request timeout covers time-to-response-headers only, so long server
// streams are not cut short.
func (rt *Router) forward(w http.ResponseWriter, r *http.Request, addr string) error {
	hostport := strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "https://")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := r.Clone(ctx)
	out.RequestURI = ""
	out.URL.Scheme = "http"
	out.URL.Host = hostport
	out.Host = hostport

	headerTimer := time.AfterFunc(rt.requestTimeout, cancel)
	resp, err := rt.pool.RoundTrip(ctx, out, addr)
	if !headerTimer.Stop() {
		// The deadline fired; the round trip was cancelled.
		if err == nil {
			resp.Body.Close()
		}
		return tunnel.ErrRequestTimeout
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	h := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if err := copyFlush(w, resp.Body); err != nil {
		// Mid-stream failure; the response is already underway, nothing
		// sensible left to signal beyond closing it.
		rt.logger.Warn("Forward stream to %s aborted: %v", addr, err)
		return nil
	}

	// gRPC status arrives in trailers; relay them after the body.
	for k, vv := range resp.Trailer {
		for _, v := range vv {
			h.Add(http.TrailerPrefix+k, v)
		}
	}
	return nil
}

// copyFlush copies body to w, flushing after every chunk so streamed gRPC
// responses are delivered as they arrive.
func copyFlush(w http.ResponseWriter, body io.Reader) error {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
