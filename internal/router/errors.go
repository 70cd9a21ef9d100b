package router

import (
	"errors"

	"google.golang.org/grpc/codes"

	"github.com/opizontas/grpc-gateway/internal/tunnel"
)

var (
	// ErrInvalidPath means the request path is not /package.Service/Method.
	ErrInvalidPath = errors.New("invalid request path")

	// ErrServiceNotFound means neither a tunnel nor a registered address
	// serves the service.
	ErrServiceNotFound = errors.New("service not found")

	// ErrForwarding wraps forward-path dial and round-trip failures.
	ErrForwarding = errors.New("forwarding failed")

	// ErrTooManyRequests means the router's concurrency cap is reached.
	ErrTooManyRequests = errors.New("too many concurrent requests")
)

// statusFor maps dispatch errors onto gRPC status codes for the trailer-style
// error response.
func statusFor(err error) codes.Code {
	switch {
	case errors.Is(err, ErrInvalidPath):
		return codes.InvalidArgument
	case errors.Is(err, ErrServiceNotFound), errors.Is(err, tunnel.ErrNoReverseConnection):
		return codes.NotFound
	case errors.Is(err, tunnel.ErrRequestTimeout):
		return codes.DeadlineExceeded
	case errors.Is(err, tunnel.ErrTooManyPendingRequests), errors.Is(err, tunnel.ErrBodyTooLarge), errors.Is(err, ErrTooManyRequests):
		return codes.ResourceExhausted
	case errors.Is(err, tunnel.ErrTunnelSendFailed), errors.Is(err, tunnel.ErrResponseChannelClosed), errors.Is(err, ErrForwarding):
		return codes.Unavailable
	default:
		return codes.Unknown
	}
}
