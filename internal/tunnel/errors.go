package tunnel

import "errors"

var (
	// ErrNoReverseConnection means no fresh tunnel serves the service,
	// directly or via a dotted-prefix fallback.
	ErrNoReverseConnection = errors.New("no reverse connection for service")

	// ErrTooManyPendingRequests means the in-flight correlation table is full.
	ErrTooManyPendingRequests = errors.New("too many pending requests")

	// ErrTunnelSendFailed means the request could not be queued on the tunnel.
	ErrTunnelSendFailed = errors.New("failed to send request over tunnel")

	// ErrResponseChannelClosed means the response sink was dropped before a
	// response arrived (reassembly failure or pending-table sweep).
	ErrResponseChannelClosed = errors.New("response channel closed")

	// ErrRequestTimeout means no response arrived within the request timeout.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrBodyTooLarge means a tunneled request body exceeded the size cap.
	ErrBodyTooLarge = errors.New("request body too large")

	// ErrConnectionClosed means the tunnel was torn down.
	ErrConnectionClosed = errors.New("connection closed")
)
