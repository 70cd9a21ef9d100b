// Package client is the backend-side library for the gateway: it
// registers services, keeps a reverse tunnel established (reconnecting
// with backoff), serves tunneled requests through a user handler, and
// speaks the event bus.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/opizontas/grpc-gateway/internal/logging"
	"github.com/opizontas/grpc-gateway/internal/proto"
)

const maxFrameSize = 110 << 20

var (
	// ErrNotConnected means no tunnel is currently established.
	ErrNotConnected = errors.New("not connected to gateway")

	// ErrCallTimeout means a service-to-service call got no response in time.
	ErrCallTimeout = errors.New("call timed out")
)

// Config tunes one gateway client.
type Config struct {
	GatewayAddress string
	APIKey         string
	Services       []string

	// ConnectionID is optional; when set, reconnects keep the same tunnel
	// identity. Left empty, the gateway assigns one on first connect and
	// the client reuses it afterwards.
	ConnectionID string

	HeartbeatInterval time.Duration // default 60s
	RequestTimeout    time.Duration // default 30s
	ReconnectBackoff  time.Duration // initial backoff, default 1s (caps at 30s)
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = 60 * time.Second
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 30 * time.Second
	}
	if out.ReconnectBackoff <= 0 {
		out.ReconnectBackoff = time.Second
	}
	return out
}

// Handler serves one tunneled request. The returned response's request id
// is filled in by the client when left empty.
type Handler func(ctx context.Context, req *proto.ForwardRequest) *proto.ForwardResponse

// Client is one backend's connection to the gateway. Safe for concurrent
// use once Run is started.
type Client struct {
	cfg     Config
	handler Handler
	logger  *logging.Logger

	conn *grpc.ClientConn
	rsc  proto.RegistryServiceClient

	mu           sync.RWMutex
	stream       proto.RegistryService_EstablishConnectionClient
	connectionID string

	sendMu sync.Mutex // serializes Send on the active stream

	pendingMu sync.Mutex
	pending   map[string]chan *proto.ForwardResponse

	eventsMu sync.RWMutex
	events   map[string]chan *proto.EventMessage

	closed atomic.Bool
}

// New dials the gateway (cleartext HTTP/2) and returns a client. Run must
// be called to establish the tunnel.
func New(cfg Config, handler Handler, logger *logging.Logger) (*Client, error) {
	if cfg.GatewayAddress == "" {
		return nil, fmt.Errorf("gateway address is required")
	}
	if len(cfg.Services) == 0 {
		return nil, fmt.Errorf("at least one service is required")
	}

	conn, err := grpc.NewClient(cfg.GatewayAddress,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxFrameSize),
			grpc.MaxCallSendMsgSize(maxFrameSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}

	return &Client{
		cfg:          cfg.withDefaults(),
		handler:      handler,
		logger:       logger,
		conn:         conn,
		rsc:          proto.NewRegistryServiceClient(conn),
		connectionID: cfg.ConnectionID,
		pending:      make(map[string]chan *proto.ForwardResponse),
		events:       make(map[string]chan *proto.EventMessage),
	}, nil
}

// Register announces a forward-routable address for this backend's
// services via the unary Register RPC.
func (c *Client) Register(ctx context.Context, address string) error {
	resp, err := c.rsc.Register(ctx, &proto.RegisterRequest{
		ApiKey:   c.cfg.APIKey,
		Address:  address,
		Services: c.cfg.Services,
	})
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	if !resp.GetSuccess() {
		return fmt.Errorf("register rejected: %s", resp.GetMessage())
	}
	return nil
}

// Run keeps a tunnel established until ctx is cancelled or Close is
// called, reconnecting with exponential backoff and a sticky connection
// id.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.ReconnectBackoff

	for {
		if ctx.Err() != nil || c.closed.Load() {
			return ctx.Err()
		}

		err := c.runOnce(ctx)
		if ctx.Err() != nil || c.closed.Load() {
			return ctx.Err()
		}

		c.logger.Warn("Tunnel dropped (%v); reconnecting in %s", err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

// runOnce establishes one tunnel and serves it until the stream ends.
func (c *Client) runOnce(ctx context.Context) error {
	stream, err := c.rsc.EstablishConnection(ctx)
	if err != nil {
		return err
	}

	c.mu.RLock()
	connectionID := c.connectionID
	c.mu.RUnlock()

	if err := stream.Send(&proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Register{Register: &proto.ConnectionRegister{
			ApiKey:       c.cfg.APIKey,
			Services:     c.cfg.Services,
			ConnectionId: connectionID,
		}},
	}); err != nil {
		return err
	}

	// The gateway confirms with Status{Connected} carrying the assigned id.
	first, err := stream.Recv()
	if err != nil {
		return err
	}
	st := first.GetStatus()
	if st == nil || st.GetStatus() != proto.StatusType_CONNECTED {
		return fmt.Errorf("unexpected handshake reply: %s", first.String())
	}

	c.mu.Lock()
	c.stream = stream
	c.connectionID = st.GetConnectionId()
	c.mu.Unlock()

	c.logger.Info("Tunnel established as %s", st.GetConnectionId())

	hbCtx, stopHeartbeats := context.WithCancel(ctx)
	defer stopHeartbeats()
	go c.heartbeatLoop(hbCtx)

	err = c.serve(ctx, stream)

	c.mu.Lock()
	c.stream = nil
	c.mu.Unlock()
	c.failPending()
	return err
}

// serve is the inbound demux loop of one established tunnel.
func (c *Client) serve(ctx context.Context, stream proto.RegistryService_EstablishConnectionClient) error {
	for {
		msg, err := stream.Recv()
		if err != nil {
			return err
		}

		switch m := msg.GetMessageType().(type) {
		case *proto.ConnectionMessage_Request:
			go c.serveRequest(ctx, m.Request)

		case *proto.ConnectionMessage_Response:
			c.deliverResponse(m.Response)

		case *proto.ConnectionMessage_Event:
			c.deliverEvent(m.Event)

		case *proto.ConnectionMessage_Status:
			switch m.Status.GetStatus() {
			case proto.StatusType_DISCONNECTED:
				return fmt.Errorf("gateway closed the tunnel: %s", m.Status.GetMessage())
			case proto.StatusType_ERROR:
				c.logger.Error("Gateway reported: %s", m.Status.GetMessage())
			}

		default:
			c.logger.Debug("Ignoring unexpected frame from gateway")
		}
	}
}

// serveRequest runs the user handler and returns its response over the
// tunnel. Handler panics become a 500 so the gateway's pending entry
// resolves.
func (c *Client) serveRequest(ctx context.Context, req *proto.ForwardRequest) {
	timeout := c.cfg.RequestTimeout
	if req.GetTimeoutSeconds() > 0 {
		timeout = time.Duration(req.GetTimeoutSeconds()) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp := func() (resp *proto.ForwardResponse) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Handler panic on %s: %v", req.GetMethodPath(), r)
				resp = &proto.ForwardResponse{
					StatusCode:   500,
					ErrorMessage: fmt.Sprintf("handler panic: %v", r),
				}
			}
		}()
		return c.handler(reqCtx, req)
	}()

	if resp == nil {
		resp = &proto.ForwardResponse{
			StatusCode:   500,
			ErrorMessage: "handler returned no response",
		}
	}
	if resp.GetRequestId() == "" {
		resp.RequestId = req.GetRequestId()
	}

	if err := c.send(&proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Response{Response: resp},
	}); err != nil {
		c.logger.Warn("Could not return response %s: %v", req.GetRequestId(), err)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			id := c.connectionID
			c.mu.RUnlock()

			err := c.send(&proto.ConnectionMessage{
				MessageType: &proto.ConnectionMessage_Heartbeat{Heartbeat: &proto.HeartbeatMessage{
					ConnectionId: id,
					Timestamp:    time.Now().Unix(),
				}},
			})
			if err != nil {
				return
			}
		}
	}
}

// send serializes writes to the active stream.
func (c *Client) send(msg *proto.ConnectionMessage) error {
	c.mu.RLock()
	stream := c.stream
	c.mu.RUnlock()
	if stream == nil {
		return ErrNotConnected
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return stream.Send(msg)
}

// Call makes a service-to-service request through the gateway and waits
// for the correlated response. The target service is implied by the
// /package.Service/Method path.
func (c *Client) Call(ctx context.Context, methodPath string, headers map[string]string, payload []byte) (*proto.ForwardResponse, error) {
	requestID := uuid.NewString()

	ch := make(chan *proto.ForwardResponse, 1)
	c.pendingMu.Lock()
	c.pending[requestID] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, requestID)
		c.pendingMu.Unlock()
	}()

	err := c.send(&proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Request{Request: &proto.ForwardRequest{
			RequestId:      requestID,
			MethodPath:     methodPath,
			Headers:        headers,
			Payload:        payload,
			TimeoutSeconds: int32(c.cfg.RequestTimeout / time.Second),
			StreamingInfo: &proto.StreamingInfo{
				StreamType:  proto.StreamType_UNARY,
				IsStreamEnd: true,
			},
		}},
	})
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", ErrCallTimeout, methodPath)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) deliverResponse(resp *proto.ForwardResponse) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.GetRequestId()]
	if ok {
		delete(c.pending, resp.GetRequestId())
	}
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debug("Response for unknown call %s dropped", resp.GetRequestId())
		return
	}
	ch <- resp
}

// failPending closes every in-flight call channel after a stream drop.
func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// ConnectionID returns the current tunnel identity; empty before the first
// successful handshake.
func (c *Client) ConnectionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectionID
}

// Close tears down the tunnel and the underlying gRPC connection.
func (c *Client) Close() error {
	c.closed.Store(true)
	return c.conn.Close()
}
