// Package gateway wires the registry gRPC service and the edge server: a
// cleartext HTTP/2 listener that splits registry traffic to grpc-go and
// everything else to the dynamic router.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/opizontas/grpc-gateway/internal/config"
	"github.com/opizontas/grpc-gateway/internal/event"
	"github.com/opizontas/grpc-gateway/internal/logging"
	"github.com/opizontas/grpc-gateway/internal/proto"
	"github.com/opizontas/grpc-gateway/internal/registry"
	"github.com/opizontas/grpc-gateway/internal/router"
	"github.com/opizontas/grpc-gateway/internal/tunnel"
)

// Registration bursts above this are throttled; steady state is generous
// enough for full-fleet reconnects.
const (
	registerRatePerSecond = 10
	registerBurst         = 100
)

// Service implements registry.RegistryService.
type Service struct {
	proto.UnimplementedRegistryServiceServer

	cfg      *config.Config
	registry *registry.Registry
	manager  *tunnel.Manager
	bus      *event.Bus
	limiter  *rate.Limiter
	logger   *logging.Logger
}

func NewService(cfg *config.Config, reg *registry.Registry, manager *tunnel.Manager, bus *event.Bus, logger *logging.Logger) *Service {
	return &Service{
		cfg:      cfg,
		registry: reg,
		manager:  manager,
		bus:      bus,
		limiter:  rate.NewLimiter(rate.Limit(registerRatePerSecond), registerBurst),
		logger:   logger,
	}
}

// Register records a forward-routable backend: one instance per announced
// service, keyed by address.
func (s *Service) Register(ctx context.Context, req *proto.RegisterRequest) (*proto.RegisterResponse, error) {
	if !s.cfg.ValidateToken(req.GetApiKey()) {
		return nil, status.Error(codes.Unauthenticated, "invalid api key")
	}
	if req.GetAddress() == "" {
		return nil, status.Error(codes.InvalidArgument, "address is required")
	}
	if len(req.GetServices()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "at least one service is required")
	}

	s.registry.Register(req.GetAddress(), req.GetServices())
	return &proto.RegisterResponse{
		Success: true,
		Message: fmt.Sprintf("registered %d service(s)", len(req.GetServices())),
	}, nil
}

// EstablishConnection runs one reverse tunnel: authenticate the first
// frame, register the connection, confirm, then demultiplex inbound frames
// until the stream ends.
func (s *Service) EstablishConnection(stream proto.RegistryService_EstablishConnectionServer) error {
	first, err := stream.Recv()
	if err != nil {
		return status.Error(codes.InvalidArgument, "stream closed before registration")
	}
	reg := first.GetRegister()
	if reg == nil {
		return status.Error(codes.InvalidArgument, "first frame must be a register message")
	}
	if !s.cfg.ValidateToken(reg.GetApiKey()) {
		s.logger.Warn("Tunnel registration rejected: invalid api key")
		return status.Error(codes.Unauthenticated, "invalid api key")
	}
	if len(reg.GetServices()) == 0 {
		return status.Error(codes.InvalidArgument, "at least one service is required")
	}
	if !s.limiter.Allow() {
		return status.Error(codes.ResourceExhausted, "tunnel registrations throttled")
	}

	connID := reg.GetConnectionId()
	if connID == "" {
		connID = uuid.NewString()
	}
	conn := s.manager.RegisterConnection(connID, reg.GetServices())

	// Outbound writer: the only goroutine that touches stream.Send.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			msg, ok := conn.Next()
			if !ok {
				return
			}
			if err := stream.Send(msg); err != nil {
				s.logger.Warn("Tunnel %s send failed: %v", connID, err)
				conn.Close()
				return
			}
		}
	}()

	// Track which subscriber ids this tunnel created so its subscriptions
	// die with it.
	subscribers := make(map[string]struct{})

	defer func() {
		conn.Close()
		<-writerDone
		s.manager.UnregisterConnection(connID)
		for id := range subscribers {
			s.bus.RemoveSubscriber(id)
		}
	}()

	// Confirmation carries the (possibly assigned) connection id.
	if err := conn.Send(&proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Status{Status: &proto.ConnectionStatus{
			Status:       proto.StatusType_CONNECTED,
			Message:      "connection established",
			ConnectionId: connID,
		}},
	}); err != nil {
		return status.Error(codes.Unavailable, "tunnel closed during handshake")
	}

	for {
		msg, err := stream.Recv()
		if err != nil {
			s.logger.Info("Tunnel %s stream ended: %v", connID, err)
			return nil
		}

		switch m := msg.GetMessageType().(type) {
		case *proto.ConnectionMessage_Response:
			s.manager.HandleResponse(m.Response)

		case *proto.ConnectionMessage_Heartbeat:
			s.manager.Heartbeat(m.Heartbeat.GetConnectionId())

		case *proto.ConnectionMessage_Status:
			if m.Status.GetStatus() == proto.StatusType_DISCONNECTED {
				s.logger.Info("Tunnel %s announced disconnect", connID)
				return nil
			}
			s.logger.Debug("Tunnel %s status: %s %s", connID, m.Status.GetStatus(), m.Status.GetMessage())

		case *proto.ConnectionMessage_Request:
			// Service-to-service call originated behind this tunnel; relay
			// it without stalling the demux loop.
			go s.relayServiceRequest(conn, m.Request)

		case *proto.ConnectionMessage_Register:
			s.logger.Warn("Tunnel %s sent a duplicate register frame; ignored", connID)

		case *proto.ConnectionMessage_Event:
			if _, err := s.bus.Publish(m.Event); err != nil {
				if errors.Is(err, event.ErrNoSubscribers) {
					s.logger.Debug("Event %s published to empty topic %s", m.Event.GetEventId(), m.Event.GetEventType())
				} else {
					s.logger.Warn("Event publish failed: %v", err)
				}
			}

		case *proto.ConnectionMessage_Subscription:
			s.handleSubscription(conn, m.Subscription, subscribers)

		default:
			s.logger.Warn("Tunnel %s sent an empty frame; ignored", connID)
		}
	}
}

// relayServiceRequest resolves and dispatches a tunneled service-to-service
// request, preserving the caller's request id. Failures come back as a
// synthetic 500 so the caller's pending entry always resolves.
func (s *Service) relayServiceRequest(conn *tunnel.Connection, req *proto.ForwardRequest) {
	ctx := context.Background()

	var resp *proto.ForwardResponse
	service, err := router.ExtractServiceName(req.GetMethodPath())
	if err == nil {
		resp, err = s.manager.SendRequestWithID(ctx, req.GetRequestId(), service, req.GetMethodPath(), req.GetHeaders(), req.GetPayload())
	}
	if err != nil {
		s.logger.Warn("Service-to-service relay of %s failed: %v", req.GetMethodPath(), err)
		resp = &proto.ForwardResponse{
			RequestId:    req.GetRequestId(),
			StatusCode:   500,
			ErrorMessage: err.Error(),
		}
	}

	if err := conn.Send(&proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Response{Response: resp},
	}); err != nil {
		s.logger.Warn("Could not return relayed response %s: %v", req.GetRequestId(), err)
	}
}

// handleSubscription applies a Subscribe/Unsubscribe frame and starts one
// pump goroutine per new subscription, feeding events back over this
// tunnel.
func (s *Service) handleSubscription(conn *tunnel.Connection, req *proto.SubscriptionRequest, subscribers map[string]struct{}) {
	subscriberID := req.GetSubscriberId()
	if subscriberID == "" {
		subscriberID = conn.ID
	}

	switch req.GetAction() {
	case proto.SubscriptionAction_SUBSCRIBE:
		for _, eventType := range req.GetEventTypes() {
			sub, err := s.bus.Subscribe(eventType, subscriberID)
			if err != nil {
				s.logger.Warn("Subscribe %s to %s failed: %v", subscriberID, eventType, err)
				continue
			}
			subscribers[subscriberID] = struct{}{}
			go s.pumpEvents(conn, sub)
		}
		s.logger.Info("Subscriber %s on %s", subscriberID, strings.Join(req.GetEventTypes(), ", "))

	case proto.SubscriptionAction_UNSUBSCRIBE:
		s.bus.Unsubscribe(subscriberID, req.GetEventTypes())
		s.logger.Info("Subscriber %s off %s", subscriberID, strings.Join(req.GetEventTypes(), ", "))
	}
}

// pumpEvents moves one subscription's events onto the tunnel until the
// subscription or the tunnel closes. A slow-subscriber disconnect is
// surfaced to this subscriber only.
func (s *Service) pumpEvents(conn *tunnel.Connection, sub *event.Subscription) {
	for ev := range sub.C() {
		if err := conn.Send(&proto.ConnectionMessage{
			MessageType: &proto.ConnectionMessage_Event{Event: ev},
		}); err != nil {
			return
		}
	}

	if errors.Is(sub.Err(), event.ErrSlowSubscriber) {
		_ = conn.Send(&proto.ConnectionMessage{
			MessageType: &proto.ConnectionMessage_Status{Status: &proto.ConnectionStatus{
				Status:       proto.StatusType_ERROR,
				Message:      "event subscription dropped: consumer too slow",
				ConnectionId: conn.ID,
			}},
		})
	}
}
