package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/opizontas/grpc-gateway/internal/admin"
	"github.com/opizontas/grpc-gateway/internal/config"
	"github.com/opizontas/grpc-gateway/internal/event"
	"github.com/opizontas/grpc-gateway/internal/logging"
	"github.com/opizontas/grpc-gateway/internal/proto"
	"github.com/opizontas/grpc-gateway/internal/registry"
	"github.com/opizontas/grpc-gateway/internal/router"
	"github.com/opizontas/grpc-gateway/internal/tunnel"
)

// Tunnel frames carry reassembled bodies up to the 100 MiB cap, plus
// headers and framing.
const maxFrameSize = 110 << 20

const shutdownGrace = 30 * time.Second

// Server owns every gateway component and the two listeners.
type Server struct {
	cfg    *config.Config
	logger *logging.Logger

	registry *registry.Registry
	manager  *tunnel.Manager
	bus      *event.Bus
	pool     *router.ForwardPool
	router   *router.Router
	service  *Service

	grpcServer *grpc.Server
	edge       *http.Server
	adminSrv   *http.Server
}

// New builds the full component graph from configuration.
func New(cfg *config.Config, logger *logging.Logger) *Server {
	reg := registry.New(cfg.ReverseConnection.HeartbeatTimeoutDuration(), logger)
	manager := tunnel.NewManager(
		cfg.ReverseConnection.HeartbeatTimeoutDuration(),
		cfg.ReverseConnection.RequestTimeoutDuration(),
		cfg.ReverseConnection.CleanupIntervalDuration(),
		cfg.ReverseConnection.MaxPendingRequests,
		reg,
		logger,
	)
	bus := event.NewBus(event.Config{
		MaxSubscribersPerType: cfg.Event.MaxSubscribersPerType,
		ChannelCapacity:       cfg.Event.ChannelCapacity,
		EnableMetrics:         cfg.Event.EnableMetrics,
	}, logger)
	pool := router.NewForwardPool(cfg.ConnectionPool, logger)
	rt := router.New(cfg.Router, manager, reg, pool, logger)
	svc := NewService(cfg, reg, manager, bus, logger)

	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.MaxRecvMsgSize(maxFrameSize),
		grpc.MaxSendMsgSize(maxFrameSize),
	)
	proto.RegisterRegistryServiceServer(grpcServer, svc)

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		registry:   reg,
		manager:    manager,
		bus:        bus,
		pool:       pool,
		router:     rt,
		service:    svc,
		grpcServer: grpcServer,
	}

	// One cleartext HTTP/2 port: registry traffic to grpc-go, everything
	// else to the dynamic router.
	edgeHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/registry.RegistryService/") {
			grpcServer.ServeHTTP(w, r)
			return
		}
		rt.ServeHTTP(w, r)
	})
	s.edge = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: h2c.NewHandler(edgeHandler, &http2.Server{}),
	}

	if cfg.Server.AdminAddress != "" {
		s.adminSrv = &http.Server{
			Addr:    cfg.Server.AdminAddress,
			Handler: admin.NewHandler(reg, manager, pool, bus, logger),
		}
	}

	return s
}

// Run starts the sweeps and listeners and blocks until ctx is cancelled or
// a listener fails. Shutdown is graceful with a hard deadline.
func (s *Server) Run(ctx context.Context) error {
	s.registry.StartSweeper(ctx, s.cfg.ReverseConnection.CleanupIntervalDuration())
	s.manager.Start(ctx)
	s.pool.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Gateway listening on %s (h2c)", s.edge.Addr)
		if err := s.edge.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if s.adminSrv != nil {
		g.Go(func() error {
			s.logger.Info("Admin API listening on %s", s.adminSrv.Addr)
			if err := s.adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if s.adminSrv != nil {
			_ = s.adminSrv.Shutdown(shutdownCtx)
		}
		_ = s.edge.Shutdown(shutdownCtx)
		s.grpcServer.GracefulStop()
		s.pool.Close()
		return nil
	})

	return g.Wait()
}
