// Package router implements the dynamic request router: it parses the
// service name out of each edge request, prefers a reverse tunnel, falls
// back to forward routing via the connection pool, and renders failures as
// gRPC trailer-style errors.
package router

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/opizontas/grpc-gateway/internal/config"
	"github.com/opizontas/grpc-gateway/internal/logging"
	"github.com/opizontas/grpc-gateway/internal/registry"
	"github.com/opizontas/grpc-gateway/internal/tunnel"
)

// Router dispatches every non-registry edge request.
type Router struct {
	manager  *tunnel.Manager
	registry *registry.Registry
	pool     *ForwardPool

	sem            *semaphore.Weighted
	requestTimeout time.Duration
	tracer         trace.Tracer
	logger         *logging.Logger
}

func New(cfg config.RouterConfig, manager *tunnel.Manager, reg *registry.Registry, pool *ForwardPool, logger *logging.Logger) *Router {
	return &Router{
		manager:        manager,
		registry:       reg,
		pool:           pool,
		sem:            semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
		requestTimeout: cfg.RequestTimeoutDuration(),
		tracer:         otel.Tracer("gateway/router"),
		logger:         logger,
	}
}

// ServeHTTP routes one request: reverse tunnel first, forward second,
// NotFound last.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !rt.sem.TryAcquire(1) {
		writeGRPCError(w, statusFor(ErrTooManyRequests), ErrTooManyRequests.Error())
		return
	}
	defer rt.sem.Release(1)

	ctx, span := rt.tracer.Start(r.Context(), "router.dispatch")
	defer span.End()
	r = r.WithContext(ctx)

	service, err := ExtractServiceName(r.URL.Path)
	if err != nil {
		rt.logger.Warn("Rejected request with path %q: %v", r.URL.Path, err)
		writeGRPCError(w, statusFor(err), err.Error())
		return
	}
	span.SetAttributes(attribute.String("rpc.service", service))

	// Reverse connections win over registered addresses.
	if rt.manager.HasConnection(service) {
		span.SetAttributes(attribute.String("gateway.route", "reverse"))
		rt.dispatchReverse(w, r, service)
		return
	}

	if addr, ok := rt.registry.HealthyAddress(service); ok {
		span.SetAttributes(attribute.String("gateway.route", "forward"))
		if err := rt.forward(w, r, addr); err != nil {
			rt.logger.Error("Forwarding %s to %s failed: %v", service, addr, err)
			writeGRPCError(w, statusFor(err), err.Error())
		}
		return
	}

	rt.logger.Warn("No route for service %s", service)
	writeGRPCError(w, statusFor(ErrServiceNotFound), "service not found: "+service)
}

// dispatchReverse collects the request and relays it over the resolved
// tunnel, then writes the correlated response.
func (rt *Router) dispatchReverse(w http.ResponseWriter, r *http.Request, service string) {
	resp, err := rt.manager.SendRequestStream(r.Context(), service, r.URL.Path, collectHeaders(r.Header), r.Body)
	if err != nil {
		rt.logger.Error("Reverse dispatch of %s failed: %v", service, err)
		writeGRPCError(w, statusFor(err), err.Error())
		return
	}
	writeForwardResponse(w, resp)
}
