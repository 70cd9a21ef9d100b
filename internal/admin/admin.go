// Package admin exposes the read/ops HTTP surface over the gateway's
// in-memory state. It never touches the data path.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/opizontas/grpc-gateway/internal/event"
	"github.com/opizontas/grpc-gateway/internal/logging"
	"github.com/opizontas/grpc-gateway/internal/registry"
	"github.com/opizontas/grpc-gateway/internal/router"
	"github.com/opizontas/grpc-gateway/internal/tunnel"
)

type handler struct {
	registry *registry.Registry
	manager  *tunnel.Manager
	pool     *router.ForwardPool
	bus      *event.Bus
	logger   *logging.Logger
}

// NewHandler builds the admin router.
func NewHandler(reg *registry.Registry, manager *tunnel.Manager, pool *router.ForwardPool, bus *event.Bus, logger *logging.Logger) http.Handler {
	h := &handler{
		registry: reg,
		manager:  manager,
		pool:     pool,
		bus:      bus,
		logger:   logger,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("gateway-admin"))

	r.GET("/healthz", h.healthz)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/services", h.listServices)
		v1.PUT("/services/:name/health", h.updateHealth)
		v1.DELETE("/services/:name", h.unregisterService)
		v1.GET("/connections", h.listConnections)
		v1.GET("/pool", h.poolStats)
		v1.GET("/events", h.eventStats)
	}

	return r
}

func (h *handler) healthz(c *gin.Context) {
	stats := h.manager.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"services":           h.registry.ServiceCount(),
		"instances":          h.registry.InstanceCount(),
		"active_connections": stats.ActiveConnections,
		"pending_requests":   stats.PendingRequests,
	})
}

func (h *handler) listServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": h.registry.HealthyServices()})
}

type healthUpdate struct {
	Health string `json:"health" binding:"required,oneof=healthy unhealthy unknown"`
}

func (h *handler) updateHealth(c *gin.Context) {
	name := c.Param("name")

	var body healthUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.registry.UpdateHealth(name, registry.HealthStatus(body.Health)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown service: " + name})
		return
	}

	h.logger.Info("Admin set %s health to %s", name, body.Health)
	c.JSON(http.StatusOK, gin.H{"service": name, "health": body.Health})
}

func (h *handler) unregisterService(c *gin.Context) {
	name := c.Param("name")
	if !h.registry.Unregister(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown service: " + name})
		return
	}
	h.logger.Info("Admin unregistered service %s", name)
	c.JSON(http.StatusOK, gin.H{"service": name, "unregistered": true})
}

func (h *handler) listConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":       h.manager.Stats(),
		"connections": h.manager.Connections(),
	})
}

func (h *handler) poolStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.pool.Stats())
}

func (h *handler) eventStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":       h.bus.Stats(),
		"subscribers": h.bus.Subscribers(),
	})
}
