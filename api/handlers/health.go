package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dtx/datasource"
	"dtx/tx"
)

// HealthHandler serves liveness/readiness and transaction-manager
// introspection endpoints.
type HealthHandler struct {
	registry *datasource.Registry
	mgr      *tx.Manager
}

func NewHealthHandler(registry *datasource.Registry, mgr *tx.Manager) *HealthHandler {
	return &HealthHandler{registry: registry, mgr: mgr}
}

// Live always returns 200 once the process is serving requests.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "live"})
}

// Ready reports 503 until every installed data source answers a ping.
func (h *HealthHandler) Ready(c *gin.Context) {
	names := h.registry.Names()
	statuses := make(gin.H, len(names))
	allHealthy := true

	for _, name := range names {
		meta, ok := h.registry.GetMetaData(name)
		if !ok || !meta.IsInitialized {
			statuses[name] = "not_initialized"
			allHealthy = false
			continue
		}
		status := meta.DataSource.PoolStatus(c.Request.Context())
		if !status.Initialized {
			statuses[name] = "unavailable"
			allHealthy = false
			continue
		}
		if pinger, ok := meta.DataSource.(datasource.Pinger); ok {
			if err := pinger.Ping(c.Request.Context()); err != nil {
				statuses[name] = "unavailable"
				allHealthy = false
				continue
			}
		}
		statuses[name] = "ok"
	}

	code := http.StatusOK
	if !allHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": statuses})
}

// Stats returns the transaction manager's running counters.
func (h *HealthHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.GetStats())
}

// PoolStatus reports the connection pool status for a named data source.
func (h *HealthHandler) PoolStatus(c *gin.Context) {
	name := c.DefaultQuery("name", "DB")
	meta, ok := h.registry.GetMetaData(name)
	if !ok || !meta.IsInitialized {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown data source", "name": name})
		return
	}
	c.JSON(http.StatusOK, meta.DataSource.PoolStatus(c.Request.Context()))
}
