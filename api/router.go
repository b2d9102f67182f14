// Package api assembles the gin HTTP surface over the ledger demo domain
// and the transaction manager's introspection endpoints.
package api

import (
	"github.com/gin-gonic/gin"

	"dtx/api/handlers"
	"dtx/api/middleware"
	"dtx/datasource"
	"dtx/domain/ledger"
	"dtx/pkg/logger"
	"dtx/tx"
)

// RouterConfig holds everything NewRouter needs to wire the API surface.
type RouterConfig struct {
	Logger   *logger.Logger
	Registry *datasource.Registry
	Manager  *tx.Manager
	Ledger   *ledger.Service
}

// NewRouter builds the gin engine: global middleware, health/stats
// endpoints, and the ledger demo routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	health := handlers.NewHealthHandler(cfg.Registry, cfg.Manager)
	router.GET("/healthz/live", health.Live)
	router.GET("/healthz/ready", health.Ready)
	router.GET("/stats", health.Stats)
	router.GET("/pool-status", health.PoolStatus)

	ledgerHandler := handlers.NewLedgerHandler(cfg.Ledger)
	v1 := router.Group("/api/v1")
	{
		accounts := v1.Group("/accounts")
		accounts.POST("", ledgerHandler.OpenAccount)
		accounts.GET("/:id/balance", ledgerHandler.GetBalance)

		v1.POST("/transfers", ledgerHandler.Transfer)
	}

	return router
}
