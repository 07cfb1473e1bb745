package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"machine-dashboard-client/config"
	"machine-dashboard-client/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), gin.Logger())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/", h.GetIndex)
	ui := r.Group("/ui")
	ui.Use(rateLimiter)
	{
		ui.POST("/session", h.PostUISession)
		ui.POST("/logout", h.PostUILogout)
		ui.POST("/machines", h.PostUIMachine)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/session", h.GetSession)
		api.POST("/session", h.PostSession)
		api.DELETE("/session", h.DeleteSession)

		api.GET("/board", h.GetBoard)
		api.GET("/alerts", h.GetAlerts)
		api.POST("/machines/:action", h.PostMachineAction)
		api.GET("/work_orders", caching, h.GetWorkOrders)
		api.GET("/production_logs", h.GetProductionLogs)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
