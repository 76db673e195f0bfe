package http

import (
	"github.com/aq2208/gcommerce-api/internal/adapter/http/middleware"
	"github.com/aq2208/gcommerce-api/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *OrderHandler, th *TokenHandler, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	r.Use(middleware.Logging(logging.New("http")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", th.IssueToken)

	v1 := r.Group("/v1")
	{
		v1.POST("/orders", authz.Require("orders.write"), h.PlaceOrder)
		v1.GET("/orders", authz.Require("orders.read"), h.ListOrders)
		v1.GET("/orders/:id", authz.Require("orders.read"), h.GetOrderByID)
	}

	return r
}
