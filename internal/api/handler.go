// Package api exposes the trigger engine over HTTP and WebSocket.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patruff/moltapp-sub001/internal/engine"
	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/monitor"
)

// Server wires HTTP endpoints around the engine and the event bus.
type Server struct {
	Router    *gin.Engine
	Engine    engine.Service
	Bus       *events.Bus
	Metrics   *monitor.SystemMetrics
	JWTSecret string

	// RunContext bounds an evaluation loop started through the API.
	RunContext context.Context

	limiters *ipLimiters
}

// Options tunes the HTTP surface.
type Options struct {
	RatePerSecond  float64
	RateBurst      int
	RequestTimeout time.Duration
	RunContext     context.Context
}

func NewServer(eng engine.Service, bus *events.Bus, metrics *monitor.SystemMetrics, jwtSecret string, opts Options) *Server {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 50
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.RunContext == nil {
		opts.RunContext = context.Background()
	}

	r := gin.New()
	s := &Server{
		Router:     r,
		Engine:     eng,
		Bus:        bus,
		Metrics:    metrics,
		JWTSecret:  jwtSecret,
		RunContext: opts.RunContext,
		limiters:   newIPLimiters(opts.RatePerSecond, opts.RateBurst),
	}

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(PrometheusMiddleware())
	r.Use(RateLimitMiddleware(s.limiters))
	r.Use(TimeoutMiddleware(opts.RequestTimeout))
	r.Use(CORSMiddleware())

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.Router.GET("/ws/triggers", s.streamTriggers)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/system/metrics", s.getSystemMetrics)
		api.GET("/engine/metrics", s.getEngineMetrics)

		api.GET("/orders", s.listOrders)
		api.GET("/orders/history", s.getHistory)
		api.GET("/orders/:id", s.getOrder)
		api.GET("/agents/:agentId/orders", s.getAgentOrders)
		api.GET("/symbols/:symbol/orders", s.getSymbolOrders)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.POST("/orders/limit-buy", s.placeOrder(s.Engine.PlaceLimitBuy))
			protected.POST("/orders/limit-sell", s.placeOrder(s.Engine.PlaceLimitSell))
			protected.POST("/orders/stop-loss", s.placeOrder(s.Engine.PlaceStopLoss))
			protected.POST("/orders/trailing-stop", s.placeOrder(s.Engine.PlaceTrailingStop))
			protected.POST("/orders/take-profit", s.placeOrder(s.Engine.PlaceTakeProfit))
			protected.POST("/orders/bracket", s.placeOrder(s.Engine.PlaceBracket))
			protected.DELETE("/orders/:id", s.cancelOrder)
			protected.DELETE("/agents/:agentId/orders", s.cancelAgentOrders)

			operator := protected.Group("/engine")
			operator.Use(RequireRole(RoleOperator))
			{
				operator.POST("/start", s.startEngine)
				operator.POST("/stop", s.stopEngine)
			}
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"running": s.Engine.Running(),
	})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}
