// Package httpapi is the thin HTTP control surface (C8) and websocket
// upgrade path that translate create/join/start/message-channel traffic
// into Room Actor commands.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lassenordahl/rank-everything-sub001/internal/v1/health"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/middleware"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/ratelimit"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/room"
)

// Server bundles the dependencies the router wires into request handlers.
type Server struct {
	Registry  *room.Registry
	RateLimit *ratelimit.RateLimiter
	Health    *health.Checker

	allowedOrigins []string
}

// NewRouter builds the gin engine: CORS, correlation id, rate limiting,
// the room control surface, the websocket upgrade, and /metrics,
// /healthz, /readyz.
func NewRouter(srv *Server, allowedOrigins string) *gin.Engine { // allowedOrigins: comma-separated
	srv.allowedOrigins = parseOrigins(allowedOrigins)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CorrelationID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = srv.allowedOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-Correlation-ID")
	r.Use(cors.New(corsCfg))

	if srv.RateLimit != nil {
		r.Use(srv.RateLimit.GlobalMiddleware())
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", srv.handleLiveness)
	r.GET("/readyz", srv.handleReadiness)

	roomGroup := r.Group("/room")
	if srv.RateLimit != nil {
		roomGroup.Use(srv.RateLimit.MiddlewareForEndpoint("rooms"))
	}
	roomGroup.POST("/:code", srv.handleRoomCommand)
	roomGroup.GET("/:code", srv.handleRoomSnapshot)
	roomGroup.GET("/:code/ws", srv.handleWebSocket)

	return r
}

func parseOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReadiness(c *gin.Context) {
	if s.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	if err := s.Health.Ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
