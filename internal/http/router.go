// Package http assembles the gin engine: middleware chain plus route table.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/config"
	"github.com/smallbiznis/portal-auth/internal/cors"
	"github.com/smallbiznis/portal-auth/internal/http/handler"
	"github.com/smallbiznis/portal-auth/internal/http/middleware"
)

// NewRouter builds the engine with the full middleware chain and routes.
func NewRouter(cfg config.Config, resolver *cors.Resolver, auth *handler.AuthHandler, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		otelgin.Middleware(cfg.ServiceName),
		middleware.RateLimit(cfg.RateLimitRPM),
		cors.Middleware(resolver, cfg),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	oauthGroup := engine.Group("/oauth")
	{
		oauthGroup.GET("/authorize", auth.Authorize)
		oauthGroup.GET("/callback/:provider", auth.ProviderCallback)
		oauthGroup.POST("/token", auth.Token)
		oauthGroup.POST("/refresh", auth.Refresh)
		oauthGroup.POST("/revoke", auth.Revoke)
	}

	authGroup := engine.Group("/auth")
	{
		authGroup.POST("/login", auth.LocalLogin)
		authGroup.POST("/verify", auth.Verify)
	}

	engine.DELETE("/internal/origins/:public_key", auth.InvalidateOrigins)

	return engine
}
