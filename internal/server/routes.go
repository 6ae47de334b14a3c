package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware and error handlers.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = JSONErrorHandler()

	e.Use(setJSONContentType)
	e.Use(setNoCacheHeaders)

	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)

	v1.GET("/config", h.GetConfig)
	v1.POST("/config", h.InitConfig)
	v1.PUT("/config", h.UpdateConfig)

	swap := v1.Group("/swap")
	swap.POST("/decode", h.DecodeSwap)

	// Execution and seeding hit the sandbox ledger and, for seeding, the
	// upstream RPC; keep both behind a modest rate limit.
	exec := swap.Group("")
	exec.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(2),
		Burst:     5,
		ExpiresIn: 2 * time.Minute,
	})))
	exec.POST("/execute", h.ExecuteSwap)

	sandbox := v1.Group("/sandbox")
	sandbox.POST("/seed", h.SeedSandbox)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
