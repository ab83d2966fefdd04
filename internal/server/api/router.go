package api

import (
	"deepspear/internal/server/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRouter creates and configures the echo router with all routes and
// middleware. API routes live under the configured prefix; the upload
// directory is exposed read-only under /uploads.
func SetupRouter(handler *Handler, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Debug = cfg.Debug

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	e.Use(RequestLogger())

	// Rate limiter on the detect endpoint only
	detectLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	e.GET("/", handler.HandleRoot)

	api := e.Group(cfg.APIPrefix)
	api.GET("/health", handler.HandleHealth)
	api.GET("/health/db", handler.HandleHealthDB)
	api.POST("/detect", handler.HandleDetect, detectLimiter.Middleware())
	api.GET("/history", handler.HandleHistory)
	api.GET("/result/:id", handler.HandleResult)

	// Stored uploads, read-only
	e.Static("/uploads", cfg.UploadDir)

	return e
}
