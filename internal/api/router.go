package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/sentrydesk/access-system/docs"
	"github.com/sentrydesk/access-system/internal/api/handler"
	"github.com/sentrydesk/access-system/internal/api/middleware"
	"github.com/sentrydesk/access-system/internal/core/domain"
	"github.com/sentrydesk/access-system/internal/core/ports"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// The session manager is injected by the caller; the router never constructs
// its own.
func NewRouter(db *mongo.Database, rdb *redis.Client, sessions ports.SessionManager, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("access"))

	// --- Auth surface ---
	authHandler := handler.NewAuthHandler(sessions)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/signup", authHandler.Signup)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/auth/session", authHandler.Session)

	// Provider-token introspection; only reachable with a valid access token.
	e.GET("/auth/account", authHandler.Account, middleware.Auth(jwtSecret))

	// --- Role-gated portal areas (session-based; demo sessions carry no token) ---
	portalHandler := handler.NewPortalHandler(sessions)
	portal := e.Group("/portal")
	portal.GET("/admin", portalHandler.Admin, middleware.RequireRole(sessions, domain.RoleAdmin))
	portal.GET("/shifts", portalHandler.Shifts, middleware.RequireRole(sessions, domain.RoleEmployee, domain.RoleAdmin))
	portal.GET("/rounds", portalHandler.Rounds, middleware.RequireRole(sessions, domain.RoleGuard, domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	// --- Operational surface ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
