package api

import (
	"fmt"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/loginbox/user-portal/internal/api/handler"
	"github.com/loginbox/user-portal/internal/api/middleware"
	"github.com/loginbox/user-portal/internal/api/view"
	"github.com/loginbox/user-portal/internal/core/ports"
)

// Deps bundles everything the router needs. Repositories and services are
// constructed in main so the activity dispatcher can share them.
type Deps struct {
	Mongo    *mongo.Database
	Redis    *redis.Client
	Accounts ports.AccountRepository
	Auth     ports.AuthService
	Sessions ports.SessionStore
	Revoker  ports.TokenRevoker
	Activity handler.ActivityQueue

	JWTSecret     string
	SecureCookies bool
	Logger        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	e.Renderer = renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("portal"))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(
		deps.Auth, deps.Accounts, deps.Sessions, deps.Activity, deps.SecureCookies, deps.Logger,
	)
	authGate := middleware.Auth(deps.JWTSecret, deps.Revoker)

	// --- Pages ---
	e.GET("/", authHandler.Root)
	e.GET("/login", authHandler.LoginForm)
	e.POST("/login", authHandler.Login)
	e.POST("/logout", authHandler.Logout)
	e.GET("/signup", authHandler.SignupForm)
	e.POST("/signup", authHandler.Signup)
	e.GET("/home", authHandler.Home, authGate)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)          // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e, nil
}
