package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/compupay/hr-backend/internal/api/handler"
	"github.com/compupay/hr-backend/internal/api/middleware"
	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/ports"
)

// Options tunes the HTTP surface.
type Options struct {
	CORSOrigins      []string
	BodyLimit        string
	ResponseCacheTTL time.Duration
	Cookie           handler.CookieOptions
	// Registerer and Gatherer back the HTTP metrics; nil selects the
	// prometheus defaults.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Auth    ports.AuthService
	Users   ports.UserService
	Cache   middleware.CacheStore
	Limiter middleware.Limiter
	Health  map[string]handler.Pinger
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	bodyLimit := opts.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "5M"
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     origins,
		AllowCredentials: !(len(origins) == 1 && origins[0] == "*"),
		ExposeHeaders:    []string{echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.Gzip())
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "compupay",
		Registerer: opts.Registerer,
	}))

	authHandler := handler.NewAuthHandler(deps.Auth, opts.Cookie)
	userHandler := handler.NewUserHandler(deps.Users)
	healthHandler := handler.NewHealthHandler(deps.Health)
	requireAuth := middleware.Auth(deps.Auth)
	admins := middleware.RBAC(domain.RoleAdmin, domain.RoleSuperAdmin)

	// --- Auth routes ---
	auth := e.Group("/v1/auth")
	limited := middleware.RateLimit(deps.Limiter, deps.Log)
	auth.POST("/login", authHandler.Login, limited)
	auth.POST("/register", authHandler.Register, limited)
	auth.POST("/send-otp", authHandler.SendOTP, limited)
	auth.POST("/forget-password", authHandler.ForgetPassword, limited)
	auth.POST("/verify-otp", authHandler.VerifyOTP, limited)
	auth.POST("/reset-password", authHandler.ResetPassword, limited)
	auth.POST("/refresh", authHandler.Refresh, limited)
	auth.GET("/me", authHandler.Me, requireAuth)

	// --- Users ---
	users := e.Group("/v1/users", requireAuth, admins)
	users.GET("", userHandler.List, middleware.ResponseCache(deps.Cache, "users", opts.ResponseCacheTTL, deps.Log))
	users.DELETE("/:id", userHandler.Delete, middleware.PurgeCache(deps.Cache, "users", deps.Log))

	// --- Health probes and tooling (no auth required) ---
	e.GET("/hello-world", handler.HelloWorld)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: opts.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return domain.ErrRouteNotFound
	})

	return e
}
