package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/catalog/internal/config"
	"github.com/geocoder89/catalog/internal/http/handlers"
	"github.com/geocoder89/catalog/internal/http/middlewares"
	"github.com/geocoder89/catalog/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// multipart framing on top of the image itself
const multipartOverhead = 1 << 20

type AuthService interface {
	handlers.AuthService
	middlewares.Authenticator
}

type Deps struct {
	Log      *slog.Logger
	Config   config.Config
	Auth     AuthService
	Products handlers.ProductStore
	Prom     *observability.Prom
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
	// Ready lists the dependencies /readyz pings.
	Ready map[string]handlers.Pinger
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers.RegisterValidators()

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("catalog-api"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(cfg.StorageURLPrefix))
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Route not found.")
	})
	r.NoMethod(func(ctx *gin.Context) {
		handlers.RespondFailure(ctx, http.StatusMethodNotAllowed, "Method not allowed.", nil)
	})

	health := handlers.NewHealthHandler(d.Ready)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if cfg.StorageDir != "" && cfg.StorageURLPrefix != "" {
		r.Static(cfg.StorageURLPrefix, cfg.StorageDir)
	}

	authHandler := handlers.NewAuthHandler(d.Auth)
	productsHandler := handlers.NewProductsHandler(d.Products, cfg.MaxUploadBytes)
	requireAuth := middlewares.NewAuthMiddleware(d.Auth).RequireAuth()

	limit := cfg.AuthRateLimit
	if limit <= 0 {
		limit = 10
	}
	authLimiter := middlewares.NewRateLimiter(limit, cfg.AuthRateWindow)

	api := r.Group("/api")
	{
		public := api.Group("", middlewares.MaxBodyBytes(64<<10), middlewares.RequireJSON())
		public.POST("/register", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
		public.POST("/login", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)

		private := api.Group("", requireAuth)
		private.GET("/profile", authHandler.Profile)
		private.POST("/logout", authHandler.Logout)

		products := private.Group("/products", middlewares.MaxBodyBytes(cfg.MaxUploadBytes+multipartOverhead))
		products.GET("", productsHandler.List)
		products.POST("", productsHandler.Create)
		products.GET("/:id", productsHandler.Get)
		products.PUT("/:id", productsHandler.Update)
		products.POST("/:id", productsHandler.Update)
		products.DELETE("/:id", productsHandler.Delete)
	}

	return r
}
