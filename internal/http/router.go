// Package httpapi wires the HTTP transport (Gin) to the warehouse services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, compression,
// metrics, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/config"
	_ "github.com/tbourn/telegram-warehouse/internal/docs" // swagger spec registration
	"github.com/tbourn/telegram-warehouse/internal/http/handlers"
	"github.com/tbourn/telegram-warehouse/internal/http/middleware"
	"github.com/tbourn/telegram-warehouse/internal/ingest"
	"github.com/tbourn/telegram-warehouse/internal/lake"
	"github.com/tbourn/telegram-warehouse/internal/repo"
	"github.com/tbourn/telegram-warehouse/internal/services"
)

// Deps are the long-lived resources the API is served from.
type Deps struct {
	DB     *gorm.DB
	Lake   *lake.Store
	Loader *ingest.Loader
}

// Header names exposed to browsers besides the defaults.
var exposedHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "X-Load-Run-ID", "Idempotency-Replayed"}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the warehouse API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (metrics scrapes excluded)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per client/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.LogOptions{
		Redact:      true,
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(limitBody(maxBody))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// A key replays only while its load run is recorded and unexpired.
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			_, err := repo.GetLoadRunByKey(ctx, deps.DB, key, now)
			switch {
			case err == nil:
				return true, nil
			case errors.Is(err, repo.ErrNotFound):
				return false, nil
			default:
				return false, err
			}
		},
	))

	byClient := middleware.KeyByHeaderOrIP(cfg.ClientIDHeader)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, byClient)
	r.Use(rl.Handler())

	useCORS(r, cfg.CORS.AllowedOrigins)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/lake
	loads := services.NewLoadService(deps.DB, deps.Loader, deps.Lake)
	if cfg.Load.BatchSize > 0 {
		loads.BatchSize = cfg.Load.BatchSize
	}
	if cfg.IdempotencyTTL > 0 {
		loads.KeyTTL = cfg.IdempotencyTTL
	}
	h := handlers.New(
		services.NewChannelService(deps.DB),
		services.NewReportService(deps.DB),
		services.NewSearchService(deps.DB),
		loads,
		deps.Lake,
	)

	// Loads touch the lake and write to the store, so they get their own,
	// stricter bucket on top of the global one.
	loadLimit := middleware.NewRateLimiter(cfg.LoadRateRPS, cfg.LoadRateBurst, byClient).Handler()

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/stats/messages", h.MessageStats)

		api.GET("/channels", h.ListChannels)
		api.GET("/channels/:name/activity", h.ChannelActivity)

		api.GET("/search/messages", h.SearchMessages)

		api.GET("/reports/top-products", h.TopProducts)
		api.GET("/reports/keywords", h.Keywords)
		api.GET("/reports/visual-content", h.VisualContent)

		api.GET("/lake/partitions", h.ListPartitions)

		api.POST("/loads", loadLimit, h.PostLoad)
		api.GET("/loads", h.ListLoads)
		api.GET("/loads/:id", h.GetLoad)
	}
}

// useCORS installs the CORS posture: allow all origins when no allowlist is
// configured, otherwise echo allowlisted origins only.
func useCORS(r *gin.Engine, origins []string) {
	methods := []string{"GET", "POST", "OPTIONS"}
	headers := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Client-ID", middleware.HeaderIdempotencyKey}

	if len(origins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     methods,
			AllowHeaders:     headers,
			ExposeHeaders:    exposedHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     methods,
		AllowHeaders:     headers,
		ExposeHeaders:    exposedHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
