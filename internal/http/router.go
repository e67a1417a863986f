// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, rate limiting and
// webhook authentication.
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
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/config"
	"github.com/voucherverse/storefront-api/internal/content"
	"github.com/voucherverse/storefront-api/internal/http/handlers"
	"github.com/voucherverse/storefront-api/internal/http/middleware"
	"github.com/voucherverse/storefront-api/internal/realtime"
	"github.com/voucherverse/storefront-api/internal/repo"
	"github.com/voucherverse/storefront-api/internal/services"
)

// Text limits of visitor submissions.
const (
	maxReviewRunes      = 2000
	maxTestimonialRunes = 2000
)

// Deps are the process-wide collaborators the routes are built on.
// Cache may be nil (no listing cache); Site nil serves the default copy.
type Deps struct {
	DB     *gorm.DB
	Queue  services.Enqueuer
	Broker realtime.Broker
	Cache  *services.ListingCache
	Site   *content.Site
	Log    zerolog.Logger
}

// idempotencyStore adapts the repository helpers to
// middleware.IdempotencyStore.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup proxies repo.GetIdempotency; unknown and expired keys are misses.
func (s idempotencyStore) Lookup(ctx context.Context, scope, key string, now time.Time) (middleware.StoredResponse, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return middleware.StoredResponse{}, false, nil
	}
	if err != nil {
		return middleware.StoredResponse{}, false, err
	}
	return middleware.StoredResponse{Status: rec.Status, Body: rec.Body}, true, nil
}

// Save proxies repo.CreateIdempotency. A concurrent save of the same key
// already stored an equivalent response, so ErrDuplicate is not an error.
func (s idempotencyStore) Save(ctx context.Context, scope, key string, resp middleware.StoredResponse) error {
	_, err := repo.CreateIdempotency(ctx, s.db, scope, key, resp.Status, resp.Body, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the websocket hub serving the streams.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip (websocket streams excluded)
//  8. Idempotency replay (before rate limiter so replays bypass it)
//  9. Rate limiter (per IP; probes and streams exempt)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) *realtime.Hub {
	r.HandleMethodNotAllowed = true
	base := cfg.APIBasePath
	if base == "/" {
		base = ""
	}
	streamPaths := []string{base + "/claims/:email_id/stream", base + "/events"}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression; hijacked websocket connections must not be wrapped
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`/stream$`, `^` + base + `/events$`}),
	))

	// 8) Idempotent replay of POST responses
	r.Use(middleware.Idempotency(
		middleware.IdempotencyOptions{MaxLen: 128},
		idempotencyStore{db: d.DB, ttl: cfg.IdempotencyTTL},
	))

	// 9) Token-bucket rate limiter per IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP()).
		Exempt(append([]string{"/health", "/metrics"}, streamPaths...)...)
	r.Use(rl.Handler())

	// 10) CORS posture (allow all if none configured)
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{
			"X-Request-ID", "Content-Length", "ETag", "Retry-After",
			middleware.HeaderIdempotentReplay,
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// ACAO: * even without an Origin header (health checks, curl)
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
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
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		EnablePolicy:  true,
		ExposeHeaders: []string{"ETag", middleware.HeaderIdempotentReplay},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/queue/broker
	site := d.Site
	if site == nil {
		site = content.Default()
	}
	catalog := &services.CatalogService{DB: d.DB, Promo: site, Cache: d.Cache}
	hub := realtime.NewHub(d.Broker, cfg.CORS.AllowedOrigins, d.Log)
	h := handlers.New(handlers.Deps{
		Catalog:      catalog,
		Storefront:   &services.StorefrontService{DB: d.DB, Catalog: catalog},
		Claims:       &services.ClaimService{DB: d.DB, Queue: d.Queue, Events: d.Broker, Cache: d.Cache},
		Deliveries:   &services.DeliveryService{DB: d.DB, Events: d.Broker, Cache: d.Cache},
		Reviews:      &services.ReviewService{DB: d.DB, Events: d.Broker, MaxTextRunes: maxReviewRunes},
		Testimonials: &services.TestimonialService{DB: d.DB, MaxTextRunes: maxTestimonialRunes, NameLocale: language.English},
		Streams:      hub,
		Content:      site,
		BusinessID:   cfg.BusinessID,
	})

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Storefront reads
		api.GET("/business", h.GetBusiness)
		api.GET("/products", h.ListProducts)
		api.GET("/categories", h.ListCategories)
		api.GET("/services", h.ListServices)
		api.GET("/data", h.GetData)
		api.GET("/content", h.GetContent)

		// Claims
		api.POST("/claim-voucher", h.ClaimVoucher)
		api.GET("/claims/:email_id", h.GetClaim)
		api.GET("/claims/:email_id/stream", h.StreamClaim)
		api.GET("/events", h.StreamEvents)

		// Reviews and testimonials
		api.POST("/review", h.SubmitReview)
		api.GET("/reviews", h.ListReviews)
		api.POST("/testimonial", h.SubmitTestimonial)
		api.GET("/testimonials", h.ListTestimonials)

		// Mail provider callbacks
		api.POST("/email/webhook",
			middleware.WebhookAuth(middleware.WebhookAuthOptions{Secret: cfg.WebhookSecret}),
			h.EmailWebhook)
	}
	return hub
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
