// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jarekbird/telegram-receiver/internal/config"
	"github.com/jarekbird/telegram-receiver/internal/dispatch"
	"github.com/jarekbird/telegram-receiver/internal/http/handlers"
	"github.com/jarekbird/telegram-receiver/internal/http/middleware"
	"github.com/jarekbird/telegram-receiver/internal/telegram"
)

// Deps carries the application collaborators the HTTP layer exposes. All
// fields are interfaces (or values) owned by the caller; the router only
// wires them into handlers.
type Deps struct {
	// Updates consumes parsed Telegram updates (the message handler).
	Updates handlers.UpdateHandler
	// Pending resolves completion callbacks to their originating chats.
	Pending handlers.PendingTaker
	// Replies delivers relayed results back to Telegram.
	Replies handlers.Replier
	// Telegram backs the webhook management endpoints.
	Telegram telegram.API
	// RedisPing and DBPing are the health-probe hooks; nil disables a probe.
	RedisPing handlers.Pinger
	DBPing    handlers.Pinger
	// Version is stamped into /health responses.
	Version string
	// Logger is the base logger handed to fire-and-forget update handling.
	Logger zerolog.Logger
}

// machineIngress marks the routes whose callers are services rather than
// browsers: Telegram webhook deliveries and automation completion callbacks.
// Both authenticate with shared secrets and retry on failure, so the per-IP
// rate limiter skips them.
var machineIngress = map[string]struct{}{
	"/telegram/webhook":       {},
	"/cursor-runner/callback": {},
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// relay routes.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Machine-ingress rate bypass marker
//  8. Rate limiter (per IP, skipped for machine ingress)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB; Telegram updates and runner callbacks
	// are far below this)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Exempt secret-authenticated service routes from rate limiting
	r.Use(func(c *gin.Context) {
		if _, ok := machineIngress[c.Request.URL.Path]; ok {
			middleware.MarkRateBypass(c)
		}
		c.Next()
	})

	// 8) Token-bucket rate limiter per IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Secret"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
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
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Secret"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Dependency injection: handlers ← services/config
	webhook := &handlers.WebhookHandler{
		Secret:  cfg.Telegram.WebhookSecret,
		Updates: deps.Updates,
		Policy: dispatch.Policy{
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			Delay:       cfg.Dispatch.RetryDelay,
			Timeout:     cfg.Dispatch.AttemptTimeout,
		},
		Logger: deps.Logger,
	}
	admin := &handlers.AdminHandler{
		Secret:        cfg.AdminSecret,
		Telegram:      deps.Telegram,
		WebhookURL:    cfg.Telegram.WebhookURL,
		WebhookSecret: cfg.Telegram.WebhookSecret,
	}
	callback := &handlers.CallbackHandler{
		Secret:  cfg.Runner.CallbackSecret,
		Pending: deps.Pending,
		Replies: deps.Replies,
	}
	health := &handlers.HealthHandler{
		Version:   deps.Version,
		RedisPing: deps.RedisPing,
		DBPing:    deps.DBPing,
	}

	// Liveness/health
	r.GET("/health", health.Health)

	// Telegram ingress and webhook management
	r.POST("/telegram/webhook", webhook.Receive)
	r.POST("/telegram/set_webhook", admin.SetWebhook)
	r.GET("/telegram/webhook_info", admin.WebhookInfo)
	r.DELETE("/telegram/webhook", admin.DeleteWebhook)

	// Automation completion callbacks
	r.POST("/cursor-runner/callback", callback.Receive)
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
