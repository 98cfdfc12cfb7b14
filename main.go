package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitecraft/siteadmin/handlers"
	"github.com/sitecraft/siteadmin/internal/config"
	"github.com/sitecraft/siteadmin/internal/document/handler"
	"github.com/sitecraft/siteadmin/internal/document/service"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/internal/tokens"
	"github.com/sitecraft/siteadmin/pkg/logger"
	"github.com/sitecraft/siteadmin/pkg/metrics"
	"github.com/sitecraft/siteadmin/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: store=%s assets=%s mongo=%v redis=%v jwt_secret_set=%v",
		cfg.Store.Backend, cfg.Assets.Backend, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.JWT.Secret != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open backends: %v", err)
	}
	defer b.Close()

	svc := service.New(b.repo)
	if err := svc.Bootstrap(ctx); err != nil {
		logger.Fatalf("failed to seed documents: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := newRouter(cfg, svc, b, reg)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Starting store service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
}

// newRouter wires the HTTP surface: document and asset routes, the write
// guard, health, readiness, metrics and swagger.
func newRouter(cfg *config.Config, svc service.Service, b *backends, reg *prometheus.Registry) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Permissive CORS for the admin UI; OPTIONS is answered here.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	var guard []gin.HandlerFunc
	var revocations *tokens.Revocations
	if cfg.JWT.Secret != "" {
		if b.redis != nil {
			revocations = tokens.NewRevocations(b.redis)
		}
		ver := tokens.NewVerifier(cfg.JWT.Secret, tokens.WithRevocations(revocations))
		guard = append(guard, middleware.AuthMiddleware(ver))
	}
	// after auth so authenticated editors are limited per subject
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && b.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			guard = append(guard, middleware.RedisRateLimitMiddleware(b.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			guard = append(guard, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	handler.RegisterDocumentRoutes(r, svc, guard...)
	handlers.RegisterAssetRoutes(r, b.assets, guard...)
	handlers.RegisterSwagger(r)
	if revocations != nil {
		handlers.RegisterTokenRoutes(r, revocations, guard...)
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// ready only when the network dependencies answer and the store serves reads
	r.GET("/ready", func(c *gin.Context) {
		ctx := c.Request.Context()
		deps := b.ready(ctx)
		_, err := svc.Get(ctx, site.KindContent)
		deps["store"] = err == nil

		status, code := "ready", http.StatusOK
		for _, ok := range deps {
			if !ok {
				status, code = "not_ready", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return r
}
