package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jmerrifield20/intelshare/internal/api/handler"
	"github.com/jmerrifield20/intelshare/internal/config"
	"github.com/jmerrifield20/intelshare/internal/shareledger"
	"github.com/jmerrifield20/intelshare/internal/sharing"
	"github.com/jmerrifield20/intelshare/internal/trust"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("intelshare exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.File == "" {
		logger.Warn("no config file found, using defaults and env vars")
	} else {
		logger.Info("config loaded", zap.String("file", cfg.File))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Stores ───────────────────────────────────────────────────────────────
	var (
		store  trust.Store
		ledger shareledger.Ledger
		pinger handler.Pinger
	)
	if cfg.Database.URL != "" {
		db, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")

		store = trust.NewPostgresStore(db)
		ledger = shareledger.NewPostgresLedger(db, logger)
		pinger = db
	} else {
		logger.Warn("database.url not set, using in-memory stores")
		mem, err := memoryStore(cfg)
		if err != nil {
			return err
		}
		store = mem
		ledger = shareledger.New()
	}

	auditor, err := shareledger.NewAuditor(ledger, cfg.Ledger.VerifySchedule, logger)
	if err != nil {
		return fmt.Errorf("ledger.verify_schedule: %w", err)
	}
	if err := auditor.Check(ctx); err != nil {
		logger.Warn("share ledger integrity check FAILED", zap.Error(err))
	} else {
		root, _ := ledger.Root(ctx)
		logger.Info("share ledger verified", zap.String("root", root))
	}
	auditor.Start()

	// ── Services ─────────────────────────────────────────────────────────────
	resolver := trust.NewResolver(store, cfg.ResolverConfig(), logger)
	resolver.StartCacheEviction(ctx, cfg.Trust.EvictInterval)

	svc := sharing.New(store, resolver, cfg.Anonymizer(), ledger,
		sharing.Config{Workers: cfg.Sharing.Workers}, logger)

	// ── HTTP ─────────────────────────────────────────────────────────────────
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.PrometheusMiddleware())

	origins := cfg.Server.CORSOrigins
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           12 * time.Hour,
	}))

	maxBody := cfg.Server.MaxBodyBytes
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
		c.Next()
	})

	if rps := cfg.Server.RateLimitRPS; rps > 0 {
		router.Use(handler.RateLimiter(ctx, rps, int(rps*2)+1))
	}
	router.Use(requestLogger(logger))

	router.GET("/healthz", handler.HealthHandler(pinger, logger))
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	handler.NewBundleHandler(svc, cfg.Platform.PublisherOrg, logger).Register(v1)
	handler.NewTrustHandler(resolver).Register(v1)
	handler.NewLedgerHandler(ledger, logger).Register(v1)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("intelshare HTTP listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http listen: %w", err)
	}
	logger.Info("shutting down intelshare...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	auditor.Stop(shutdownCtx)

	logger.Info("intelshare stopped")
	return nil
}

// memoryStore loads trust.fixture, if set, and makes sure the publisher
// organization exists.
func memoryStore(cfg *config.Config) (*trust.MemoryStore, error) {
	mem := trust.NewMemoryStore()
	if cfg.Trust.Fixture != "" {
		f, err := os.Open(cfg.Trust.Fixture)
		if err != nil {
			return nil, fmt.Errorf("trust.fixture: %w", err)
		}
		defer f.Close()
		fixture, err := trust.LoadFixture(f)
		if err != nil {
			return nil, fmt.Errorf("trust.fixture: %w", err)
		}
		mem = fixture.MemoryStore()
	}
	if id := cfg.Platform.PublisherOrg; id != "" {
		if _, err := mem.Organization(context.Background(), id); err != nil {
			mem.AddOrganization(trust.Organization{ID: id, Name: id})
		}
	}
	return mem, nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
