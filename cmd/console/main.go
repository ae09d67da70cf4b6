package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibra/booking-console-go/internal/config"
	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/handler"
	"github.com/vibra/booking-console-go/internal/infra/cache"
	"github.com/vibra/booking-console-go/internal/infra/observability"
	"github.com/vibra/booking-console-go/internal/infra/pubsub"
	"github.com/vibra/booking-console-go/internal/infra/resilience"
	"github.com/vibra/booking-console-go/internal/infra/storage"
	"github.com/vibra/booking-console-go/internal/infra/supabase"
	"github.com/vibra/booking-console-go/internal/port"
	"github.com/vibra/booking-console-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
		zap.Bool("use_redis", cfg.UseRedis),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "booking-console")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Supabase client (PostgREST + GoTrue) ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Proof storage (S3) ---
	s3Store, err := storage.NewS3(context.Background(), storage.S3Config{
		Region:               cfg.S3Region,
		AccessKeyID:          cfg.S3AccessKeyID,
		SecretAccessKey:      cfg.S3SecretAccessKey,
		Bucket:               cfg.S3Bucket,
		PresignExpireMinutes: cfg.S3PresignExpireMin,
	}, logger)
	if err != nil {
		logger.Fatal("failed to init S3 storage", zap.Error(err))
	}

	// --- Cache and session bus ---
	// Redis makes both span instances; otherwise in-memory works fine for
	// a single node.
	var eventCache port.Cache[[]domain.Event]
	var bus port.SessionBus
	if cfg.UseRedis {
		redisClient, err := cache.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		eventCache = cache.NewRedis[[]domain.Event](redisClient, "console", cfg.CacheTTL, logger)
		bus = pubsub.NewRedisBus(redisClient, logger)
		logger.Info("using Redis cache and session bus", zap.String("addr", cfg.RedisAddr))
	} else {
		inMem := cache.New[[]domain.Event](cfg.CacheTTL)
		defer inMem.Close()
		eventCache = inMem
		bus = pubsub.NewInMemoryBus()
	}

	// --- Services ---
	roleResolver := service.NewRoleResolver(supabaseClient, metrics, logger)
	authSvc := service.NewAuthService(
		supabaseClient,
		supabaseClient,
		supabaseClient,
		bus,
		cfg.JWTSecret,
		cfg.JWTAccessTTL,
		cfg.JWTRefreshTTL,
		logger,
	)
	userSvc := service.NewUserService(supabaseClient, bus, logger)
	bookingSvc := service.NewBookingService(
		supabaseClient,
		supabaseClient,
		s3Store,
		eventCache,
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Auth:    authSvc,
		Users:   userSvc,
		Booking: bookingSvc,
		Roles:   roleResolver,
		Bus:     bus,
		Metrics: metrics,
		Logger:  logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
