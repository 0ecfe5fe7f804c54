package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cloudylake/tenantapi/internal/handler"
	"github.com/cloudylake/tenantapi/internal/infrastructure/logger"
	"github.com/cloudylake/tenantapi/internal/infrastructure/redis"
	"github.com/cloudylake/tenantapi/internal/mail"
	"github.com/cloudylake/tenantapi/internal/observability/metrics"
	"github.com/cloudylake/tenantapi/internal/observability/tracing"
	"github.com/cloudylake/tenantapi/internal/repository"
	"github.com/cloudylake/tenantapi/internal/respond"
	"github.com/cloudylake/tenantapi/internal/security/audit"
	"github.com/cloudylake/tenantapi/internal/security/auth"
	"github.com/cloudylake/tenantapi/internal/security/middleware"
	"github.com/cloudylake/tenantapi/internal/security/ratelimit"
	"github.com/cloudylake/tenantapi/internal/service"
	"github.com/cloudylake/tenantapi/internal/storage"
	"github.com/cloudylake/tenantapi/pkg/config"
	"github.com/cloudylake/tenantapi/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	log.Info("starting tenant API server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "tenantapi", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Infrastructure clients
	redisClient, err := redis.NewClient(cfg.Redis.URL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	pool, err := database.NewConnectionPool(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	images, err := storage.NewDiskImageStore(cfg.UploadDir)
	if err != nil {
		log.Error("failed to initialize image store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Mail, log)
	if err != nil {
		log.Error("failed to initialize mailer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Repositories
	db := pool.DB()
	userRepo := repository.NewPostgresUserRepository(db, log)
	tenantRepo := repository.NewPostgresTenantRepository(db, log)
	postRepo := repository.NewPostgresPostRepository(db, log)
	configRepo := repository.NewPostgresConfigRepository(db, log)
	employeeRepo := repository.NewPostgresEmployeeRepository(db, log)
	priceRepo := repository.NewPostgresPriceListRepository(db, log)
	categoryRepo := repository.NewPostgresCategoryRepository(db, log)
	galleryRepo := repository.NewPostgresGalleryRepository(db, log)

	// 6. Security components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)
	hasher := auth.NewHasher(cfg.BcryptCost)
	auditLogger := audit.NewLogger(log)
	responder := respond.New(log, cfg.IsDevelopment())
	authMW := middleware.NewAuth(userRepo, tokenManager, responder, log)
	limiter := ratelimit.NewLimiter(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow, log)

	// 7. Services
	authService := service.NewAuthService(userRepo, hasher, tokenManager, mailer, auditLogger, cfg, log)
	tenantService := service.NewTenantService(tenantRepo, userRepo, tokenManager, mailer, auditLogger, cfg, log)
	userService := service.NewUserService(userRepo, auditLogger, log)

	// 8. Handlers and routes
	router := handler.NewRouter(handler.RouterDeps{
		Auth:       handler.NewAuthHandler(authService, responder, cfg.JWT.SessionTTL, !cfg.IsDevelopment()),
		Users:      handler.NewUserHandler(userService, responder),
		Tenants:    handler.NewTenantHandler(tenantService, responder),
		Posts:      handler.NewPostHandler(postRepo, images, responder),
		Configs:    handler.NewConfigHandler(configRepo, responder),
		Employees:  handler.NewEmployeeHandler(employeeRepo, images, responder),
		PriceList:  handler.NewPriceListHandler(priceRepo, responder),
		Categories: handler.NewCategoryHandler(categoryRepo, responder),
		Gallery:    handler.NewGalleryHandler(galleryRepo, images, responder),
		Images:     handler.NewImageHandler(images, responder),
		Health: handler.NewHealthHandler(responder, map[string]handler.HealthChecker{
			"database": pool.Health,
			"redis":    redisClient.Ping,
		}),
		AuthMW:    authMW,
		Limiter:   limiter,
		Responder: responder,
	})

	// 9. Outer chain: request id -> metrics -> CORS -> body cap, then
	// otel instrumentation around the whole thing
	rootHandler := otelhttp.NewHandler(
		middleware.Chain(router,
			middleware.RequestID(log),
			metrics.HTTPMetricsMiddleware,
			middleware.CORS(cfg.CORSAllowedOrigins),
			middleware.LimitBody(cfg.MaxUploadBytes),
		),
		"tenantapi",
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitRequests),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
