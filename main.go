package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/audit"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/auth"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/cache"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/config"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/database"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/handlers"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/logging"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/middleware"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/repositories"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("redis_enabled", cfg.Redis.Enabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:              cfg.Database.URL(),
		MaxConnections:   cfg.Database.MaxConnections,
		StatementTimeout: cfg.Database.StatementTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	sidebarCache := newSidebarCache(ctx, cfg, logger)

	verifier, err := auth.NewJWKSVerifier(ctx, &auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		Audience:           cfg.Auth.Audience,
		ClockSkew:          cfg.Auth.ClockSkew,
	})
	if err != nil {
		logger.Fatal("Failed to initialize JWKS verifier", zap.Error(err))
	}

	cookieSettings := auth.DeriveCookieSettings(cfg.BaseURL, cfg.CookieDomain)
	var sessions *auth.SessionStore
	if cfg.Auth.SessionSecret != "" {
		sessions = auth.NewSessionStore(cfg.Auth.SessionSecret, cfg.Auth.SessionMaxAge, cookieSettings)
	} else {
		logger.Warn("SESSION_SECRET not set; database-backed session cookies are disabled")
	}

	// Repositories
	userRepo := repositories.NewUserRepository()
	sessionRepo := repositories.NewSessionRepository()
	workflowRepo := repositories.NewWorkflowRepository()
	nodeRepo := repositories.NewNodeRepository()
	edgeRepo := repositories.NewEdgeRepository()

	// Services
	authService := auth.NewAuthService(verifier, sessions, sessionRepo, cfg.Auth.JWTCookieName, logger)
	workflowService := services.NewWorkflowService(workflowRepo, nodeRepo, edgeRepo, sidebarCache,
		audit.NewSecurityAuditor(logger), logger)
	userService := services.NewUserService(userRepo, sessionRepo, logger)

	authMiddleware := auth.NewMiddleware(authService, logger)
	scopeMiddleware := handlers.ScopeMiddleware(database.WithScopeContext(db, logger))

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewWorkflowsHandler(workflowService, logger).RegisterRoutes(mux, authMiddleware, scopeMiddleware)
	handlers.NewAuthHandler(userService, sessions, cfg, logger).RegisterRoutes(mux, authMiddleware, scopeMiddleware)
	mux.HandleFunc("/", handlers.NotFound)

	server := &http.Server{
		Addr: net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler: middleware.Chain(mux,
			middleware.Recoverer(logger),
			middleware.RequestLogger(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		tlsEnabled := cfg.TLSCertPath != ""
		logger.Info("Starting ekaya-mindmap",
			zap.String("addr", server.Addr),
			zap.Bool("tls", tlsEnabled),
			zap.String("version", cfg.Version))

		if tlsEnabled {
			serverErrors <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// runMigrations applies pending schema migrations over a short-lived database/sql handle.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return database.RunMigrations(sqlDB, logger)
}

// newSidebarCache returns the Redis-backed cache when configured and reachable.
// Any other case degrades to the no-op cache; the database stays authoritative.
func newSidebarCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) cache.SidebarCache {
	sidebarCache, release, err := cache.NewSidebarCache(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable; sidebar cache disabled", zap.String("error", logging.SanitizeError(err)))
	}

	context.AfterFunc(ctx, release)
	return sidebarCache
}
