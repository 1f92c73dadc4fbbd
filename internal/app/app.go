package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/ayiooo/shortlink/internal/auth"
	"github.com/ayiooo/shortlink/internal/config"
	"github.com/ayiooo/shortlink/internal/db/migrations"
	db "github.com/ayiooo/shortlink/internal/db/sqlc"
	"github.com/ayiooo/shortlink/internal/httpx"
	"github.com/ayiooo/shortlink/internal/idgen"
	"github.com/ayiooo/shortlink/internal/ratelimit"
	"github.com/ayiooo/shortlink/internal/server"
	"github.com/ayiooo/shortlink/internal/shortener"
)

// App holds the application dependencies and configuration.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Server *server.Server

	store *store
	redis *redis.Client
}

// store is the opened link store for the configured driver.
type store struct {
	repo  shortener.Repository
	ping  server.PingFunc
	close func()
}

// New loads configuration from the environment and wires the application.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return Build(ctx, cfg, NewLogger(cfg.App.LogLevel))
}

// Build wires the application from an already loaded configuration.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("starting application",
		"env", cfg.App.Environment,
		"version", cfg.App.ServiceVersion,
		"driver", cfg.Database.Driver,
	)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, store: st}

	sessions, err := auth.NewSessions(auth.SessionConfig{
		Secret:       cfg.Auth.JWTSecret,
		TTL:          cfg.Auth.SessionTTL,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
	})
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("failed to set up sessions: %w", err)
	}

	var google auth.GoogleConfig
	if cfg.Auth.GoogleEnabled() {
		google = auth.GoogleConfig{
			ClientID:     cfg.Auth.GoogleClientID,
			ClientSecret: cfg.Auth.GoogleClientSecret,
			RedirectURL:  cfg.Auth.GoogleRedirectURL,
		}
	} else {
		logger.Warn("google sign-in is not configured; owned links are unavailable")
	}
	google.PostLoginRedirect = cfg.Auth.PostLoginRedirect
	google.Sessions = sessions
	google.Logger = logger
	google.SecureCookies = cfg.Auth.CookieSecure

	var limit httpx.Middleware
	if cfg.RateLimit.Enabled {
		limit, err = a.setupRateLimit(ctx)
		if err != nil {
			a.Shutdown()
			return nil, err
		}
	}

	svc := shortener.NewService(st.repo, &shortener.ServiceConfig{
		SlugMaxRetries:       cfg.Links.SlugMaxRetries,
		PreserveSlugOnUpdate: cfg.Links.PreserveSlugOnUpdate,
		ReservedPrefixes:     cfg.Server.ReservedPrefixes,
	})

	a.Server = server.New(cfg, logger, server.Deps{
		Links: shortener.NewHandler(shortener.HandlerConfig{
			Service:  svc,
			Logger:   logger,
			BaseURL:  cfg.Server.BaseURL,
			Identify: auth.UserID,
		}),
		Resolver: shortener.NewResolver(shortener.ResolverConfig{
			Links:            st.repo,
			Logger:           logger,
			BaseURL:          cfg.Server.BaseURL,
			ReservedPrefixes: cfg.Server.ReservedPrefixes,
		}),
		Sessions:  sessions,
		Google:    auth.NewGoogleHandler(google),
		RateLimit: limit,
		Store:     st.ping,
	})

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"rate_limit", cfg.RateLimit.Enabled,
	)

	return a, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown releases the store and Redis connections.
func (a *App) Shutdown() {
	a.Logger.Info("shutting down application")

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err.Error())
		}
		a.redis = nil
	}

	if a.store != nil {
		a.store.close()
		a.store = nil
		a.Logger.Info("database connection closed")
	}
}

func (a *App) setupRateLimit(ctx context.Context) (httpx.Middleware, error) {
	cfg := a.Config.RateLimit

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	a.redis = redis.NewClient(opt)

	// Limiter fails open; an unreachable Redis only warns.
	if err := a.redis.Ping(ctx).Err(); err != nil {
		a.Logger.Warn("redis is unreachable; creation will not be rate limited until it is",
			"error", err.Error(),
		)
	}

	limiter, err := ratelimit.NewRedisLimiter(a.redis, ratelimit.Config{
		Requests: cfg.Requests,
		Window:   cfg.Window,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up rate limiter: %w", err)
	}

	return ratelimit.Middleware(ratelimit.MiddlewareConfig{
		Limiter:     limiter,
		Logger:      a.Logger,
		TrustedHops: cfg.ClientHops(),
	}), nil
}

// NewLogger creates a structured JSON logger at the given level.
func NewLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store, error) {
	repoCfg := &shortener.RepositoryConfig{IDGenerator: linkIDs(cfg.Links.IDVersion)}

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		return openSQLite(ctx, cfg.Database, repoCfg, logger)
	default:
		return openPostgres(ctx, cfg.Database, repoCfg, logger)
	}
}

// linkIDs returns the link id generator for the configured UUID version.
func linkIDs(version string) idgen.Generator {
	if version == config.IDVersionV4 {
		return idgen.NewV4()
	}
	return idgen.NewV7(1)
}

// openPostgres establishes a connection pool to the PostgreSQL database.
func openPostgres(ctx context.Context, cfg config.DatabaseConfig, repoCfg *shortener.RepositoryConfig, logger *slog.Logger) (*store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns

	logger.Info("connecting to database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := migrations.ApplyPostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database schema applied")
	}

	logger.Info("database connection established")

	return &store{
		repo:  shortener.NewPostgresRepository(db.New(pool), repoCfg),
		ping:  pool.Ping,
		close: pool.Close,
	}, nil
}

// openSQLite opens the embedded SQLite database file.
func openSQLite(ctx context.Context, cfg config.DatabaseConfig, repoCfg *shortener.RepositoryConfig, logger *slog.Logger) (*store, error) {
	logger.Info("opening sqlite database", "path", cfg.SQLitePath)

	conn, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := migrations.ApplySQLite(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
		logger.Info("database schema applied")
	}

	return &store{
		repo:  shortener.NewSQLiteRepository(conn, repoCfg),
		ping:  conn.PingContext,
		close: func() { _ = conn.Close() },
	}, nil
}
