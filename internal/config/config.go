package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Links     LinksConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port             string        `envconfig:"SERVER_PORT" required:"true"`
	Host             string        `envconfig:"SERVER_HOST" required:"true"`
	BaseURL          string        `envconfig:"SERVER_BASE_URL" required:"true"`
	ReadTimeout      time.Duration `envconfig:"SERVER_READ_TIMEOUT" required:"true"`
	WriteTimeout     time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" required:"true"`
	IdleTimeout      time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" required:"true"`
	ShutdownTimeout  time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" required:"true"`
	ReservedPrefixes []string      `envconfig:"SERVER_RESERVED_PREFIXES" default:"api"`
	AllowedOrigins   []string      `envconfig:"SERVER_ALLOWED_ORIGINS"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if err := validateAbsoluteURL(c.BaseURL); err != nil {
		return fmt.Errorf("base URL: %w", err)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if len(c.ReservedPrefixes) == 0 {
		return fmt.Errorf("at least one reserved prefix is required")
	}
	for _, p := range c.ReservedPrefixes {
		if p == "" || strings.Contains(p, "/") {
			return fmt.Errorf("invalid reserved prefix %q (must be a single path segment)", p)
		}
	}
	return nil
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds database connection configuration. The DB_HOST group
// applies to the postgres driver, DB_SQLITE_PATH to the sqlite driver.
type DatabaseConfig struct {
	Driver      string `envconfig:"DB_DRIVER" default:"postgres"`
	Host        string `envconfig:"DB_HOST"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER"`
	Password    string `envconfig:"DB_PASSWORD"`
	Name        string `envconfig:"DB_NAME"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns    int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	SQLitePath  string `envconfig:"DB_SQLITE_PATH" default:"shortlink.db"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("invalid driver: %s (must be one of: postgres, sqlite)", c.Driver)
	}

	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.User == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max connections must be positive")
	}
	if c.MinConns <= 0 {
		return fmt.Errorf("min connections must be positive")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections (%d) cannot be greater than max connections (%d)", c.MinConns, c.MaxConns)
	}

	validSSLModes := map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	if !validSSLModes[c.SSLMode] {
		return fmt.Errorf("invalid SSL mode: %s (must be one of: disable, require, verify-ca, verify-full)", c.SSLMode)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment    string `envconfig:"APP_ENV" required:"true"`   // development, staging, production, test
	LogLevel       string `envconfig:"LOG_LEVEL" required:"true"` // debug, info, warn, error
	ServiceName    string `envconfig:"SERVICE_NAME" default:"shortlink"`
	ServiceVersion string `envconfig:"SERVICE_VERSION" default:"dev"`
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	return nil
}

// IsProduction reports whether the app runs in production.
func (c *AppConfig) IsProduction() bool { return c.Environment == "production" }

// Link id UUID versions.
const (
	IDVersionV4 = "v4"
	IDVersionV7 = "v7"
)

// LinksConfig tunes the link service.
type LinksConfig struct {
	SlugMaxRetries       int    `envconfig:"LINK_SLUG_MAX_RETRIES" default:"5"`
	PreserveSlugOnUpdate bool   `envconfig:"LINK_PRESERVE_SLUG_ON_UPDATE" default:"false"`
	IDVersion            string `envconfig:"LINK_ID_VERSION" default:"v7"`
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	if c.SlugMaxRetries <= 0 {
		return fmt.Errorf("slug max retries must be positive")
	}
	if c.SlugMaxRetries > 100 {
		return fmt.Errorf("slug max retries must be at most 100, got %d", c.SlugMaxRetries)
	}
	switch c.IDVersion {
	case IDVersionV4, IDVersionV7:
	default:
		return fmt.Errorf("invalid id version %q (want %s or %s)", c.IDVersion, IDVersionV4, IDVersionV7)
	}
	return nil
}

// MinJWTSecretLength is the minimum HS256 key size in bytes.
const MinJWTSecretLength = 32

// AuthConfig holds session and Google sign-in configuration.
type AuthConfig struct {
	JWTSecret          string        `envconfig:"AUTH_JWT_SECRET" required:"true"`
	SessionTTL         time.Duration `envconfig:"AUTH_SESSION_TTL" default:"168h"`
	CookieName         string        `envconfig:"AUTH_COOKIE_NAME" default:"shortlink_session"`
	CookieSecure       bool          `envconfig:"AUTH_COOKIE_SECURE" default:"true"`
	GoogleClientID     string        `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string        `envconfig:"GOOGLE_REDIRECT_URL"`
	PostLoginRedirect  string        `envconfig:"AUTH_POST_LOGIN_REDIRECT" default:"/"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT secret must be at least %d bytes", MinJWTSecretLength)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.CookieName == "" {
		return fmt.Errorf("cookie name cannot be empty")
	}

	// Google sign-in is optional; when configured all three values are needed.
	set := 0
	for _, v := range []string{c.GoogleClientID, c.GoogleClientSecret, c.GoogleRedirectURL} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL must be set together")
	}
	if c.GoogleRedirectURL != "" {
		if err := validateAbsoluteURL(c.GoogleRedirectURL); err != nil {
			return fmt.Errorf("google redirect URL: %w", err)
		}
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *AuthConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// RateLimitConfig holds configuration for the creation endpoint limiter.
type RateLimitConfig struct {
	Enabled     bool          `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
	Requests    int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	Window      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	RedisURL    string        `envconfig:"REDIS_URL"`
	TrustProxy  bool          `envconfig:"RATE_LIMIT_TRUST_PROXY" default:"false"`
	TrustedHops int           `envconfig:"RATE_LIMIT_TRUSTED_HOPS" default:"1"` // proxies appending to X-Forwarded-For
}

// ClientHops returns how many X-Forwarded-For entries to trust, zero when
// clients are keyed by peer address.
func (c *RateLimitConfig) ClientHops() int {
	if !c.TrustProxy {
		return 0
	}
	return c.TrustedHops
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Requests <= 0 {
		return fmt.Errorf("requests per window must be positive")
	}
	if c.Window < time.Second {
		return fmt.Errorf("window must be at least 1s, got %v", c.Window)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("redis URL is required when rate limiting is enabled")
	}
	if c.TrustProxy && (c.TrustedHops < 1 || c.TrustedHops > 10) {
		return fmt.Errorf("trusted hops must be between 1 and 10, got %d", c.TrustedHops)
	}
	return nil
}

func validateAbsoluteURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q must be absolute", raw)
	}
	return nil
}

type section struct {
	name string
	spec interface{ Validate() error }
}

// Load loads configuration from environment variables only.
// (Do .env loading in cmd/server/main.go for dev, not here.)
func Load() (*Config, error) {
	cfg := &Config{}

	for _, s := range []section{
		{"Server", &cfg.Server},
		{"Database", &cfg.Database},
		{"App", &cfg.App},
		{"Links", &cfg.Links},
		{"Auth", &cfg.Auth},
		{"RateLimit", &cfg.RateLimit},
	} {
		if err := envconfig.Process("", s.spec); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.spec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}
