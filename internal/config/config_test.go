package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var knownKeys = []string{
	"SERVER_PORT", "SERVER_HOST", "SERVER_BASE_URL", "SERVER_READ_TIMEOUT",
	"SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT", "SERVER_SHUTDOWN_TIMEOUT",
	"SERVER_RESERVED_PREFIXES", "SERVER_ALLOWED_ORIGINS",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"DB_SSLMODE", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SQLITE_PATH", "DB_AUTO_MIGRATE",
	"APP_ENV", "LOG_LEVEL", "SERVICE_NAME", "SERVICE_VERSION",
	"LINK_SLUG_MAX_RETRIES", "LINK_PRESERVE_SLUG_ON_UPDATE",
	"AUTH_JWT_SECRET", "AUTH_SESSION_TTL", "AUTH_COOKIE_NAME", "AUTH_COOKIE_SECURE",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL", "AUTH_POST_LOGIN_REDIRECT",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "REDIS_URL", "RATE_LIMIT_TRUST_PROXY",
	"RATE_LIMIT_TRUSTED_HOPS", "LINK_ID_VERSION",
}

const testSecret = "0123456789abcdef0123456789abcdef"

func baseEnv() map[string]string {
	return map[string]string{
		"SERVER_PORT":             "8080",
		"SERVER_HOST":             "0.0.0.0",
		"SERVER_BASE_URL":         "http://localhost:8080",
		"SERVER_READ_TIMEOUT":     "10s",
		"SERVER_WRITE_TIMEOUT":    "10s",
		"SERVER_IDLE_TIMEOUT":     "120s",
		"SERVER_SHUTDOWN_TIMEOUT": "30s",

		"DB_HOST":      "localhost",
		"DB_PORT":      "5432",
		"DB_USER":      "testuser",
		"DB_PASSWORD":  "testpass",
		"DB_NAME":      "testdb",
		"DB_SSLMODE":   "disable",
		"DB_MAX_CONNS": "25",
		"DB_MIN_CONNS": "5",

		"APP_ENV":   "test",
		"LOG_LEVEL": "debug",

		"AUTH_JWT_SECRET": testSecret,
	}
}

// setEnv replaces every known variable with the given set for the test.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range knownKeys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	for key, value := range env {
		t.Setenv(key, value)
	}
}

func TestLoad_Success(t *testing.T) {
	env := baseEnv()
	env["SERVER_ALLOWED_ORIGINS"] = "https://app.sho.rt,http://localhost:3000"
	env["RATE_LIMIT_ENABLED"] = "true"
	env["REDIS_URL"] = "redis://localhost:6379/0"
	env["LINK_PRESERVE_SLUG_ON_UPDATE"] = "true"
	setEnv(t, env)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" || cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if len(cfg.Server.ReservedPrefixes) != 1 || cfg.Server.ReservedPrefixes[0] != "api" {
		t.Errorf("Server.ReservedPrefixes = %v, want [api]", cfg.Server.ReservedPrefixes)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://localhost:3000" {
		t.Errorf("Server.AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}

	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverPostgres)
	}
	if cfg.Database.MaxConns != 25 || cfg.Database.MinConns != 5 {
		t.Errorf("Database conns = %d/%d, want 25/5", cfg.Database.MaxConns, cfg.Database.MinConns)
	}
	if cfg.Database.AutoMigrate {
		t.Error("Database.AutoMigrate should default to false")
	}

	if cfg.App.ServiceName != "shortlink" || cfg.App.ServiceVersion != "dev" {
		t.Errorf("App = %+v", cfg.App)
	}

	if cfg.Links.SlugMaxRetries != 5 || !cfg.Links.PreserveSlugOnUpdate || cfg.Links.IDVersion != IDVersionV7 {
		t.Errorf("Links = %+v", cfg.Links)
	}

	if cfg.Auth.SessionTTL != 168*time.Hour {
		t.Errorf("Auth.SessionTTL = %v, want 168h", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.CookieName != "shortlink_session" || !cfg.Auth.CookieSecure {
		t.Errorf("Auth cookie = %q secure=%v", cfg.Auth.CookieName, cfg.Auth.CookieSecure)
	}
	if cfg.Auth.GoogleEnabled() {
		t.Error("Google sign-in should be disabled without client credentials")
	}

	if !cfg.RateLimit.Enabled || cfg.RateLimit.Requests != 10 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.RateLimit.TrustedHops != 1 || cfg.RateLimit.ClientHops() != 0 {
		t.Errorf("RateLimit hops = %d, client hops = %d, want 1 and 0", cfg.RateLimit.TrustedHops, cfg.RateLimit.ClientHops())
	}
}

func TestLoad_SQLiteDoesNotNeedPostgresSettings(t *testing.T) {
	env := baseEnv()
	for _, key := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME"} {
		delete(env, key)
	}
	env["DB_DRIVER"] = "sqlite"
	env["DB_SQLITE_PATH"] = "/tmp/links.db"
	env["DB_AUTO_MIGRATE"] = "true"
	setEnv(t, env)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.SQLitePath != "/tmp/links.db" || !cfg.Database.AutoMigrate {
		t.Errorf("Database = %+v", cfg.Database)
	}
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(env map[string]string)
		wantErr string
	}{
		{"missing SERVER_PORT", func(e map[string]string) { delete(e, "SERVER_PORT") }, "Server"},
		{"missing DB_HOST", func(e map[string]string) { delete(e, "DB_HOST") }, "host cannot be empty"},
		{"missing APP_ENV", func(e map[string]string) { delete(e, "APP_ENV") }, "App"},
		{"missing AUTH_JWT_SECRET", func(e map[string]string) { delete(e, "AUTH_JWT_SECRET") }, "Auth"},
		{"relative base url", func(e map[string]string) { e["SERVER_BASE_URL"] = "localhost:8080" }, "base URL"},
		{"invalid duration", func(e map[string]string) { e["SERVER_READ_TIMEOUT"] = "invalid" }, "Server"},
		{"invalid int", func(e map[string]string) { e["DB_MAX_CONNS"] = "not-a-number" }, "Database"},
		{"invalid bool", func(e map[string]string) { e["RATE_LIMIT_ENABLED"] = "maybe" }, "RateLimit"},
		{"unknown driver", func(e map[string]string) { e["DB_DRIVER"] = "mysql" }, "invalid driver"},
		{"min above max conns", func(e map[string]string) { e["DB_MIN_CONNS"] = "30" }, "min connections"},
		{"bad ssl mode", func(e map[string]string) { e["DB_SSLMODE"] = "prefer" }, "SSL mode"},
		{"bad log level", func(e map[string]string) { e["LOG_LEVEL"] = "trace" }, "log level"},
		{"nested reserved prefix", func(e map[string]string) { e["SERVER_RESERVED_PREFIXES"] = "api,a/b" }, "reserved prefix"},
		{"zero retries", func(e map[string]string) { e["LINK_SLUG_MAX_RETRIES"] = "0" }, "retries"},
		{"short secret", func(e map[string]string) { e["AUTH_JWT_SECRET"] = "short" }, "at least 32 bytes"},
		{"partial google config", func(e map[string]string) { e["GOOGLE_CLIENT_ID"] = "id" }, "must be set together"},
		{"rate limit without redis", func(e map[string]string) { e["RATE_LIMIT_ENABLED"] = "true" }, "redis URL"},
		{"sub-second window", func(e map[string]string) {
			e["RATE_LIMIT_ENABLED"] = "true"
			e["REDIS_URL"] = "redis://localhost:6379"
			e["RATE_LIMIT_WINDOW"] = "500ms"
		}, "window"},
		{"zero trusted hops", func(e map[string]string) {
			e["RATE_LIMIT_ENABLED"] = "true"
			e["REDIS_URL"] = "redis://localhost:6379"
			e["RATE_LIMIT_TRUST_PROXY"] = "true"
			e["RATE_LIMIT_TRUSTED_HOPS"] = "0"
		}, "trusted hops"},
		{"unknown id version", func(e map[string]string) { e["LINK_ID_VERSION"] = "v1" }, "id version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			tt.mutate(env)
			setEnv(t, env)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRateLimitConfig_ClientHops(t *testing.T) {
	tests := []struct {
		name string
		cfg  RateLimitConfig
		want int
	}{
		{"peer address", RateLimitConfig{TrustedHops: 2}, 0},
		{"one proxy", RateLimitConfig{TrustProxy: true, TrustedHops: 1}, 1},
		{"two proxies", RateLimitConfig{TrustProxy: true, TrustedHops: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ClientHops(); got != tt.want {
				t.Errorf("ClientHops() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAuthConfig_GoogleEnabled(t *testing.T) {
	c := AuthConfig{
		JWTSecret:          testSecret,
		SessionTTL:         time.Hour,
		CookieName:         "s",
		GoogleClientID:     "id",
		GoogleClientSecret: "secret",
		GoogleRedirectURL:  "https://sho.rt/api/auth/google/callback",
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if !c.GoogleEnabled() {
		t.Error("GoogleEnabled() = false, want true")
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "testhost",
		Port:     "5432",
		User:     "testuser",
		Password: "testpass",
		Name:     "testdb",
		SSLMode:  "disable",
	}

	expected := "host=testhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	if got := db.ConnectionString(); got != expected {
		t.Errorf("ConnectionString() = %s, want %s", got, expected)
	}
}
