// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Gateway backends.
const (
	GatewaySupabase = "supabase"
	GatewaySQLite   = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Data    DataConfig
	Gateway GatewayConfig
	Server  ServerConfig
	Auth    AuthConfig
	Drafts  DraftConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// EnvFile is the .env file that was loaded; the watcher follows it for log level changes.
	EnvFile string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	// Path holds the embedded gateway database, the draft store and the token key.
	Path string
}

// GatewayConfig selects and configures the Remote Data Gateway.
type GatewayConfig struct {
	Backend     string // supabase or sqlite
	SupabaseURL string
	SupabaseKey string // anon (public) key; RLS decides what each user may touch
	// Circuit breaker around remote calls.
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
	// MaxUploadBytes bounds multipart artifact uploads.
	MaxUploadBytes int64
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key used by the embedded gateway (32 bytes), set in main.
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration
	// Sign-in/sign-up attempts allowed per client per minute.
	RateLimitPerMinute int
	RateLimitBurst     int
}

// DraftConfig controls persisted edit sessions.
type DraftConfig struct {
	TTL time.Duration
}

// LoadConfig loads configuration from the process arguments. See Load.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("graphia", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for local data (database, drafts, keys)")
	gatewayBackend := fs.String("gateway", "", "Data gateway backend (supabase, sqlite)")
	supabaseURL := fs.String("supabase-url", "", "Supabase project URL")
	supabaseKey := fs.String("supabase-key", "", "Supabase anon key")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated list of allowed browser origins")
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 15m)")
	draftTTL := fs.String("draft-ttl", "", "How long an unsaved edit session survives (default: 2h)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine; existing environment variables win over the file.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			EnvFile:     *envFile,
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			Path: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Gateway: GatewayConfig{
			Backend:            strings.ToLower(getConfigValue(*gatewayBackend, "GATEWAY", GatewaySQLite)),
			SupabaseURL:        strings.TrimRight(getConfigValue(*supabaseURL, "SUPABASE_URL", ""), "/"),
			SupabaseKey:        getConfigValue(*supabaseKey, "SUPABASE_ANON_KEY", ""),
			BreakerMaxFailures: uint32(getIntConfigValue("", "GATEWAY_BREAKER_FAILURES", 5)), //nolint:gosec // small positive default
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:    splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "http://localhost:5173")),
			MaxUploadBytes: int64(getIntConfigValue("", "MAX_UPLOAD_MB", 10)) << 20,
		},
		Auth: AuthConfig{
			RateLimitPerMinute: getIntConfigValue("", "AUTH_RATE_LIMIT", 10),
			RateLimitBurst:     getIntConfigValue("", "AUTH_RATE_BURST", 5),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		target    *time.Duration
	}{
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h", &cfg.Auth.AccessTokenDuration},
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "30s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*draftTTL, "DRAFT_TTL", "2h", &cfg.Drafts.TTL},
		{"", "GATEWAY_BREAKER_TIMEOUT", "30s", &cfg.Gateway.BreakerOpenTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.target = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	if !ValidLogLevel(c.Logger.Level) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	switch c.Gateway.Backend {
	case GatewaySQLite:
	case GatewaySupabase:
		if c.Gateway.SupabaseURL == "" || c.Gateway.SupabaseKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required for the supabase gateway")
		}
	default:
		return fmt.Errorf("invalid gateway: %s (must be supabase or sqlite)", c.Gateway.Backend)
	}

	if c.Drafts.TTL <= 0 {
		return errors.New("draft ttl must be positive")
	}

	return nil
}

// ValidLogLevel reports whether level names a supported log level.
func ValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.Path, filepath.Join(homeDir, ".graphia"))
	if err != nil {
		return err
	}
	c.Data.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
