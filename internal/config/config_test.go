package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Data:    DataConfig{Path: "/some/path"},
		Gateway: GatewayConfig{Backend: GatewaySQLite},
		Drafts:  DraftConfig{TTL: time.Hour},
	}
}

// unsetEnv clears key for the duration of the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_Gateway(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := validConfig()
		cfg.Gateway.Backend = "firebase"
		assert.ErrorContains(t, cfg.Validate(), "invalid gateway")
	})

	t.Run("supabase requires credentials", func(t *testing.T) {
		cfg := validConfig()
		cfg.Gateway.Backend = GatewaySupabase
		assert.ErrorContains(t, cfg.Validate(), "SUPABASE_URL")

		cfg.Gateway.SupabaseURL = "https://example.supabase.co"
		cfg.Gateway.SupabaseKey = "anon"
		assert.NoError(t, cfg.Validate())
	})
}

func TestValidate_DraftTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Drafts.TTL = 0
	assert.Error(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=warn\nSERVER_PORT=9000\nDRAFT_TTL=30m\n"), 0o600))

	unsetEnv(t, "LOG_LEVEL")
	unsetEnv(t, "DRAFT_TTL")
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("ENV", "staging")

	cfg, err := Load([]string{"-env-file", envFile, "-data-path", dir, "-env", "production"})
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment, "flag beats env")
	assert.Equal(t, "9100", cfg.Server.Port, "env beats .env")
	assert.Equal(t, "warn", cfg.Logger.Level, ".env beats default")
	assert.Equal(t, 30*time.Minute, cfg.Drafts.TTL)
	assert.Equal(t, dir, cfg.Data.Path)
	assert.Equal(t, GatewaySQLite, cfg.Gateway.Backend)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	_, err := Load([]string{"-env-file", filepath.Join(dir, "missing.env"), "-data-path", dir, "-draft-ttl", "soon"})
	assert.ErrorContains(t, err, "draft_ttl")
}

func TestLoad_CORSOrigins(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load([]string{
		"-env-file", filepath.Join(dir, "missing.env"),
		"-data-path", dir,
		"-cors-origins", "https://a.example, ,https://b.example",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/graphia", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "graphia"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)
}

func TestWatcher_ReportsLevelChange(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=info\n"), 0o600))

	var (
		mu     sync.Mutex
		levels []string
	)
	w, err := NewWatcher(envFile, "info", func(level string) {
		mu.Lock()
		levels = append(levels, level)
		mu.Unlock()
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Shutdown() })

	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=debug\n"), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(levels) == 1 && levels[0] == "debug"
	}, 5*time.Second, 50*time.Millisecond)
}
