package providers

import (
	"github.com/samber/do/v2"

	"github.com/graphia/graphia-server/internal/config"
	"github.com/graphia/graphia-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Graphia Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.Path,
		"gateway", cfg.Gateway.Backend,
	)

	return log, nil
}

// ConfigWatcherHandle wraps the .env watcher with shutdown capability.
// Watcher is nil when the file could not be watched.
type ConfigWatcherHandle struct {
	*config.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *ConfigWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	return h.Watcher.Shutdown()
}

// ProvideConfigWatcher follows the .env file and applies log level changes.
func ProvideConfigWatcher(i do.Injector) (*ConfigWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	w, err := config.NewWatcher(cfg.App.EnvFile, cfg.Logger.Level, func(level string) {
		log.SetLevel(logger.ParseLevel(level))
		log.Info("Log level changed", "level", level)
	}, log.Logger)
	if err != nil {
		// Non-fatal: the level just can't change without a restart.
		log.Warn("Config watcher unavailable", "env_file", cfg.App.EnvFile, "error", err)
		return &ConfigWatcherHandle{}, nil
	}

	return &ConfigWatcherHandle{Watcher: w}, nil
}
