// Package di provides dependency injection configuration for the Graphia server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/graphia/graphia-server/internal/api"
	"github.com/graphia/graphia-server/internal/auth"
	"github.com/graphia/graphia-server/internal/catalog"
	"github.com/graphia/graphia-server/internal/config"
	"github.com/graphia/graphia-server/internal/di/providers"
	"github.com/graphia/graphia-server/internal/logger"
	"github.com/graphia/graphia-server/internal/metrics"
	"github.com/graphia/graphia-server/internal/session"
	"github.com/graphia/graphia-server/internal/upload"
	"github.com/graphia/graphia-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideConfigWatcher)
	do.Provide(injector, providers.ProvideMetrics)

	// Auth layer
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)

	// Data layer
	do.Provide(injector, providers.ProvideGateway)
	do.Provide(injector, providers.ProvideDraftStore)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideUploadService)
	do.Provide(injector, providers.ProvideAPIServices)

	// Workers
	do.Provide(injector, providers.ProvideDraftGCJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the server.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.ConfigWatcherHandle](injector)
	_ = do.MustInvoke[*metrics.Collector](injector)

	// The embedded gateway is the only consumer of the token key.
	if cfg.Gateway.Backend == config.GatewaySQLite {
		_ = do.MustInvoke[providers.AuthKey](injector)
		_ = do.MustInvoke[*auth.TokenService](injector)
	}

	if _, err := do.Invoke[*providers.GatewayHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.DraftStoreHandle](injector); err != nil {
		return err
	}

	// Business services
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*session.Service](injector)
	_ = do.MustInvoke[*catalog.Service](injector)
	_ = do.MustInvoke[*upload.Service](injector)
	_ = do.MustInvoke[*api.Services](injector)

	// Workers
	_ = do.MustInvoke[*providers.DraftGCJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
