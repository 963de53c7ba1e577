package providers

import (
	"io"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/graphia/graphia-server/internal/auth"
	"github.com/graphia/graphia-server/internal/config"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/gateway/sqlite"
	"github.com/graphia/graphia-server/internal/gateway/supabase"
	"github.com/graphia/graphia-server/internal/logger"
	"github.com/graphia/graphia-server/internal/metrics"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "graphia"

// ProvideMetrics provides the Prometheus collectors.
func ProvideMetrics(i do.Injector) (*metrics.Collector, error) {
	return metrics.NewCollector(metricsNamespace), nil
}

// GatewayHandle is the instrumented Remote Data Gateway. Breaker is set only
// for the remote backend.
type GatewayHandle struct {
	gateway.Gateway
	Breaker *gateway.Breaker
	closer  io.Closer
}

// Shutdown implements do.Shutdownable.
func (h *GatewayHandle) Shutdown() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

// ProvideGateway opens the configured backend and wraps it with metrics and,
// for Supabase, a circuit breaker.
func ProvideGateway(i do.Injector) (*GatewayHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Collector](i)

	switch cfg.Gateway.Backend {
	case config.GatewaySupabase:
		client, err := supabase.New(cfg.Gateway.SupabaseURL, cfg.Gateway.SupabaseKey, log.Logger)
		if err != nil {
			return nil, err
		}
		breaker := gateway.WithBreaker(gateway.WithMetrics(client, m), gateway.BreakerConfig{
			Name:        "supabase",
			MaxFailures: cfg.Gateway.BreakerMaxFailures,
			OpenTimeout: cfg.Gateway.BreakerOpenTimeout,
		}, m, log.Logger)

		log.Info("Supabase gateway configured", "url", cfg.Gateway.SupabaseURL)
		return &GatewayHandle{Gateway: breaker, Breaker: breaker}, nil

	default:
		tokens := do.MustInvoke[*auth.TokenService](i)

		if err := os.MkdirAll(cfg.Data.Path, 0o750); err != nil {
			return nil, err
		}
		dbPath := filepath.Join(cfg.Data.Path, "graphia.db")
		store, err := sqlite.Open(dbPath, tokens, log.Logger)
		if err != nil {
			return nil, err
		}

		log.Info("Embedded gateway opened", "path", dbPath)
		return &GatewayHandle{Gateway: gateway.WithMetrics(store, m), closer: store}, nil
	}
}
