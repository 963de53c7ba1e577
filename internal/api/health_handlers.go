package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sony/gobreaker"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"gateway": s.checkGateway(ctx),
	}
	overall := components["gateway"].Status

	if s.services.Breaker != nil {
		breaker := checkBreaker(s.services.Breaker.State())
		components["breaker"] = breaker
		if breaker.Status != "healthy" && overall == "healthy" {
			overall = "degraded"
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkGateway pings the data gateway.
func (s *Server) checkGateway(ctx context.Context) ComponentHealth {
	if s.services.Health == nil {
		return ComponentHealth{Status: "unhealthy", Message: "no gateway configured"}
	}

	start := time.Now()
	err := s.services.Health.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		s.logger.Warn("gateway health check failed", "error", err)
		return ComponentHealth{Status: "unhealthy", Latency: latency.String(), Message: err.Error()}
	}
	return ComponentHealth{Status: "healthy", Latency: latency.String()}
}

func checkBreaker(state gobreaker.State) ComponentHealth {
	switch state {
	case gobreaker.StateClosed:
		return ComponentHealth{Status: "healthy", Message: state.String()}
	case gobreaker.StateHalfOpen:
		return ComponentHealth{Status: "degraded", Message: state.String()}
	default:
		return ComponentHealth{Status: "unhealthy", Message: state.String()}
	}
}
