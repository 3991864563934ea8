package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Component and overall health states, ordered from best to worst.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

var statusRank = map[string]int{
	statusHealthy:   0,
	statusDegraded:  1,
	statusUnhealthy: 2,
}

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports database and change feed status. The overall status is the worst component status.",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" enum:"healthy,degraded,unhealthy" doc:"Component status"`
	Latency string `json:"latency,omitempty" doc:"Probe duration"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" enum:"healthy,degraded,unhealthy" doc:"Worst component status"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	probes := map[string]func(context.Context) ComponentHealth{
		"database": s.probeDatabase,
		"sse":      s.probeChangeFeed,
	}

	resp := HealthResponse{
		Status:     statusHealthy,
		Components: make(map[string]ComponentHealth, len(probes)),
	}
	for name, probe := range probes {
		c := probe(ctx)
		resp.Components[name] = c
		if statusRank[c.Status] > statusRank[resp.Status] {
			resp.Status = c.Status
		}
	}

	return &HealthOutput{Body: resp}, nil
}

func (s *Server) probeDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: statusDegraded, Message: "database not configured"}
	}

	start := time.Now()
	err := s.store.Ping(ctx)
	latency := time.Since(start).String()
	if err != nil {
		s.logger.WarnContext(ctx, "health: database ping failed", "error", err)
		return ComponentHealth{Status: statusUnhealthy, Latency: latency, Message: "database ping failed"}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency}
}

func (s *Server) probeChangeFeed(_ context.Context) ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: statusDegraded, Message: "change feed not configured"}
	}
	return ComponentHealth{Status: statusHealthy, Message: formatSSEStatus(s.sseManager.ClientCount())}
}

func formatSSEStatus(count int) string {
	if count == 1 {
		return "1 connected client"
	}
	if count == 0 {
		return "no connected clients"
	}
	return strconv.Itoa(count) + " connected clients"
}
