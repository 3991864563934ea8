// Package providers contains dependency injection providers for the agency network server.
package providers

import (
	"context"
	"os"

	"github.com/samber/do/v2"

	"github.com/agencynet/agencynet-server/internal/config"
	"github.com/agencynet/agencynet-server/internal/logger"
	"github.com/agencynet/agencynet-server/internal/telemetry"
)

// ProvideConfig provides the application configuration from the process arguments and environment.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting AgencyNet server",
		"version", Version,
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
	)

	return log, nil
}

// TelemetryHandle flushes the trace exporter on shutdown.
type TelemetryHandle struct {
	shutdown telemetry.ShutdownFunc
}

// Shutdown implements do.Shutdownable.
func (h *TelemetryHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.shutdown(ctx)
}

// ProvideTelemetry installs the global tracer provider.
func ProvideTelemetry(i do.Injector) (*TelemetryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	shutdown, err := telemetry.Setup(context.Background(), cfg.Telemetry, Version)
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.Enabled() {
		log.Info("Tracing enabled",
			"endpoint", cfg.Telemetry.OTLPEndpoint,
			"service", cfg.Telemetry.ServiceName,
			"sample_ratio", cfg.Telemetry.SampleRatio,
		)
	}

	return &TelemetryHandle{shutdown: shutdown}, nil
}
