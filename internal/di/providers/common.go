package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second
)

// Version is reported to telemetry and the startup log. Set at build time with -ldflags.
var Version = "dev"
