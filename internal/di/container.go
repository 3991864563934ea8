// Package di provides dependency injection configuration for the agency network server.
package di

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/agencynet/agencynet-server/internal/auth"
	"github.com/agencynet/agencynet-server/internal/config"
	"github.com/agencynet/agencynet-server/internal/di/providers"
	"github.com/agencynet/agencynet-server/internal/logger"
	"github.com/agencynet/agencynet-server/internal/service"
	"github.com/agencynet/agencynet-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideTelemetry)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideNotifier)
	do.Provide(injector, providers.ProvideSagaRunner)
	do.Provide(injector, providers.ProvideAgencyService)
	do.Provide(injector, providers.ProvideMembershipService)
	do.Provide(injector, providers.ProvideInvitationService)
	do.Provide(injector, providers.ProvideCollaborationService)
	do.Provide(injector, providers.ProvideSharingService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services eagerly so startup errors surface before serving.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*slog.Logger](injector)
	_ = do.MustInvoke[*providers.TelemetryHandle](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*service.Notifier](injector)
	_ = do.MustInvoke[*service.SagaRunner](injector)
	_ = do.MustInvoke[*service.AgencyService](injector)
	_ = do.MustInvoke[*service.MembershipService](injector)
	_ = do.MustInvoke[*service.InvitationService](injector)
	_ = do.MustInvoke[*service.CollaborationService](injector)
	_ = do.MustInvoke[*service.SharingService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
