package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/agencynet/agencynet-server/internal/service"
	"github.com/agencynet/agencynet-server/internal/validation"
)

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideNotifier provides the notification writer.
func ProvideNotifier(i do.Injector) (*service.Notifier, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*slog.Logger](i)
	return service.NewNotifier(storeHandle.Store, log), nil
}

// ProvideSagaRunner provides the step runner for multi-step transitions.
func ProvideSagaRunner(i do.Injector) (*service.SagaRunner, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*slog.Logger](i)
	return service.NewSagaRunner(storeHandle.Store, log), nil
}

// ProvideAgencyService provides the agency ownership service.
func ProvideAgencyService(i do.Injector) (*service.AgencyService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*slog.Logger](i)
	return service.NewAgencyService(storeHandle.Store, log), nil
}

// ProvideMembershipService provides the agency membership service.
func ProvideMembershipService(i do.Injector) (*service.MembershipService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*slog.Logger](i)
	return service.NewMembershipService(storeHandle.Store, log), nil
}

// ProvideInvitationService provides the invitation ledger.
func ProvideInvitationService(i do.Injector) (*service.InvitationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	membership := do.MustInvoke[*service.MembershipService](i)
	notifier := do.MustInvoke[*service.Notifier](i)
	runner := do.MustInvoke[*service.SagaRunner](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*slog.Logger](i)

	return service.NewInvitationService(storeHandle.Store, membership, notifier, runner, validator, log), nil
}

// ProvideCollaborationService provides the developer contract service.
func ProvideCollaborationService(i do.Injector) (*service.CollaborationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[*service.Notifier](i)
	runner := do.MustInvoke[*service.SagaRunner](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*slog.Logger](i)

	return service.NewCollaborationService(storeHandle.Store, notifier, runner, validator, log), nil
}

// ProvideSharingService provides the property visibility service.
func ProvideSharingService(i do.Injector) (*service.SharingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[*service.Notifier](i)
	log := do.MustInvoke[*slog.Logger](i)

	return service.NewSharingService(storeHandle.Store, notifier, log), nil
}
