package api

import (
	"github.com/agencynet/agencynet-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Agency        *service.AgencyService
	Invitation    *service.InvitationService
	Membership    *service.MembershipService
	Collaboration *service.CollaborationService
	Sharing       *service.SharingService
	Notifier      *service.Notifier
}
