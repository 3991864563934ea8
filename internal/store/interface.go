package store

import (
	"context"
	"time"

	"github.com/agencynet/agencynet-server/internal/domain"
)

// Store defines the interface for all persistence operations.
//
// Status transitions are conditional writes: Transition* methods report false
// when the row was not in the expected state, and never overwrite a concurrent
// resolution.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error
	SetEmitter(emitter EventEmitter)

	// Agencies and profiles
	CreateAgency(ctx context.Context, agency *domain.Agency) error
	GetAgency(ctx context.Context, id string) (*domain.Agency, error)
	CreateProfile(ctx context.Context, profile *domain.Profile) error
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	SetProfileAgency(ctx context.Context, profileID, agencyID string, at time.Time) error

	// Agent invitations
	CreateInvitation(ctx context.Context, inv *domain.AgentInvitation) error
	GetInvitation(ctx context.Context, id string) (*domain.AgentInvitation, error)
	GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*domain.AgentInvitation, error)
	FindPendingInvitation(ctx context.Context, agencyID, email string) (*domain.AgentInvitation, error)
	ListInvitations(ctx context.Context, agencyID string, status domain.InvitationStatus) ([]*domain.AgentInvitation, error)
	TransitionInvitation(ctx context.Context, t InvitationTransition) (bool, error)
	DeleteInvitation(ctx context.Context, id string) error

	// Agency membership links
	UpsertAgencyAgent(ctx context.Context, link *domain.AgencyAgentLink) error
	GetAgencyAgent(ctx context.Context, agencyID, agentID string) (*domain.AgencyAgentLink, error)
	ListAgencyAgents(ctx context.Context, agencyID string, status domain.LinkStatus) ([]*domain.AgencyAgentLink, error)
	DeleteAgencyAgent(ctx context.Context, agencyID, agentID string) error

	// Collaboration contracts
	CreateContract(ctx context.Context, c *domain.CollaborationContract) error
	GetContract(ctx context.Context, developerID, agencyID string) (*domain.CollaborationContract, error)
	ListContractsByAgency(ctx context.Context, agencyID string) ([]*domain.CollaborationContract, error)
	ListContractsByDeveloper(ctx context.Context, developerID string, status domain.ContractStatus) ([]*domain.CollaborationContract, error)
	TransitionContract(ctx context.Context, t ContractTransition) (bool, error)
	RenewContractLicense(ctx context.Context, contractID, licenseURL string, at time.Time) (bool, error)

	// Property sharing
	GetVisibility(ctx context.Context, propertyID, agencyID string) (*domain.PropertyVisibility, error)
	SetBroadcast(ctx context.Context, propertyID, agencyID string, on bool, at time.Time) (removed int, err error)
	ListGrants(ctx context.Context, propertyID, agencyID string) ([]*domain.SharedPropertyGrant, error)
	ApplyGrantDiff(ctx context.Context, propertyID, agencyID string, removeGrantIDs []string, add []*domain.SharedPropertyGrant) error
	MarkGrantsNotified(ctx context.Context, grantIDs []string) error

	// Notifications
	CreateNotification(ctx context.Context, n *domain.Notification) (created bool, err error)
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]*domain.Notification, error)

	// Saga progress
	GetSagaProgress(ctx context.Context, id string) (*domain.SagaProgress, error)
	SaveSagaProgress(ctx context.Context, p *domain.SagaProgress) error
}

// InvitationTransition moves an invitation out of From.
// A row already in To and resolved by ActorID counts as applied, so a retried
// step succeeds without flipping state a second time.
type InvitationTransition struct {
	At      time.Time
	ID      string
	ActorID string
	From    domain.InvitationStatus
	To      domain.InvitationStatus
}

// ContractTransition resolves a contract from From to To.
// CounterSignedURL is only written when non-empty.
type ContractTransition struct {
	At               time.Time
	ID               string
	From             domain.ContractStatus
	To               domain.ContractStatus
	Notes            string
	CounterSignedURL string
}
