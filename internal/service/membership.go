package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/store"
)

// MembershipFilter narrows a membership listing.
// Query matches agent name or email case-insensitively; empty matches all.
type MembershipFilter struct {
	Status domain.LinkStatus
	Query  string
}

// MembershipService manages the links between agencies and their agents.
type MembershipService struct {
	store  store.Store
	logger *slog.Logger
	clock  func() time.Time
}

// NewMembershipService creates a new membership service.
func NewMembershipService(store store.Store, logger *slog.Logger) *MembershipService {
	return &MembershipService{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// Upsert sets the link status for (agencyID, agentID), creating the link if needed.
// Writing the current status again is a no-op.
func (s *MembershipService) Upsert(ctx context.Context, agencyID, agentID string, status domain.LinkStatus) error {
	if _, ok := domain.ParseLinkStatus(string(status)); !ok {
		return domainerrors.Validationf("invalid link status %q", status)
	}

	now := s.clock().UTC()
	link := &domain.AgencyAgentLink{
		CreatedAt: now,
		UpdatedAt: now,
		AgencyID:  agencyID,
		AgentID:   agentID,
		Status:    status,
	}
	if err := s.store.UpsertAgencyAgent(ctx, link); err != nil {
		if errors.Is(err, store.ErrMissingReference) {
			return domainerrors.NotFound("agency or agent not found")
		}
		return fmt.Errorf("upsert agency agent: %w", err)
	}

	s.logger.Debug("membership link upserted",
		"agency_id", agencyID,
		"agent_id", agentID,
		"status", status,
	)
	return nil
}

// List returns the agency's links, newest first, filtered by status and by a
// case-folded substring match on the agent's name or email.
func (s *MembershipService) List(ctx context.Context, agencyID string, filter MembershipFilter) ([]*domain.AgencyAgentLink, error) {
	if filter.Status != "" {
		if _, ok := domain.ParseLinkStatus(string(filter.Status)); !ok {
			return nil, domainerrors.Validationf("invalid link status %q", filter.Status)
		}
	}

	links, err := s.store.ListAgencyAgents(ctx, agencyID, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("list agency agents: %w", err)
	}

	result := make([]*domain.AgencyAgentLink, 0, len(links))
	for _, link := range links {
		if filter.Query == "" ||
			domain.FoldContains(link.AgentName, filter.Query) ||
			domain.FoldContains(link.AgentEmail, filter.Query) {
			result = append(result, link)
		}
	}
	return result, nil
}

// IsActiveMember reports whether agentID is an active member of agencyID.
func (s *MembershipService) IsActiveMember(ctx context.Context, agencyID, agentID string) (bool, error) {
	link, err := s.store.GetAgencyAgent(ctx, agencyID, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get agency agent: %w", err)
	}
	return link.Status == domain.LinkActive, nil
}

// Remove deletes the link row only. The agent's profile, including its agency
// association, is left as it is.
func (s *MembershipService) Remove(ctx context.Context, agencyID, agentID string) error {
	if err := s.store.DeleteAgencyAgent(ctx, agencyID, agentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("agent is not linked to this agency")
		}
		return fmt.Errorf("delete agency agent: %w", err)
	}

	s.logger.Info("Agent removed from agency",
		"agency_id", agencyID,
		"agent_id", agentID,
	)
	return nil
}
