package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/store"
)

// AgencyService resolves agencies and the profiles acting for them.
type AgencyService struct {
	store  store.Store
	logger *slog.Logger
}

// NewAgencyService creates a new agency service.
func NewAgencyService(store store.Store, logger *slog.Logger) *AgencyService {
	return &AgencyService{
		store:  store,
		logger: logger,
	}
}

// Get returns an agency by id.
func (s *AgencyService) Get(ctx context.Context, agencyID string) (*domain.Agency, error) {
	agency, err := s.store.GetAgency(ctx, agencyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("agency not found")
		}
		return nil, fmt.Errorf("get agency: %w", err)
	}
	return agency, nil
}

// AuthorizeOwner returns the agency when userID administers it.
func (s *AgencyService) AuthorizeOwner(ctx context.Context, agencyID, userID string) (*domain.Agency, error) {
	agency, err := s.Get(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	if agency.OwnerID != userID {
		s.logger.Warn("agency access denied",
			"agency_id", agencyID,
			"user_id", userID,
		)
		return nil, domainerrors.Forbidden("only the agency owner can manage this agency")
	}
	return agency, nil
}

// GetProfile returns a profile by id.
func (s *AgencyService) GetProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("profile not found")
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// OwnedAgencyID returns the agency on the user's profile when the user owns it,
// or "" when the profile has no agency or only links the user as an agent.
func (s *AgencyService) OwnedAgencyID(ctx context.Context, userID string) (string, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.AgencyID == "" {
		return "", nil
	}
	agency, err := s.store.GetAgency(ctx, profile.AgencyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get agency: %w", err)
	}
	if agency.OwnerID != userID {
		return "", nil
	}
	return agency.ID, nil
}
