package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/id"
	"github.com/agencynet/agencynet-server/internal/store"
)

// ReconcileResult lists the agents whose grants a reconcile added, removed, or left untouched.
type ReconcileResult struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Kept    []string `json:"kept"`
}

// SharingService decides which of an agency's agents can see a property.
//
// A property is either broadcast to the whole team or shared with an
// enumerated set of agents, never both. Turning broadcast off leaves the
// property shared with nobody until Reconcile names recipients.
type SharingService struct {
	store    store.Store
	notifier *Notifier
	logger   *slog.Logger
	clock    func() time.Time
}

// NewSharingService creates a new sharing service.
func NewSharingService(store store.Store, notifier *Notifier, logger *slog.Logger) *SharingService {
	return &SharingService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		clock:    time.Now,
	}
}

// SetBroadcast switches broadcast mode. Turning it on deletes every enumerated grant.
func (s *SharingService) SetBroadcast(ctx context.Context, agencyID, propertyID string, on bool) (*domain.EffectiveVisibility, error) {
	if strings.TrimSpace(propertyID) == "" {
		return nil, domainerrors.Validation("property id is required")
	}

	removed, err := s.store.SetBroadcast(ctx, propertyID, agencyID, on, s.clock().UTC())
	if err != nil {
		return nil, fmt.Errorf("set broadcast: %w", err)
	}

	s.logger.Info("Property broadcast updated",
		"agency_id", agencyID,
		"property_id", propertyID,
		"broadcast", on,
		"grants_removed", removed,
	)

	return s.EffectiveVisibility(ctx, agencyID, propertyID)
}

// Reconcile makes the property's grants equal desiredAgentIDs.
//
// Grants for agents in both sets keep their row; only the difference is
// written, so repeating a call writes nothing. A non-empty set turns broadcast
// off first. Every desired agent must be an active member of the agency.
// Newly added agents are notified and their grants marked notified.
func (s *SharingService) Reconcile(ctx context.Context, agencyID, propertyID string, desiredAgentIDs []string) (*ReconcileResult, error) {
	if strings.TrimSpace(propertyID) == "" {
		return nil, domainerrors.Validation("property id is required")
	}

	desired := normalizeAgentIDs(desiredAgentIDs)
	if err := s.ensureActiveMembers(ctx, agencyID, desired); err != nil {
		return nil, err
	}

	now := s.clock().UTC()

	if len(desired) > 0 {
		vis, err := s.store.GetVisibility(ctx, propertyID, agencyID)
		if err != nil {
			return nil, fmt.Errorf("get visibility: %w", err)
		}
		if vis.SharedWithAllAgents {
			if _, err := s.store.SetBroadcast(ctx, propertyID, agencyID, false, now); err != nil {
				return nil, fmt.Errorf("clear broadcast: %w", err)
			}
		}
	}

	existing, err := s.store.ListGrants(ctx, propertyID, agencyID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}

	diff := domain.DiffGrants(existing, desired)
	result := &ReconcileResult{
		Added:   []string{},
		Removed: []string{},
		Kept:    []string{},
	}
	for _, g := range diff.Kept {
		result.Kept = append(result.Kept, g.AgentID)
	}
	if diff.IsEmpty() {
		return result, nil
	}

	removeIDs := make([]string, 0, len(diff.ToRemove))
	for _, g := range diff.ToRemove {
		removeIDs = append(removeIDs, g.ID)
		result.Removed = append(result.Removed, g.AgentID)
	}

	added := make([]*domain.SharedPropertyGrant, 0, len(diff.ToAdd))
	for _, agentID := range diff.ToAdd {
		grantID, err := id.Generate(id.PrefixGrant)
		if err != nil {
			return nil, fmt.Errorf("generate grant id: %w", err)
		}
		added = append(added, &domain.SharedPropertyGrant{
			CreatedAt:       now,
			ID:              grantID,
			PropertyID:      propertyID,
			AgentID:         agentID,
			SharingAgencyID: agencyID,
		})
		result.Added = append(result.Added, agentID)
	}

	if err := s.store.ApplyGrantDiff(ctx, propertyID, agencyID, removeIDs, added); err != nil {
		return nil, fmt.Errorf("apply grant diff: %w", err)
	}

	s.logger.Info("Property recipients reconciled",
		"agency_id", agencyID,
		"property_id", propertyID,
		"added", len(result.Added),
		"removed", len(result.Removed),
		"kept", len(result.Kept),
	)

	s.notifyGranted(ctx, added)
	return result, nil
}

// notifyGranted tells newly added agents about the property. Failures are
// logged; those grants stay unnotified.
func (s *SharingService) notifyGranted(ctx context.Context, grants []*domain.SharedPropertyGrant) {
	notified := make([]string, 0, len(grants))
	for _, g := range grants {
		err := s.notifier.Notify(ctx, NotifyRequest{
			RecipientID: g.AgentID,
			Kind:        domain.NotificationPropertyShared,
			Title:       "A property was shared with you",
			Body:        "Your agency shared a property with you.",
			DedupeKey:   "grant:" + g.ID,
			Payload: map[string]string{
				"property_id": g.PropertyID,
				"agency_id":   g.SharingAgencyID,
			},
		})
		if err != nil {
			s.logger.Warn("failed to notify agent of shared property",
				"grant_id", g.ID,
				"agent_id", g.AgentID,
				"error", err,
			)
			continue
		}
		notified = append(notified, g.ID)
	}

	if len(notified) == 0 {
		return
	}
	if err := s.store.MarkGrantsNotified(ctx, notified); err != nil {
		s.logger.Warn("failed to mark grants notified", "count", len(notified), "error", err)
	}
}

// EffectiveVisibility reports who can currently see the property.
func (s *SharingService) EffectiveVisibility(ctx context.Context, agencyID, propertyID string) (*domain.EffectiveVisibility, error) {
	vis, err := s.store.GetVisibility(ctx, propertyID, agencyID)
	if err != nil {
		return nil, fmt.Errorf("get visibility: %w", err)
	}
	if vis.SharedWithAllAgents {
		return &domain.EffectiveVisibility{AgentIDs: []string{}, Broadcast: true}, nil
	}

	grants, err := s.store.ListGrants(ctx, propertyID, agencyID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}

	agentIDs := make([]string, 0, len(grants))
	for _, g := range grants {
		agentIDs = append(agentIDs, g.AgentID)
	}
	return &domain.EffectiveVisibility{AgentIDs: agentIDs, Count: len(agentIDs)}, nil
}

func (s *SharingService) ensureActiveMembers(ctx context.Context, agencyID string, agentIDs []string) error {
	if len(agentIDs) == 0 {
		return nil
	}

	links, err := s.store.ListAgencyAgents(ctx, agencyID, domain.LinkActive)
	if err != nil {
		return fmt.Errorf("list agency agents: %w", err)
	}
	active := make(map[string]struct{}, len(links))
	for _, l := range links {
		active[l.AgentID] = struct{}{}
	}

	details := make(map[string]string)
	for _, agentID := range agentIDs {
		if _, ok := active[agentID]; !ok {
			details[agentID] = "is not an active member of this agency"
		}
	}
	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("recipients must be active agency members", details)
	}
	return nil
}

// normalizeAgentIDs trims, drops empties, and dedupes, returning a sorted set.
func normalizeAgentIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
