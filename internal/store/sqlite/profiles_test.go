package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/store"
)

func TestProfiles_CreateAndGetByEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedProfile(t, s, "agent-1", "Agent.One@Example.com", domain.RoleAgent)

	got, err := s.GetProfileByEmail(ctx, "  agent.one@example.COM")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != "agent-1" || got.Email != "Agent.One@Example.com" {
		t.Errorf("unexpected profile: %+v", got)
	}
	if got.Role != domain.RoleAgent {
		t.Errorf("expected agent role, got %s", got.Role)
	}

	dup := &domain.Profile{Email: "AGENT.ONE@example.com", FullName: "Dup", Role: domain.RoleAgent}
	dup.ID = "agent-2"
	dup.InitTimestamps(testNow)
	if err := s.CreateProfile(ctx, dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for duplicate email, got %v", err)
	}
}

func TestProfiles_SetAgency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	agency := seedAgency(t, s, "ag-1")
	seedProfile(t, s, "agent-1", "agent@example.com", domain.RoleAgent)

	if err := s.SetProfileAgency(ctx, "agent-1", agency.ID, testNow); err != nil {
		t.Fatalf("set agency: %v", err)
	}
	got, err := s.GetProfile(ctx, "agent-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.AgencyID != agency.ID {
		t.Errorf("expected agency %s, got %q", agency.ID, got.AgencyID)
	}

	if err := s.SetProfileAgency(ctx, "missing", agency.ID, testNow); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetProfileAgency(ctx, "agent-1", "no-such-agency", testNow); !errors.Is(err, store.ErrMissingReference) {
		t.Errorf("expected ErrMissingReference, got %v", err)
	}
}

func TestAgencies_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	agency := seedAgency(t, s, "ag-1")
	got, err := s.GetAgency(context.Background(), agency.ID)
	if err != nil {
		t.Fatalf("get agency: %v", err)
	}
	if got.OwnerID != "ag-1-owner" {
		t.Errorf("unexpected owner %q", got.OwnerID)
	}

	if _, err := s.GetAgency(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
