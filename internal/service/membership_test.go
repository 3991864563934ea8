package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/sse"
)

func TestMembershipService_UpsertIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAgency(t, "agency-1", "Acme Realty")
	env.seedProfile(t, "agent-1", "agent-1@example.com", domain.RoleAgent)

	require.NoError(t, env.membership.Upsert(ctx, "agency-1", "agent-1", domain.LinkPending))
	require.NoError(t, env.membership.Upsert(ctx, "agency-1", "agent-1", domain.LinkPending))
	assert.Equal(t, 1, env.events.count(sse.TableAgencyAgents))

	require.NoError(t, env.membership.Upsert(ctx, "agency-1", "agent-1", domain.LinkActive))
	assert.Equal(t, 2, env.events.count(sse.TableAgencyAgents))

	links, err := env.membership.List(ctx, "agency-1", MembershipFilter{})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, domain.LinkActive, links[0].Status)
}

func TestMembershipService_Upsert_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)

	err := env.membership.Upsert(context.Background(), "agency-1", "agent-1", "owner")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestMembershipService_Upsert_UnknownAgent(t *testing.T) {
	env := newTestEnv(t)
	env.seedAgency(t, "agency-1", "Acme Realty")

	err := env.membership.Upsert(context.Background(), "agency-1", "ghost", domain.LinkActive)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestMembershipService_List_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAgency(t, "agency-1", "Acme Realty")

	maria := &domain.Profile{Email: "maria@example.com", FullName: "María González", Role: domain.RoleAgent}
	maria.ID = "agent-maria"
	maria.InitTimestamps(env.now)
	require.NoError(t, env.db.CreateProfile(ctx, maria))
	require.NoError(t, env.membership.Upsert(ctx, "agency-1", maria.ID, domain.LinkActive))

	env.now = env.now.Add(time.Hour)
	bob := &domain.Profile{Email: "bob@brokers.io", FullName: "Bob Stone", Role: domain.RoleAgent}
	bob.ID = "agent-bob"
	bob.InitTimestamps(env.now)
	require.NoError(t, env.db.CreateProfile(ctx, bob))
	require.NoError(t, env.membership.Upsert(ctx, "agency-1", bob.ID, domain.LinkPending))

	tests := []struct {
		name   string
		filter MembershipFilter
		want   []string
	}{
		{"all newest first", MembershipFilter{}, []string{"agent-bob", "agent-maria"}},
		{"status", MembershipFilter{Status: domain.LinkActive}, []string{"agent-maria"}},
		{"case folded name", MembershipFilter{Query: "GONZÁLEZ"}, []string{"agent-maria"}},
		{"email", MembershipFilter{Query: "Brokers"}, []string{"agent-bob"}},
		{"status and query", MembershipFilter{Status: domain.LinkActive, Query: "bob"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := env.membership.List(ctx, "agency-1", tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(links))
			for _, l := range links {
				ids = append(ids, l.AgentID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	links, err := env.membership.List(ctx, "agency-1", MembershipFilter{Query: "maria"})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "María González", links[0].AgentName)
	assert.Equal(t, "maria@example.com", links[0].AgentEmail)
}

func TestMembershipService_Remove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAgency(t, "agency-1", "Acme Realty")
	env.seedMember(t, "agency-1", "agent-1")
	require.NoError(t, env.db.SetProfileAgency(ctx, "agent-1", "agency-1", env.now))

	require.NoError(t, env.membership.Remove(ctx, "agency-1", "agent-1"))

	active, err := env.membership.IsActiveMember(ctx, "agency-1", "agent-1")
	require.NoError(t, err)
	assert.False(t, active)

	// The profile keeps its agency association.
	profile, err := env.db.GetProfile(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "agency-1", profile.AgencyID)

	err = env.membership.Remove(ctx, "agency-1", "agent-1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
