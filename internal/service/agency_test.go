package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
)

func TestAgencyService_AuthorizeOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agency := env.seedAgency(t, "agency-1", "Acme Realty")
	env.seedProfile(t, "agent-1", "agent-1@example.com", domain.RoleAgent)

	got, err := env.agencies.AuthorizeOwner(ctx, "agency-1", agency.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Realty", got.Name)

	_, err = env.agencies.AuthorizeOwner(ctx, "agency-1", "agent-1")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = env.agencies.AuthorizeOwner(ctx, "missing", agency.OwnerID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAgencyService_OwnedAgencyID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agency := env.seedAgency(t, "agency-1", "Acme Realty")
	env.seedProfile(t, "agent-1", "agent-1@example.com", domain.RoleAgent)
	env.seedProfile(t, "agent-2", "agent-2@example.com", domain.RoleAgent)
	require.NoError(t, env.db.SetProfileAgency(ctx, agency.OwnerID, "agency-1", env.now))
	require.NoError(t, env.db.SetProfileAgency(ctx, "agent-1", "agency-1", env.now))

	got, err := env.agencies.OwnedAgencyID(ctx, agency.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, "agency-1", got)

	got, err = env.agencies.OwnedAgencyID(ctx, "agent-1")
	require.NoError(t, err)
	assert.Empty(t, got, "a linked agent does not own the agency")

	got, err = env.agencies.OwnedAgencyID(ctx, "agent-2")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = env.agencies.OwnedAgencyID(ctx, "missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestNotifier_DedupesByKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProfile(t, "agent-1", "agent-1@example.com", domain.RoleAgent)

	req := NotifyRequest{
		RecipientID: "agent-1",
		Kind:        domain.NotificationPropertyShared,
		Title:       "Shared",
		Body:        "A property was shared with you.",
		DedupeKey:   "grant:1",
	}
	require.NoError(t, env.notifier.Notify(ctx, req))
	require.NoError(t, env.notifier.Notify(ctx, req))

	req.DedupeKey = ""
	require.NoError(t, env.notifier.Notify(ctx, req))
	require.NoError(t, env.notifier.Notify(ctx, req))

	assert.Len(t, env.notificationsFor(t, "agent-1"), 3)
	assert.Empty(t, env.notificationsFor(t, "nobody"))
}
