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
	"github.com/agencynet/agencynet-server/internal/store"
)

func setupSharingTest(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.seedAgency(t, "agency-1", "Acme Realty")
	env.seedMember(t, "agency-1", "a1")
	env.seedMember(t, "agency-1", "a2")
	env.seedMember(t, "agency-1", "a3")
	return env
}

func grantsByAgent(t *testing.T, env *testEnv, propertyID string) map[string]*domain.SharedPropertyGrant {
	t.Helper()
	grants, err := env.db.ListGrants(context.Background(), propertyID, "agency-1")
	require.NoError(t, err)
	byAgent := make(map[string]*domain.SharedPropertyGrant, len(grants))
	for _, g := range grants {
		byAgent[g.AgentID] = g
	}
	return byAgent
}

func TestSharingService_Reconcile_Diff(t *testing.T) {
	env := setupSharingTest(t)
	ctx := context.Background()

	result, err := env.sharing.Reconcile(ctx, "agency-1", "prop-1", []string{"a1", "a2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, result.Added)
	assert.Empty(t, result.Removed)

	before := grantsByAgent(t, env, "prop-1")
	require.Contains(t, before, "a2")

	env.now = env.now.Add(time.Hour)
	result, err = env.sharing.Reconcile(ctx, "agency-1", "prop-1", []string{"a2", "a3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, result.Added)
	assert.Equal(t, []string{"a1"}, result.Removed)
	assert.Equal(t, []string{"a2"}, result.Kept)

	after := grantsByAgent(t, env, "prop-1")
	assert.Len(t, after, 2)
	assert.NotContains(t, after, "a1")
	assert.Equal(t, before["a2"].ID, after["a2"].ID, "kept grant must keep its row")
	assert.True(t, before["a2"].CreatedAt.Equal(after["a2"].CreatedAt))
	assert.True(t, after["a3"].Notified)

	vis, err := env.sharing.EffectiveVisibility(ctx, "agency-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.EffectiveVisibility{AgentIDs: []string{"a2", "a3"}, Count: 2}, vis)
}

func TestSharingService_Reconcile_Idempotent(t *testing.T) {
	env := setupSharingTest(t)
	ctx := context.Background()

	_, err := env.sharing.Reconcile(ctx, "agency-1", "prop-1", []string{"a1", "a2"})
	require.NoError(t, err)

	before := env.events.total()
	result, err := env.sharing.Reconcile(ctx, "agency-1", "prop-1", []string{"a2", "a1", "a2"})
	require.NoError(t, err)

	assert.Empty(t, result.Added)
	assert.Empty(t, result.Removed)
	assert.Equal(t, []string{"a1", "a2"}, result.Kept)
	assert.Equal(t, before, env.events.total(), "second reconcile must not write")
}

func TestSharingService_Reconcile_NotifiesAddedAgents(t *testing.T) {
	env := setupSharingTest(t)
	ctx := context.Background()

	_, err := env.sharing.Reconcile(ctx, "agency-1", "prop-1", []string{"a1"})
	require.NoError(t, err)

	notifications := env.notificationsFor(t, "a1")
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotificationPropertyShared, notifications[0].Kind)
	assert.Equal(t, "prop-1", notifications[0].Payload["property_id"])
	assert.Empty(t, env.notificationsFor(t, "a2"))
}

func TestSharingService_Reconcile_NotifyFailureLeavesGrantUnnotified(t *testing.T) {
	var flaky *flakyStore
	env := newTestEnvWithStore(t, func(s store.Store) store.Store {
		flaky = &flakyStore{Store: s}
		return flaky
	})
	ctx := context.Background()
	env.seedAgency(t, "agency-1", "Acme Realty")
	env.seedMember(t, "agency-1", "a1")

	flaky.failNotifications = 1
	result, err := env.sharing.Reconcile(ctx, "agency-1", "prop-1", []string{"a1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, result.Added)

	grants := grantsByAgent(t, env, "prop-1")
	require.Contains(t, grants, "a1")
	assert.False(t, grants["a1"].Notified)
}

func TestSharingService_Reconcile_RequiresActiveMembers(t *testing.T) {
	env := setupSharingTest(t)
	ctx := context.Background()
	env.seedProfile(t, "outsider", "outsider@example.com", domain.RoleAgent)
	require.NoError(t, env.membership.Upsert(ctx, "agency-1", "outsider", domain.LinkPending))

	_, err := env.sharing.Reconcile(ctx, "agency-1", "prop-1", []string{"a1", "outsider", "ghost"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "outsider")
	assert.Contains(t, details, "ghost")
	assert.NotContains(t, details, "a1")

	assert.Empty(t, grantsByAgent(t, env, "prop-1"))
}

func TestSharingService_SetBroadcast(t *testing.T) {
	env := setupSharingTest(t)
	ctx := context.Background()

	_, err := env.sharing.Reconcile(ctx, "agency-1", "prop-1", []string{"a1", "a2"})
	require.NoError(t, err)

	vis, err := env.sharing.SetBroadcast(ctx, "agency-1", "prop-1", true)
	require.NoError(t, err)
	assert.True(t, vis.Broadcast)
	assert.Equal(t, 0, vis.Count)
	assert.Empty(t, vis.AgentIDs)
	assert.Empty(t, grantsByAgent(t, env, "prop-1"))

	// Turning broadcast off leaves the property shared with nobody.
	vis, err = env.sharing.SetBroadcast(ctx, "agency-1", "prop-1", false)
	require.NoError(t, err)
	assert.Equal(t, &domain.EffectiveVisibility{AgentIDs: []string{}}, vis)
}

func TestSharingService_Reconcile_ClearsBroadcast(t *testing.T) {
	env := setupSharingTest(t)
	ctx := context.Background()

	_, err := env.sharing.SetBroadcast(ctx, "agency-1", "prop-1", true)
	require.NoError(t, err)

	result, err := env.sharing.Reconcile(ctx, "agency-1", "prop-1", []string{"a3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, result.Added)

	vis, err := env.sharing.EffectiveVisibility(ctx, "agency-1", "prop-1")
	require.NoError(t, err)
	assert.False(t, vis.Broadcast)
	assert.Equal(t, []string{"a3"}, vis.AgentIDs)
	assert.Equal(t, 1, vis.Count)
}

func TestSharingService_Reconcile_EmptyWhileBroadcastKeepsBroadcast(t *testing.T) {
	env := setupSharingTest(t)
	ctx := context.Background()

	_, err := env.sharing.SetBroadcast(ctx, "agency-1", "prop-1", true)
	require.NoError(t, err)

	before := env.events.count(sse.TableVisibility)
	_, err = env.sharing.Reconcile(ctx, "agency-1", "prop-1", nil)
	require.NoError(t, err)
	assert.Equal(t, before, env.events.count(sse.TableVisibility))

	vis, err := env.sharing.EffectiveVisibility(ctx, "agency-1", "prop-1")
	require.NoError(t, err)
	assert.True(t, vis.Broadcast)
}

func TestSharingService_EffectiveVisibility_Unconfigured(t *testing.T) {
	env := setupSharingTest(t)

	vis, err := env.sharing.EffectiveVisibility(context.Background(), "agency-1", "prop-unknown")
	require.NoError(t, err)
	assert.False(t, vis.Broadcast)
	assert.Equal(t, 0, vis.Count)
}

func TestNormalizeAgentIDs(t *testing.T) {
	assert.Equal(t, []string{"a1", "a2"}, normalizeAgentIDs([]string{" a2", "a1", "", "a2 "}))
	assert.Empty(t, normalizeAgentIDs(nil))
}
