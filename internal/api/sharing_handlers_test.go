package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/service"
)

func TestSharingFlow(t *testing.T) {
	ts := setupTestServer(t)
	owner := ts.seedAgency(t, "agency-1", "Casa Azul")
	for _, id := range []string{"a1", "a2", "a3"} {
		ts.seedProfile(t, id, id+"@example.com", domain.RoleAgent)
		require.NoError(t, ts.services.Membership.Upsert(context.Background(), "agency-1", id, domain.LinkActive))
	}

	const base = "/api/v1/agencies/agency-1/properties/prop-1"

	resp := ts.api.Put(base+"/recipients", owner, map[string]any{"agent_ids": []string{"a1", "a2"}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	first := decodeData[service.ReconcileResult](t, resp.Body.Bytes())
	assert.Equal(t, []string{"a1", "a2"}, first.Added)

	resp = ts.api.Put(base+"/recipients", owner, map[string]any{"agent_ids": []string{"a2", "a3"}})
	require.Equal(t, http.StatusOK, resp.Code)
	second := decodeData[service.ReconcileResult](t, resp.Body.Bytes())
	assert.Equal(t, []string{"a3"}, second.Added)
	assert.Equal(t, []string{"a1"}, second.Removed)
	assert.Equal(t, []string{"a2"}, second.Kept)

	resp = ts.api.Get(base+"/visibility", owner)
	require.Equal(t, http.StatusOK, resp.Code)
	visibility := decodeData[domain.EffectiveVisibility](t, resp.Body.Bytes())
	assert.False(t, visibility.Broadcast)
	assert.Equal(t, 2, visibility.Count)
	assert.ElementsMatch(t, []string{"a2", "a3"}, visibility.AgentIDs)

	resp = ts.api.Put(base+"/broadcast", owner, map[string]any{"broadcast": true})
	require.Equal(t, http.StatusOK, resp.Code)
	visibility = decodeData[domain.EffectiveVisibility](t, resp.Body.Bytes())
	assert.True(t, visibility.Broadcast)
	assert.Equal(t, 0, visibility.Count)
	assert.Empty(t, visibility.AgentIDs)
}

func TestReconcile_RejectsNonMembers(t *testing.T) {
	ts := setupTestServer(t)
	owner := ts.seedAgency(t, "agency-1", "Casa Azul")

	resp := ts.api.Put("/api/v1/agencies/agency-1/properties/prop-1/recipients", owner,
		map[string]any{"agent_ids": []string{"ghost"}})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decode(t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", env.Code)
	assert.Contains(t, env.Details, "ghost")
}
