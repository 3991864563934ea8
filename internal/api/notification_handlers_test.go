package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencynet/agencynet-server/internal/auth"
	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/sse"
)

func streamRequest(ts *testServer, query, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/changes/stream"+query, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", strings.TrimPrefix(authHeader, "Authorization: "))
	}
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	return w
}

func TestChangeStream_Rejections(t *testing.T) {
	ts := setupTestServer(t)
	ownerAuth := ts.seedAgency(t, "agency-1", "Harbour Realty")
	stranger := ts.bearer(t, ts.seedProfile(t, "agent-9", "nine@example.com", domain.RoleAgent))

	tests := []struct {
		name   string
		query  string
		auth   string
		status int
		code   string
	}{
		{"anonymous", "", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown table", "?tables=bogus", ownerAuth, http.StatusBadRequest, "VALIDATION"},
		{"not the owner", "?agency=agency-1", stranger, http.StatusForbidden, "FORBIDDEN"},
		{"unknown agency", "?agency=nope", ownerAuth, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := streamRequest(ts, tt.query, tt.auth)

			assert.Equal(t, tt.status, w.Code, "body: %s", w.Body.String())
			env := decode(t, w.Body.Bytes())
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestResolveSubscription_Scope(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	ts.seedAgency(t, "agency-1", "Harbour Realty")
	ts.seedProfile(t, "agent-1", "one@example.com", domain.RoleAgent)
	require.NoError(t, ts.db.SetProfileAgency(ctx, "agency-1-owner", "agency-1", time.Now()))
	require.NoError(t, ts.db.SetProfileAgency(ctx, "agent-1", "agency-1", time.Now()))

	resolve := func(t *testing.T, userID string, role domain.Role) sse.Subscription {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/changes/stream", nil)
		req = req.WithContext(withClaims(req.Context(), &auth.AccessClaims{UserID: userID, Role: role}))
		sub, err := ts.resolveSubscription(req)
		require.NoError(t, err)
		return sub
	}
	invitation := sse.NewRowEvent(sse.TableInvitations, sse.OpInsert, nil, "agency-1", "")
	contract := sse.NewRowEvent(sse.TableContracts, sse.OpUpdate, nil, "agency-1", "")

	t.Run("owner follows own agency", func(t *testing.T) {
		sub := resolve(t, "agency-1-owner", domain.RoleAgency)
		assert.Equal(t, "agency-1", sub.AgencyID)
		assert.True(t, sub.Matches(invitation))
		assert.True(t, sub.Matches(contract))
	})

	t.Run("linked agent sees only own rows", func(t *testing.T) {
		sub := resolve(t, "agent-1", domain.RoleAgent)
		assert.Empty(t, sub.AgencyID)
		assert.Equal(t, "agent-1", sub.UserID)
		assert.False(t, sub.Matches(invitation))
		assert.False(t, sub.Matches(contract))
		assert.True(t, sub.Matches(sse.NewRowEvent(sse.TableNotifications, sse.OpInsert, nil, "", "agent-1")))
	})
}

func TestListNotifications_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/notifications")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, resp.Body.Bytes()).Code)
}
