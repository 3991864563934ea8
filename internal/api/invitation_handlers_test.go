package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencynet/agencynet-server/internal/config"
	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/service"
)

func TestInvitationFlow(t *testing.T) {
	ts := setupTestServer(t)
	owner := ts.seedAgency(t, "agency-1", "Casa Azul")
	agent := ts.seedProfile(t, "agent-1", "maria@example.com", domain.RoleAgent)

	resp := ts.api.Post("/api/v1/agencies/agency-1/invitations", owner, map[string]any{
		"email":     "Maria@Example.com",
		"full_name": "María González",
		"phone":     "+34600111222",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	issued := decodeData[service.IssuedInvitation](t, resp.Body.Bytes())
	require.NotEmpty(t, issued.Token)
	assert.Equal(t, "maria@example.com", issued.Invitation.Email)
	assert.Equal(t, domain.InvitationPending, issued.Invitation.Status)

	// Public verification needs no token.
	resp = ts.api.Get("/api/v1/invitations/verify/" + issued.Token)
	require.Equal(t, http.StatusOK, resp.Code)
	verified := decodeData[service.VerifyResult](t, resp.Body.Bytes())
	assert.True(t, verified.Valid)
	assert.Equal(t, "Casa Azul", verified.AgencyName)
	assert.Equal(t, issued.Invitation.ID, verified.InvitationID)

	// The invitee already had a profile, so they were notified.
	resp = ts.api.Get("/api/v1/notifications", ts.bearer(t, agent))
	require.Equal(t, http.StatusOK, resp.Code)
	notifications := decodeData[struct {
		Items []*domain.Notification `json:"items"`
	}](t, resp.Body.Bytes())
	require.Len(t, notifications.Items, 1)
	assert.Equal(t, domain.NotificationInvitationReceived, notifications.Items[0].Kind)

	resp = ts.api.Post("/api/v1/invitations/"+issued.Token+"/accept", ts.bearer(t, agent))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	accepted := decodeData[service.InvitationView](t, resp.Body.Bytes())
	assert.Equal(t, domain.InvitationAccepted, accepted.Invitation.Status)

	// A second accept is stale and the token no longer verifies.
	resp = ts.api.Post("/api/v1/invitations/"+issued.Token+"/accept", ts.bearer(t, agent))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "STALE_TRANSITION", decode(t, resp.Body.Bytes()).Code)

	resp = ts.api.Get("/api/v1/invitations/verify/" + issued.Token)
	assert.False(t, decodeData[service.VerifyResult](t, resp.Body.Bytes()).Valid)

	resp = ts.api.Get("/api/v1/agencies/agency-1/agents?status=active", owner)
	require.Equal(t, http.StatusOK, resp.Code)
	agents := decodeData[struct {
		Items []*domain.AgencyAgentLink `json:"items"`
		Total int                       `json:"total"`
	}](t, resp.Body.Bytes())
	require.Equal(t, 1, agents.Total)
	assert.Equal(t, "agent-1", agents.Items[0].AgentID)
}

func TestIssueInvitation_Errors(t *testing.T) {
	ts := setupTestServer(t)
	owner := ts.seedAgency(t, "agency-1", "Casa Azul")

	body := map[string]any{"email": "new@example.com", "full_name": "New Agent"}
	resp := ts.api.Post("/api/v1/agencies/agency-1/invitations", owner, body)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Post("/api/v1/agencies/agency-1/invitations", owner, body)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "CONFLICT", decode(t, resp.Body.Bytes()).Code)

	resp = ts.api.Post("/api/v1/agencies/agency-1/invitations", owner, map[string]any{
		"email":     "not-an-email",
		"full_name": "Bad Email",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decode(t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", env.Code)
	assert.Contains(t, env.Details, "email")

	// Schema errors from huma also come back as VALIDATION.
	resp = ts.api.Post("/api/v1/agencies/agency-1/invitations", owner, map[string]any{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decode(t, resp.Body.Bytes()).Code)
}

func TestResendInvitation(t *testing.T) {
	ts := setupTestServer(t)
	owner := ts.seedAgency(t, "agency-1", "Casa Azul")

	resp := ts.api.Post("/api/v1/agencies/agency-1/invitations", owner, map[string]any{
		"email":     "new@example.com",
		"full_name": "New Agent",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	first := decodeData[service.IssuedInvitation](t, resp.Body.Bytes())

	resp = ts.api.Post("/api/v1/agencies/agency-1/invitations/"+first.Invitation.ID+"/resend", owner)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	second := decodeData[service.IssuedInvitation](t, resp.Body.Bytes())
	assert.NotEqual(t, first.Token, second.Token)

	resp = ts.api.Get("/api/v1/invitations/verify/" + first.Token)
	assert.False(t, decodeData[service.VerifyResult](t, resp.Body.Bytes()).Valid)
	resp = ts.api.Get("/api/v1/invitations/verify/" + second.Token)
	assert.True(t, decodeData[service.VerifyResult](t, resp.Body.Bytes()).Valid)

	resp = ts.api.Get("/api/v1/agencies/agency-1/invitations?status=pending", owner)
	list := decodeData[struct {
		Items []*service.InvitationView `json:"items"`
	}](t, resp.Body.Bytes())
	require.Len(t, list.Items, 1)
	assert.Equal(t, second.Invitation.ID, list.Items[0].Invitation.ID)
	assert.False(t, list.Items[0].Expired)
}

func TestAcceptInvitation_RequiresInvitee(t *testing.T) {
	ts := setupTestServer(t)
	owner := ts.seedAgency(t, "agency-1", "Casa Azul")
	ts.seedProfile(t, "agent-1", "maria@example.com", domain.RoleAgent)
	other := ts.seedProfile(t, "agent-2", "bob@example.com", domain.RoleAgent)

	resp := ts.api.Post("/api/v1/agencies/agency-1/invitations", owner, map[string]any{
		"email":     "maria@example.com",
		"full_name": "María González",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	issued := decodeData[service.IssuedInvitation](t, resp.Body.Bytes())

	resp = ts.api.Post("/api/v1/invitations/" + issued.Token + "/accept")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post("/api/v1/invitations/"+issued.Token+"/decline", ts.bearer(t, other))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/invitations/unknown-token/accept", ts.bearer(t, other))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestVerifyInvitation_RateLimited(t *testing.T) {
	ts := setupTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.VerifyPerMinute = 1
		cfg.RateLimit.VerifyBurst = 2
	})

	for range 2 {
		resp := ts.api.Get("/api/v1/invitations/verify/whatever", "X-Forwarded-For: 203.0.113.7")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.False(t, decodeData[service.VerifyResult](t, resp.Body.Bytes()).Valid)
	}

	resp := ts.api.Get("/api/v1/invitations/verify/whatever", "X-Forwarded-For: 203.0.113.7")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, resp.Body.Bytes()).Code)
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))

	// Another client has its own budget.
	resp = ts.api.Get("/api/v1/invitations/verify/whatever", "X-Forwarded-For: 198.51.100.1")
	assert.Equal(t, http.StatusOK, resp.Code)
}
