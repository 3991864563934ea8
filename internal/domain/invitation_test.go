package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgentInvitation_IsValidAt(t *testing.T) {
	issued := date(2024, time.January, 1)
	inv := &AgentInvitation{
		Record:    Record{CreatedAt: issued},
		Status:    InvitationPending,
		ExpiresAt: issued.Add(InvitationTTL),
	}

	assert.Equal(t, date(2024, time.January, 8), inv.ExpiresAt)
	assert.True(t, inv.IsValidAt(date(2024, time.January, 5)))
	assert.False(t, inv.IsValidAt(date(2024, time.January, 9)))
	assert.False(t, inv.IsValidAt(inv.ExpiresAt), "expiry instant is exclusive")

	inv.Status = InvitationAccepted
	assert.False(t, inv.IsValidAt(date(2024, time.January, 5)))
}

func TestInvitationStatus_Transitions(t *testing.T) {
	tests := []struct {
		from     InvitationStatus
		to       InvitationStatus
		expected bool
	}{
		{InvitationPending, InvitationAccepted, true},
		{InvitationPending, InvitationRefused, true},
		{InvitationPending, InvitationPending, false},
		{InvitationAccepted, InvitationRefused, false},
		{InvitationRefused, InvitationAccepted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransition(tt.to))
		})
	}
}

func TestInvitationStatus_LinkStatus(t *testing.T) {
	assert.Equal(t, LinkActive, InvitationAccepted.LinkStatus())
	assert.Equal(t, LinkInactive, InvitationRefused.LinkStatus())
	assert.Equal(t, LinkPending, InvitationPending.LinkStatus())
}

func TestParseInvitationStatus(t *testing.T) {
	s, ok := ParseInvitationStatus(" Accepted ")
	assert.True(t, ok)
	assert.Equal(t, InvitationAccepted, s)

	_, ok = ParseInvitationStatus("expired")
	assert.False(t, ok)
}
