package domain

import (
	"strings"
	"time"
)

// InvitationTTL is how long an issued invitation token stays usable.
const InvitationTTL = 7 * 24 * time.Hour

// InvitationStatus is the lifecycle state of an agent invitation.
type InvitationStatus string

const (
	// InvitationPending is an invitation waiting for the invitee to respond.
	InvitationPending InvitationStatus = "pending"
	// InvitationAccepted is an invitation the invitee accepted.
	InvitationAccepted InvitationStatus = "accepted"
	// InvitationRefused is an invitation the invitee declined.
	InvitationRefused InvitationStatus = "refused"
)

// ParseInvitationStatus converts a stored or user-supplied label to an InvitationStatus.
func ParseInvitationStatus(s string) (InvitationStatus, bool) {
	switch InvitationStatus(strings.ToLower(strings.TrimSpace(s))) {
	case InvitationPending:
		return InvitationPending, true
	case InvitationAccepted:
		return InvitationAccepted, true
	case InvitationRefused:
		return InvitationRefused, true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is allowed from this status.
func (s InvitationStatus) IsTerminal() bool {
	switch s {
	case InvitationAccepted, InvitationRefused:
		return true
	case InvitationPending:
		return false
	default:
		return true
	}
}

// CanTransition reports whether an invitation may move from s to next.
// Only pending invitations can be resolved, and only into accepted or refused.
func (s InvitationStatus) CanTransition(next InvitationStatus) bool {
	switch s {
	case InvitationPending:
		return next == InvitationAccepted || next == InvitationRefused
	case InvitationAccepted, InvitationRefused:
		return false
	default:
		return false
	}
}

// LinkStatus returns the membership link status an invitation outcome produces.
func (s InvitationStatus) LinkStatus() LinkStatus {
	switch s {
	case InvitationAccepted:
		return LinkActive
	case InvitationRefused:
		return LinkInactive
	case InvitationPending:
		return LinkPending
	default:
		return LinkPending
	}
}

// AgentInvitation is an agency's time-boxed invitation for an agent to join its team.
// The raw token is never stored; TokenHash holds its fingerprint.
type AgentInvitation struct {
	Record
	ExpiresAt  time.Time        `json:"expires_at"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	AgencyID   string           `json:"agency_id"`
	Email      string           `json:"email"`
	FullName   string           `json:"full_name"`
	Phone      string           `json:"phone,omitempty"`
	WhatsApp   string           `json:"whatsapp,omitempty"`
	TokenHash  string           `json:"-"`
	Status     InvitationStatus `json:"status"`
	ResolvedBy string           `json:"resolved_by,omitempty"`
}

// IsExpiredAt reports whether the invitation's validity window has closed at now.
func (i *AgentInvitation) IsExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsValidAt reports whether the invitation can still be acted on at now.
// Validity is derived on every read rather than stored, so it cannot drift.
func (i *AgentInvitation) IsValidAt(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpiredAt(now)
}

// InvitationPayload is the invitee data an invitation was issued with.
// Resend re-issues with exactly this payload.
type InvitationPayload struct {
	Email    string
	FullName string
	Phone    string
	WhatsApp string
}

// Payload returns the invitee data carried by the invitation.
func (i *AgentInvitation) Payload() InvitationPayload {
	return InvitationPayload{
		Email:    i.Email,
		FullName: i.FullName,
		Phone:    i.Phone,
		WhatsApp: i.WhatsApp,
	}
}
