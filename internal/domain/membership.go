package domain

import (
	"strings"
	"time"
)

// LinkStatus is the state of the relationship between an agency and an agent.
type LinkStatus string

const (
	// LinkPending means the agent has been invited but has not responded.
	LinkPending LinkStatus = "pending"
	// LinkActive means the agent accepted and acts on the agency's behalf.
	LinkActive LinkStatus = "active"
	// LinkInactive means the agent declined or the relationship was deactivated.
	LinkInactive LinkStatus = "inactive"
)

// ParseLinkStatus converts a label to a LinkStatus.
func ParseLinkStatus(s string) (LinkStatus, bool) {
	switch LinkStatus(strings.ToLower(strings.TrimSpace(s))) {
	case LinkPending:
		return LinkPending, true
	case LinkActive:
		return LinkActive, true
	case LinkInactive:
		return LinkInactive, true
	default:
		return "", false
	}
}

// AgencyAgentLink tracks one agent's membership in one agency.
// AgentName and AgentEmail are joined from the agent profile on reads.
type AgencyAgentLink struct {
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	AgencyID   string     `json:"agency_id"`
	AgentID    string     `json:"agent_id"`
	Status     LinkStatus `json:"status"`
	AgentName  string     `json:"agent_name,omitempty"`
	AgentEmail string     `json:"agent_email,omitempty"`
}
