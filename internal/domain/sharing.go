package domain

import (
	"slices"
	"time"
)

// PropertyVisibility is an agency's sharing mode for one property.
// When SharedWithAllAgents is true the property is visible to the agency's
// whole team and no enumerated grants exist for the pair.
type PropertyVisibility struct {
	UpdatedAt           time.Time `json:"updated_at"`
	PropertyID          string    `json:"property_id"`
	AgencyID            string    `json:"agency_id"`
	SharedWithAllAgents bool      `json:"shared_with_all_agents"`
}

// SharedPropertyGrant names one agent a property is shared with.
type SharedPropertyGrant struct {
	CreatedAt       time.Time `json:"created_at"`
	ID              string    `json:"id"`
	PropertyID      string    `json:"property_id"`
	AgentID         string    `json:"agent_id"`
	SharingAgencyID string    `json:"sharing_agency_id"`
	Notified        bool      `json:"notified"`
}

// EffectiveVisibility summarizes who can see a property.
// Count is always zero in broadcast mode.
type EffectiveVisibility struct {
	AgentIDs  []string `json:"agent_ids"`
	Count     int      `json:"count"`
	Broadcast bool     `json:"broadcast"`
}

// GrantDiff is the set difference between existing grants and a desired recipient set.
type GrantDiff struct {
	ToAdd    []string
	ToRemove []*SharedPropertyGrant
	Kept     []*SharedPropertyGrant
}

// IsEmpty reports whether applying the diff would write nothing.
func (d GrantDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// DiffGrants computes which agents to add and which grants to remove so that the
// grant set equals desired. Grants in both sets are returned in Kept and must not be rewritten.
// Duplicate and empty ids in desired are ignored; ToAdd is sorted for deterministic writes.
func DiffGrants(existing []*SharedPropertyGrant, desired []string) GrantDiff {
	want := make(map[string]struct{}, len(desired))
	for _, agentID := range desired {
		if agentID == "" {
			continue
		}
		want[agentID] = struct{}{}
	}

	var diff GrantDiff
	have := make(map[string]struct{}, len(existing))
	for _, g := range existing {
		have[g.AgentID] = struct{}{}
		if _, ok := want[g.AgentID]; ok {
			diff.Kept = append(diff.Kept, g)
		} else {
			diff.ToRemove = append(diff.ToRemove, g)
		}
	}

	for agentID := range want {
		if _, ok := have[agentID]; !ok {
			diff.ToAdd = append(diff.ToAdd, agentID)
		}
	}
	slices.Sort(diff.ToAdd)

	return diff
}
