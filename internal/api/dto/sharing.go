package dto

import (
	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/service"
)

// PropertyParam identifies a property within the acting agency.
type PropertyParam struct {
	AgencyParam
	PropertyID string `path:"propertyID" doc:"Property identifier"`
}

// BroadcastRequest turns agency-wide visibility on or off.
type BroadcastRequest struct {
	Broadcast bool `json:"broadcast" doc:"Share with every agent of the agency"`
}

// SetBroadcastInput sets a property's broadcast flag.
type SetBroadcastInput struct {
	PropertyParam
	Body BroadcastRequest
}

// RecipientsRequest is the full desired set of agents a property is shared with.
type RecipientsRequest struct {
	AgentIDs []string `json:"agent_ids" maxItems:"500" doc:"Agent profile identifiers; an empty list removes every grant"`
}

// ReconcileRecipientsInput replaces a property's recipient set.
type ReconcileRecipientsInput struct {
	PropertyParam
	Body RecipientsRequest
}

// ReconcileOutput lists which grants were added, removed and kept.
type ReconcileOutput struct {
	Body *service.ReconcileResult
}

// VisibilityOutput is who can see a property.
type VisibilityOutput struct {
	Body *domain.EffectiveVisibility
}
