package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/agencynet/agencynet-server/internal/api/dto"
)

func (s *Server) registerSharingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "setPropertyBroadcast",
		Method:      http.MethodPut,
		Path:        "/api/v1/agencies/{agencyID}/properties/{propertyID}/broadcast",
		Summary:     "Share a property with the whole agency",
		Description: "Turning broadcast on removes every enumerated grant. Turning it off leaves the property unshared.",
		Tags:        []string{"Sharing"},
		Security:    bearerAuth,
	}, s.handleSetBroadcast)

	huma.Register(s.api, huma.Operation{
		OperationID: "reconcilePropertyRecipients",
		Method:      http.MethodPut,
		Path:        "/api/v1/agencies/{agencyID}/properties/{propertyID}/recipients",
		Summary:     "Set the agents a property is shared with",
		Description: "Adds and removes grants so they match the list exactly. Existing grants for agents still in the list are kept as is.",
		Tags:        []string{"Sharing"},
		Security:    bearerAuth,
	}, s.handleReconcileRecipients)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPropertyVisibility",
		Method:      http.MethodGet,
		Path:        "/api/v1/agencies/{agencyID}/properties/{propertyID}/visibility",
		Summary:     "Who can see a property",
		Tags:        []string{"Sharing"},
		Security:    bearerAuth,
	}, s.handleGetVisibility)
}

func (s *Server) handleSetBroadcast(ctx context.Context, input *dto.SetBroadcastInput) (*dto.VisibilityOutput, error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	visibility, err := s.services.Sharing.SetBroadcast(ctx, input.AgencyID, input.PropertyID, input.Body.Broadcast)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.VisibilityOutput{Body: visibility}, nil
}

func (s *Server) handleReconcileRecipients(ctx context.Context, input *dto.ReconcileRecipientsInput) (*dto.ReconcileOutput, error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	result, err := s.services.Sharing.Reconcile(ctx, input.AgencyID, input.PropertyID, input.Body.AgentIDs)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.ReconcileOutput{Body: result}, nil
}

func (s *Server) handleGetVisibility(ctx context.Context, input *dto.PropertyParam) (*dto.VisibilityOutput, error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	visibility, err := s.services.Sharing.EffectiveVisibility(ctx, input.AgencyID, input.PropertyID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.VisibilityOutput{Body: visibility}, nil
}
