package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/agencynet/agencynet-server/internal/api/dto"
	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/service"
)

func (s *Server) registerMembershipRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listAgencyAgents",
		Method:      http.MethodGet,
		Path:        "/api/v1/agencies/{agencyID}/agents",
		Summary:     "List agency agents",
		Description: "Lists membership links with the agent's name and email, filtered by status and a name/email search",
		Tags:        []string{"Membership"},
		Security:    bearerAuth,
	}, s.handleListAgencyAgents)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeAgencyAgent",
		Method:      http.MethodDelete,
		Path:        "/api/v1/agencies/{agencyID}/agents/{agentID}",
		Summary:     "Remove an agent",
		Description: "Deletes the membership link. The agent's profile is left untouched.",
		Tags:        []string{"Membership"},
		Security:    bearerAuth,
	}, s.handleRemoveAgencyAgent)
}

func (s *Server) handleListAgencyAgents(ctx context.Context, input *dto.ListAgentsInput) (*dto.ListOutput[*domain.AgencyAgentLink], error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	links, err := s.services.Membership.List(ctx, input.AgencyID, service.MembershipFilter{
		Status: domain.LinkStatus(input.Status),
		Query:  input.Query,
	})
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.ListOutput[*domain.AgencyAgentLink]{Body: dto.NewListResponse(links)}, nil
}

func (s *Server) handleRemoveAgencyAgent(ctx context.Context, input *dto.RemoveAgentInput) (*dto.MessageOutput, error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	if err := s.services.Membership.Remove(ctx, input.AgencyID, input.AgentID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.MessageOutput{Body: dto.MessageResponse{Message: "agent removed"}}, nil
}
