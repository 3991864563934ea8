package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/agencynet/agencynet-server/internal/api/dto"
	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/service"
)

func (s *Server) registerContractRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "requestContract",
		Method:        http.MethodPost,
		Path:          "/api/v1/agencies/{agencyID}/contracts",
		Summary:       "Request a collaboration contract",
		Description:   "Submits the agency's registration, license and signed contract to a developer for review",
		Tags:          []string{"Contracts"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleRequestContract)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAgencyContracts",
		Method:      http.MethodGet,
		Path:        "/api/v1/agencies/{agencyID}/contracts",
		Summary:     "List the agency's contracts",
		Tags:        []string{"Contracts"},
		Security:    bearerAuth,
	}, s.handleListAgencyContracts)

	huma.Register(s.api, huma.Operation{
		OperationID: "renewContractLicense",
		Method:      http.MethodPost,
		Path:        "/api/v1/agencies/{agencyID}/contracts/{developerID}/renew",
		Summary:     "Renew the agency license",
		Description: "Replaces the license document on an active contract and restarts the eleven-month validity window",
		Tags:        []string{"Contracts"},
		Security:    bearerAuth,
	}, s.handleRenewContract)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDeveloperContracts",
		Method:      http.MethodGet,
		Path:        "/api/v1/developers/{developerID}/contracts",
		Summary:     "List the developer's contracts",
		Tags:        []string{"Contracts"},
		Security:    bearerAuth,
	}, s.handleListDeveloperContracts)

	huma.Register(s.api, huma.Operation{
		OperationID: "reviewContract",
		Method:      http.MethodPost,
		Path:        "/api/v1/developers/{developerID}/contracts/{agencyID}/review",
		Summary:     "Approve or reject a contract",
		Description: "Approval requires the developer's counter-signed contract. Both outcomes are final.",
		Tags:        []string{"Contracts"},
		Security:    bearerAuth,
	}, s.handleReviewContract)
}

func (s *Server) handleRequestContract(ctx context.Context, input *dto.RequestContractInput) (*dto.ContractOutput, error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	contract, err := s.services.Collaboration.Request(ctx, input.AgencyID, input.Body)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.ContractOutput{Body: contract}, nil
}

func (s *Server) handleListAgencyContracts(ctx context.Context, input *dto.AgencyParam) (*dto.ListOutput[*service.ContractView], error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	contracts, err := s.services.Collaboration.ListForAgency(ctx, input.AgencyID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.ListOutput[*service.ContractView]{Body: dto.NewListResponse(contracts)}, nil
}

func (s *Server) handleRenewContract(ctx context.Context, input *dto.RenewContractInput) (*dto.ContractOutput, error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	contract, err := s.services.Collaboration.Renew(ctx, input.AgencyID, input.DeveloperID, input.Body.AgencyLicenseURL)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.ContractOutput{Body: contract}, nil
}

func (s *Server) handleListDeveloperContracts(ctx context.Context, input *dto.ListDeveloperContractsInput) (*dto.ListOutput[*service.ContractView], error) {
	if _, err := RequireDeveloper(ctx, input.DeveloperID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	contracts, err := s.services.Collaboration.ListForDeveloper(ctx, input.DeveloperID, domain.ContractStatus(input.Status))
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.ListOutput[*service.ContractView]{Body: dto.NewListResponse(contracts)}, nil
}

func (s *Server) handleReviewContract(ctx context.Context, input *dto.ReviewContractInput) (*dto.ContractOutput, error) {
	if _, err := RequireDeveloper(ctx, input.DeveloperID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	contract, err := s.services.Collaboration.Review(ctx, input.DeveloperID, input.AgencyID, input.Body)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.ContractOutput{Body: contract}, nil
}
