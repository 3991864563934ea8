package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/agencynet/agencynet-server/internal/api/dto"
	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/service"
)

func (s *Server) registerInvitationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "issueInvitation",
		Method:        http.MethodPost,
		Path:          "/api/v1/agencies/{agencyID}/invitations",
		Summary:       "Invite an agent",
		Description:   "Issues a seven-day invitation and notifies the invitee if they already have a profile. The token is only returned here.",
		Tags:          []string{"Invitations"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleIssueInvitation)

	huma.Register(s.api, huma.Operation{
		OperationID: "listInvitations",
		Method:      http.MethodGet,
		Path:        "/api/v1/agencies/{agencyID}/invitations",
		Summary:     "List invitations",
		Description: "Lists the agency's invitations, newest first, with an expired flag on stale pending ones",
		Tags:        []string{"Invitations"},
		Security:    bearerAuth,
	}, s.handleListInvitations)

	huma.Register(s.api, huma.Operation{
		OperationID:   "resendInvitation",
		Method:        http.MethodPost,
		Path:          "/api/v1/agencies/{agencyID}/invitations/{id}/resend",
		Summary:       "Resend an invitation",
		Description:   "Replaces the invitation with a fresh one for the same invitee. The old token stops working.",
		Tags:          []string{"Invitations"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleResendInvitation)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyInvitation",
		Method:      http.MethodGet,
		Path:        "/api/v1/invitations/verify/{token}",
		Summary:     "Verify an invitation token",
		Description: "Public. Reports whether the token is pending and unexpired, and what it was issued for. Rate limited per client IP.",
		Tags:        []string{"Invitations"},
		Middlewares: huma.Middlewares{s.rateLimitByIP(s.verifyLimiter)},
	}, s.handleVerifyInvitation)

	huma.Register(s.api, huma.Operation{
		OperationID: "acceptInvitation",
		Method:      http.MethodPost,
		Path:        "/api/v1/invitations/{token}/accept",
		Summary:     "Accept an invitation",
		Description: "Joins the inviting agency. Retrying after a partial failure resumes where it stopped.",
		Tags:        []string{"Invitations"},
		Security:    bearerAuth,
	}, s.handleAcceptInvitation)

	huma.Register(s.api, huma.Operation{
		OperationID: "declineInvitation",
		Method:      http.MethodPost,
		Path:        "/api/v1/invitations/{token}/decline",
		Summary:     "Decline an invitation",
		Description: "Refuses the invitation and marks any membership link inactive",
		Tags:        []string{"Invitations"},
		Security:    bearerAuth,
	}, s.handleDeclineInvitation)
}

func (s *Server) handleIssueInvitation(ctx context.Context, input *dto.IssueInvitationInput) (*dto.IssuedInvitationOutput, error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	issued, err := s.services.Invitation.Issue(ctx, input.AgencyID, input.Body)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.IssuedInvitationOutput{Body: issued}, nil
}

func (s *Server) handleListInvitations(ctx context.Context, input *dto.ListInvitationsInput) (*dto.ListOutput[*service.InvitationView], error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	views, err := s.services.Invitation.List(ctx, input.AgencyID, domain.InvitationStatus(input.Status))
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.ListOutput[*service.InvitationView]{Body: dto.NewListResponse(views)}, nil
}

func (s *Server) handleResendInvitation(ctx context.Context, input *dto.ResendInvitationInput) (*dto.IssuedInvitationOutput, error) {
	if _, err := s.RequireAgencyOwner(ctx, input.AgencyID); err != nil {
		return nil, s.apiError(ctx, err)
	}

	issued, err := s.services.Invitation.Resend(ctx, input.AgencyID, input.InvitationID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.IssuedInvitationOutput{Body: issued}, nil
}

func (s *Server) handleVerifyInvitation(ctx context.Context, input *dto.InvitationTokenInput) (*dto.VerifyInvitationOutput, error) {
	result, err := s.services.Invitation.Verify(ctx, input.Token)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.VerifyInvitationOutput{Body: result}, nil
}

func (s *Server) handleAcceptInvitation(ctx context.Context, input *dto.InvitationTokenInput) (*dto.InvitationOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := s.services.Invitation.Accept(ctx, input.Token, userID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.InvitationOutput{Body: &service.InvitationView{Invitation: inv}}, nil
}

func (s *Server) handleDeclineInvitation(ctx context.Context, input *dto.InvitationTokenInput) (*dto.InvitationOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := s.services.Invitation.Decline(ctx, input.Token, userID)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.InvitationOutput{Body: &service.InvitationView{Invitation: inv}}, nil
}
