package dto

import "github.com/agencynet/agencynet-server/internal/service"

// IssueInvitationInput is the request to invite an agent to an agency.
type IssueInvitationInput struct {
	AgencyParam
	Body service.IssueInvitationRequest
}

// ListInvitationsInput filters an agency's invitations.
type ListInvitationsInput struct {
	AgencyParam
	Status string `query:"status" enum:"pending,accepted,refused" doc:"Only invitations in this status"`
}

// ResendInvitationInput identifies the invitation to reissue.
type ResendInvitationInput struct {
	AgencyParam
	InvitationID string `path:"id" doc:"Invitation identifier"`
}

// IssuedInvitationOutput carries a new invitation and its one-time token.
type IssuedInvitationOutput struct {
	Body *service.IssuedInvitation
}

// InvitationTokenInput carries an invitation token from the link sent to the agent.
type InvitationTokenInput struct {
	Token string `path:"token" doc:"Invitation token"`
}

// VerifyInvitationOutput reports whether a token is usable and what it was issued for.
type VerifyInvitationOutput struct {
	Body *service.VerifyResult
}

// InvitationOutput is a single invitation.
type InvitationOutput struct {
	Body *service.InvitationView
}
