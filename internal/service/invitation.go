package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/id"
	"github.com/agencynet/agencynet-server/internal/store"
	"github.com/agencynet/agencynet-server/internal/validation"
)

// sagaInvitationResend names the progress reported when a resend deleted the
// old row but could not issue the replacement.
const sagaInvitationResend = "invitation.resend"

// IssueInvitationRequest is the invitee data an agency sends an invitation with.
type IssueInvitationRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,e164"`
	WhatsApp string `json:"whatsapp,omitempty" validate:"omitempty,e164"`
}

// IssuedInvitation is a freshly issued invitation and its bearer token.
// The token is only ever returned here; the store keeps its fingerprint.
type IssuedInvitation struct {
	Invitation *domain.AgentInvitation `json:"invitation"`
	Token      string                  `json:"token"`
}

// InvitationView is an invitation with its read-time expiry flag.
type InvitationView struct {
	Invitation *domain.AgentInvitation `json:"invitation"`
	Expired    bool                    `json:"expired"`
}

// VerifyResult is the public answer to "is this invitation link still usable".
// Only Valid is set for unknown, resolved, or expired tokens.
type VerifyResult struct {
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	InvitationID string     `json:"invitation_id,omitempty"`
	Email        string     `json:"email,omitempty"`
	FullName     string     `json:"full_name,omitempty"`
	AgencyID     string     `json:"agency_id,omitempty"`
	AgencyName   string     `json:"agency_name,omitempty"`
	Valid        bool       `json:"valid"`
}

// InvitationService issues agent invitations and resolves them on the invitee's behalf.
type InvitationService struct {
	store      store.Store
	membership *MembershipService
	notifier   *Notifier
	runner     *SagaRunner
	validator  *validation.Validator
	logger     *slog.Logger
	clock      func() time.Time
}

// NewInvitationService creates a new invitation service.
func NewInvitationService(
	store store.Store,
	membership *MembershipService,
	notifier *Notifier,
	runner *SagaRunner,
	validator *validation.Validator,
	logger *slog.Logger,
) *InvitationService {
	return &InvitationService{
		store:      store,
		membership: membership,
		notifier:   notifier,
		runner:     runner,
		validator:  validator,
		logger:     logger,
		clock:      time.Now,
	}
}

// Issue creates a pending invitation valid for seven days.
//
// When the email already belongs to a profile, the agent is also linked to the
// agency as pending and notified with the token. A pending invitation for the
// same agency and email is a conflict.
func (s *InvitationService) Issue(ctx context.Context, agencyID string, req IssueInvitationRequest) (*IssuedInvitation, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	agency, err := s.getAgency(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNoPending(ctx, agencyID, req.Email); err != nil {
		return nil, err
	}

	invitee, err := s.inviteeProfile(ctx, agencyID, req.Email)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, agency, req, invitee)
}

func (s *InvitationService) issue(ctx context.Context, agency *domain.Agency, req IssueInvitationRequest, invitee *domain.Profile) (*IssuedInvitation, error) {
	token, fingerprint, err := generateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}
	invitationID, err := id.Generate(id.PrefixInvitation)
	if err != nil {
		return nil, fmt.Errorf("generate invitation id: %w", err)
	}

	now := s.clock().UTC()
	inv := &domain.AgentInvitation{
		ExpiresAt: now.Add(domain.InvitationTTL),
		AgencyID:  agency.ID,
		Email:     req.Email,
		FullName:  req.FullName,
		Phone:     req.Phone,
		WhatsApp:  req.WhatsApp,
		TokenHash: fingerprint,
		Status:    domain.InvitationPending,
	}
	inv.ID = invitationID
	inv.InitTimestamps(now)

	saga := Saga{
		Kind:      SagaInvitationIssue,
		SubjectID: inv.ID,
		ActorID:   agency.OwnerID,
	}
	saga.Steps = append(saga.Steps, SagaStep{Name: "invitation", Run: func(ctx context.Context) error {
		if err := s.store.CreateInvitation(ctx, inv); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domainerrors.Conflict("a pending invitation already exists for this email")
			}
			return fmt.Errorf("create invitation: %w", err)
		}
		return nil
	}})

	if invitee != nil {
		saga.Steps = append(saga.Steps,
			SagaStep{Name: "membership", Run: func(ctx context.Context) error {
				return s.membership.Upsert(ctx, agency.ID, invitee.ID, domain.LinkPending)
			}},
			SagaStep{Name: "notify", Run: func(ctx context.Context) error {
				return s.notifier.Notify(ctx, NotifyRequest{
					RecipientID: invitee.ID,
					Kind:        domain.NotificationInvitationReceived,
					Title:       "New agency invitation",
					Body:        fmt.Sprintf("%s invited you to join their team.", agency.Name),
					DedupeKey:   saga.ID() + ":notify",
					Payload: map[string]string{
						"invitation_id": inv.ID,
						"agency_id":     agency.ID,
						"agency_name":   agency.Name,
						"token":         token,
					},
				})
			}},
		)
	}

	if err := s.runner.Run(ctx, saga); err != nil {
		return nil, err
	}

	s.logger.Info("Invitation issued",
		"invitation_id", inv.ID,
		"agency_id", agency.ID,
		"existing_profile", invitee != nil,
	)

	return &IssuedInvitation{Invitation: inv, Token: token}, nil
}

// Resend deletes the invitation and issues a new one with the same payload.
// The old token stops working. Accepted invitations cannot be resent.
func (s *InvitationService) Resend(ctx context.Context, agencyID, invitationID string) (*IssuedInvitation, error) {
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("invitation not found")
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.AgencyID != agencyID {
		return nil, domainerrors.NotFound("invitation not found")
	}
	if inv.Status == domain.InvitationAccepted {
		return nil, domainerrors.StaleTransition("invitation was already accepted")
	}

	agency, err := s.getAgency(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	if inv.Status != domain.InvitationPending {
		if err := s.ensureNoPending(ctx, agencyID, inv.Email); err != nil {
			return nil, err
		}
	}

	invitee, err := s.inviteeProfile(ctx, agencyID, inv.Email)
	if err != nil {
		return nil, err
	}

	payload := inv.Payload()

	if err := s.store.DeleteInvitation(ctx, inv.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.StaleTransition("invitation was already replaced")
		}
		return nil, fmt.Errorf("delete invitation: %w", err)
	}

	issued, err := s.issue(ctx, agency, IssueInvitationRequest{
		Email:    payload.Email,
		FullName: payload.FullName,
		Phone:    payload.Phone,
		WhatsApp: payload.WhatsApp,
	}, invitee)
	if err != nil {
		if errors.Is(err, domainerrors.ErrPartialFailure) {
			return nil, err
		}
		return nil, domainerrors.PartialFailure(domainerrors.PartialFailureDetails{
			SagaID:         domain.SagaID(sagaInvitationResend, inv.ID),
			FailedStep:     "issue",
			CompletedSteps: []string{"delete"},
		}, err)
	}

	s.logger.Info("Invitation resent",
		"old_invitation_id", inv.ID,
		"invitation_id", issued.Invitation.ID,
		"agency_id", agencyID,
	)
	return issued, nil
}

// Verify reports whether token names a pending, unexpired invitation.
// It never writes and never distinguishes unknown from expired tokens.
func (s *InvitationService) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return &VerifyResult{}, nil
	}

	inv, err := s.store.GetInvitationByTokenHash(ctx, fingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &VerifyResult{}, nil
		}
		return nil, fmt.Errorf("get invitation by token: %w", err)
	}

	if !inv.IsValidAt(s.clock()) {
		return &VerifyResult{}, nil
	}

	agency, err := s.getAgency(ctx, inv.AgencyID)
	if err != nil {
		return nil, err
	}

	expiresAt := inv.ExpiresAt
	return &VerifyResult{
		ExpiresAt:    &expiresAt,
		InvitationID: inv.ID,
		Email:        inv.Email,
		FullName:     inv.FullName,
		AgencyID:     agency.ID,
		AgencyName:   agency.Name,
		Valid:        true,
	}, nil
}

// Accept resolves the invitation as accepted by actorID, activates the
// membership link, associates the actor's profile with the agency, and
// notifies the agency owner.
//
// Calling Accept again after a partial failure resumes from the failed step.
// Calling it on an invitation that is already resolved returns a stale
// transition error.
func (s *InvitationService) Accept(ctx context.Context, token, actorID string) (*domain.AgentInvitation, error) {
	return s.resolve(ctx, token, actorID, domain.InvitationAccepted)
}

// Decline resolves the invitation as refused by actorID, deactivates the
// membership link, and notifies the agency owner.
func (s *InvitationService) Decline(ctx context.Context, token, actorID string) (*domain.AgentInvitation, error) {
	return s.resolve(ctx, token, actorID, domain.InvitationRefused)
}

func (s *InvitationService) resolve(ctx context.Context, token, actorID string, to domain.InvitationStatus) (*domain.AgentInvitation, error) {
	inv, err := s.store.GetInvitationByTokenHash(ctx, fingerprintToken(strings.TrimSpace(token)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("invitation not found")
		}
		return nil, fmt.Errorf("get invitation by token: %w", err)
	}

	actor, err := s.store.GetProfile(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("profile not found")
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if domain.NormalizeEmail(actor.Email) != domain.NormalizeEmail(inv.Email) {
		return nil, domainerrors.Forbidden("this invitation was sent to a different email address")
	}

	now := s.clock().UTC()
	if inv.Status == domain.InvitationPending && inv.IsExpiredAt(now) {
		return nil, domainerrors.TokenExpired("invitation has expired")
	}
	// Only the resolving actor may resume a resolution that stopped part way.
	if !inv.Status.CanTransition(to) && (inv.Status != to || inv.ResolvedBy != actor.ID) {
		return nil, domainerrors.StaleTransitionf("invitation is already %s", inv.Status)
	}

	agency, err := s.getAgency(ctx, inv.AgencyID)
	if err != nil {
		return nil, err
	}

	saga := s.resolutionSaga(inv, agency, actor, to, now)
	if err := s.runner.Run(ctx, saga); err != nil {
		return nil, err
	}

	s.logger.Info("Invitation resolved",
		"invitation_id", inv.ID,
		"agency_id", inv.AgencyID,
		"actor_id", actorID,
		"status", to,
	)

	resolved, err := s.store.GetInvitation(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return resolved, nil
}

func (s *InvitationService) resolutionSaga(inv *domain.AgentInvitation, agency *domain.Agency, actor *domain.Profile, to domain.InvitationStatus, now time.Time) Saga {
	kind := SagaInvitationAccept
	notification := NotifyRequest{
		RecipientID: agency.OwnerID,
		Kind:        domain.NotificationInvitationAccepted,
		Title:       "Invitation accepted",
		Body:        fmt.Sprintf("%s joined your team.", actor.FullName),
	}
	if to == domain.InvitationRefused {
		kind = SagaInvitationDecline
		notification.Kind = domain.NotificationInvitationDeclined
		notification.Title = "Invitation declined"
		notification.Body = fmt.Sprintf("%s declined your invitation.", actor.FullName)
	}

	saga := Saga{
		Kind:      kind,
		SubjectID: inv.ID,
		ActorID:   actor.ID,
	}
	notification.DedupeKey = saga.ID() + ":notify"
	notification.Payload = map[string]string{
		"invitation_id": inv.ID,
		"agent_id":      actor.ID,
	}

	saga.Steps = []SagaStep{
		{Name: "invitation", Run: func(ctx context.Context) error {
			ok, err := s.store.TransitionInvitation(ctx, store.InvitationTransition{
				At:      now,
				ID:      inv.ID,
				ActorID: actor.ID,
				From:    domain.InvitationPending,
				To:      to,
			})
			if err != nil {
				return fmt.Errorf("transition invitation: %w", err)
			}
			if !ok {
				return domainerrors.StaleTransition("invitation was already resolved")
			}
			return nil
		}},
		{Name: "membership", Run: func(ctx context.Context) error {
			return s.membership.Upsert(ctx, agency.ID, actor.ID, to.LinkStatus())
		}},
	}
	if to == domain.InvitationAccepted {
		saga.Steps = append(saga.Steps, SagaStep{Name: "profile", Run: func(ctx context.Context) error {
			if err := s.store.SetProfileAgency(ctx, actor.ID, agency.ID, now); err != nil {
				return fmt.Errorf("set profile agency: %w", err)
			}
			return nil
		}})
	}
	saga.Steps = append(saga.Steps, SagaStep{Name: "notify", Run: func(ctx context.Context) error {
		return s.notifier.Notify(ctx, notification)
	}})

	return saga
}

// List returns the agency's invitations, newest first. An empty status lists all.
func (s *InvitationService) List(ctx context.Context, agencyID string, status domain.InvitationStatus) ([]*InvitationView, error) {
	if status != "" {
		if _, ok := domain.ParseInvitationStatus(string(status)); !ok {
			return nil, domainerrors.Validationf("invalid invitation status %q", status)
		}
	}

	invitations, err := s.store.ListInvitations(ctx, agencyID, status)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}

	now := s.clock()
	views := make([]*InvitationView, 0, len(invitations))
	for _, inv := range invitations {
		views = append(views, &InvitationView{
			Invitation: inv,
			Expired:    inv.Status == domain.InvitationPending && inv.IsExpiredAt(now),
		})
	}
	return views, nil
}

func (s *InvitationService) getAgency(ctx context.Context, agencyID string) (*domain.Agency, error) {
	agency, err := s.store.GetAgency(ctx, agencyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("agency not found")
		}
		return nil, fmt.Errorf("get agency: %w", err)
	}
	return agency, nil
}

func (s *InvitationService) ensureNoPending(ctx context.Context, agencyID, email string) error {
	_, err := s.store.FindPendingInvitation(ctx, agencyID, email)
	switch {
	case err == nil:
		return domainerrors.Conflict("a pending invitation already exists for this email")
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("find pending invitation: %w", err)
	}
}

// inviteeProfile returns the profile registered under email, or nil when the
// invitee has no account yet. Active members cannot be invited again.
func (s *InvitationService) inviteeProfile(ctx context.Context, agencyID, email string) (*domain.Profile, error) {
	profile, err := s.store.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile by email: %w", err)
	}

	active, err := s.membership.IsActiveMember(ctx, agencyID, profile.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, domainerrors.Conflict("this agent is already an active member of the agency")
	}
	return profile, nil
}
