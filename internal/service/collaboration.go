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

// ContractRequest is an agency's request to collaborate with a developer.
type ContractRequest struct {
	DeveloperID             string `json:"developer_id" validate:"required"`
	AgencyRegistrationURL   string `json:"agency_registration_url" required:"false" validate:"required,document_url"`
	AgencyLicenseURL        string `json:"agency_license_url" required:"false" validate:"required,document_url"`
	AgencySignedContractURL string `json:"agency_signed_contract_url" required:"false" validate:"required,document_url"`
	Notes                   string `json:"notes,omitempty" validate:"max=2000"`
}

// ContractReview is a developer's decision on a pending contract.
type ContractReview struct {
	Decision         domain.ContractStatus `json:"decision"`
	CounterSignedURL string                `json:"developer_counter_signed_contract_url,omitempty"`
	Notes            string                `json:"notes,omitempty"`
}

// ContractView is a contract with the flags derived at read time.
type ContractView struct {
	Contract       *domain.CollaborationContract `json:"contract"`
	LicenseExpired bool                          `json:"license_expired"`
	FullyExecuted  bool                          `json:"fully_executed"`
}

// CollaborationService manages collaboration contracts between developers and agencies.
type CollaborationService struct {
	store     store.Store
	notifier  *Notifier
	runner    *SagaRunner
	validator *validation.Validator
	logger    *slog.Logger
	clock     func() time.Time
}

// NewCollaborationService creates a new collaboration service.
func NewCollaborationService(
	store store.Store,
	notifier *Notifier,
	runner *SagaRunner,
	validator *validation.Validator,
	logger *slog.Logger,
) *CollaborationService {
	return &CollaborationService{
		store:     store,
		notifier:  notifier,
		runner:    runner,
		validator: validator,
		logger:    logger,
		clock:     time.Now,
	}
}

// IsLicenseExpired reports whether the contract's agency license needs re-validation.
func (s *CollaborationService) IsLicenseExpired(c *domain.CollaborationContract) bool {
	return domain.IsLicenseExpired(c, s.clock())
}

func (s *CollaborationService) view(c *domain.CollaborationContract) *ContractView {
	return &ContractView{
		Contract:       c,
		LicenseExpired: s.IsLicenseExpired(c),
		FullyExecuted:  c.IsFullyExecuted(),
	}
}

// Request creates a pending contract between the agency and a developer.
// All three agency documents are required, and a pair can only have one contract.
func (s *CollaborationService) Request(ctx context.Context, agencyID string, req ContractRequest) (*ContractView, error) {
	docs := domain.ContractDocuments{
		AgencyRegistrationURL:   strings.TrimSpace(req.AgencyRegistrationURL),
		AgencyLicenseURL:        strings.TrimSpace(req.AgencyLicenseURL),
		AgencySignedContractURL: strings.TrimSpace(req.AgencySignedContractURL),
	}
	if missing := docs.MissingAgencyDocuments(); len(missing) > 0 {
		details := make(map[string]string, len(missing))
		for _, field := range missing {
			details[field] = "is required"
		}
		return nil, domainerrors.ValidationWithDetails("missing required documents", details)
	}
	req.AgencyRegistrationURL = docs.AgencyRegistrationURL
	req.AgencyLicenseURL = docs.AgencyLicenseURL
	req.AgencySignedContractURL = docs.AgencySignedContractURL
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	developer, err := s.store.GetProfile(ctx, req.DeveloperID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("developer not found")
		}
		return nil, fmt.Errorf("get developer: %w", err)
	}
	if developer.Role != domain.RoleDeveloper {
		return nil, domainerrors.Validation("contracts can only be requested with developer accounts")
	}

	agency, err := s.store.GetAgency(ctx, agencyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("agency not found")
		}
		return nil, fmt.Errorf("get agency: %w", err)
	}

	contractID, err := id.Generate(id.PrefixContract)
	if err != nil {
		return nil, fmt.Errorf("generate contract id: %w", err)
	}

	now := s.clock().UTC()
	contract := &domain.CollaborationContract{
		CreatedAt:   now,
		UpdatedAt:   now,
		ID:          contractID,
		DeveloperID: developer.ID,
		AgencyID:    agency.ID,
		Status:      domain.ContractPending,
		Notes:       strings.TrimSpace(req.Notes),
		Documents:   docs,
	}

	if err := s.store.CreateContract(ctx, contract); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("a contract already exists between this agency and developer")
		}
		return nil, fmt.Errorf("create contract: %w", err)
	}

	s.logger.Info("Contract requested",
		"contract_id", contract.ID,
		"agency_id", agency.ID,
		"developer_id", developer.ID,
	)

	// Best effort: the contract stands even when the developer cannot be notified.
	if err := s.notifier.Notify(ctx, NotifyRequest{
		RecipientID: developer.ID,
		Kind:        domain.NotificationContractRequested,
		Title:       "New collaboration request",
		Body:        fmt.Sprintf("%s requested a collaboration contract.", agency.Name),
		DedupeKey:   "contract.request:" + contract.ID,
		Payload: map[string]string{
			"contract_id": contract.ID,
			"agency_id":   agency.ID,
		},
	}); err != nil {
		s.logger.Warn("failed to notify developer of contract request",
			"contract_id", contract.ID,
			"error", err,
		)
	}

	return s.view(contract), nil
}

// Review resolves a pending contract. Approving requires the developer's
// counter-signed contract; rejecting is terminal. The agency owner is notified.
func (s *CollaborationService) Review(ctx context.Context, developerID, agencyID string, review ContractReview) (*ContractView, error) {
	decision, ok := domain.ParseContractStatus(string(review.Decision))
	if !ok || decision == domain.ContractPending {
		return nil, domainerrors.ValidationWithDetails("invalid decision", map[string]string{
			"decision": "must be one of: active rejected",
		})
	}

	counterSigned := strings.TrimSpace(review.CounterSignedURL)
	if decision == domain.ContractActive {
		if counterSigned == "" {
			return nil, domainerrors.ValidationWithDetails("missing required documents", map[string]string{
				"developer_counter_signed_contract_url": "is required",
			})
		}
		if !validation.IsDocumentURL(counterSigned) {
			return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
				"developer_counter_signed_contract_url": "must be a valid document URL",
			})
		}
	} else {
		counterSigned = ""
	}

	contract, err := s.getContract(ctx, developerID, agencyID)
	if err != nil {
		return nil, err
	}
	// A contract already at decision may be a review that failed after the
	// transition; the saga runner decides whether it resumes.
	if !contract.Status.CanTransition(decision) && contract.Status != decision {
		return nil, domainerrors.StaleTransitionf("contract is already %s", contract.Status)
	}

	agency, err := s.store.GetAgency(ctx, agencyID)
	if err != nil {
		return nil, fmt.Errorf("get agency: %w", err)
	}

	now := s.clock().UTC()
	saga := Saga{
		Kind:      SagaContractReview,
		SubjectID: contract.ID,
		ActorID:   developerID,
	}

	kind, title := domain.NotificationContractApproved, "Collaboration approved"
	if decision == domain.ContractRejected {
		kind, title = domain.NotificationContractRejected, "Collaboration rejected"
	}

	saga.Steps = []SagaStep{
		{Name: "contract", Run: func(ctx context.Context) error {
			ok, err := s.store.TransitionContract(ctx, store.ContractTransition{
				At:               now,
				ID:               contract.ID,
				From:             domain.ContractPending,
				To:               decision,
				Notes:            strings.TrimSpace(review.Notes),
				CounterSignedURL: counterSigned,
			})
			if err != nil {
				return fmt.Errorf("transition contract: %w", err)
			}
			if ok {
				return nil
			}
			current, err := s.store.GetContract(ctx, developerID, agencyID)
			if err != nil {
				return fmt.Errorf("get contract: %w", err)
			}
			if current.Status == decision {
				return nil
			}
			return domainerrors.StaleTransitionf("contract is already %s", current.Status)
		}},
		{Name: "notify", Run: func(ctx context.Context) error {
			return s.notifier.Notify(ctx, NotifyRequest{
				RecipientID: agency.OwnerID,
				Kind:        kind,
				Title:       title,
				Body:        fmt.Sprintf("Your collaboration request was %s.", decision),
				DedupeKey:   saga.ID() + ":notify",
				Payload: map[string]string{
					"contract_id":  contract.ID,
					"developer_id": developerID,
				},
			})
		}},
	}

	if err := s.runner.Run(ctx, saga); err != nil {
		return nil, err
	}

	s.logger.Info("Contract reviewed",
		"contract_id", contract.ID,
		"developer_id", developerID,
		"decision", decision,
	)

	reviewed, err := s.getContract(ctx, developerID, agencyID)
	if err != nil {
		return nil, err
	}
	return s.view(reviewed), nil
}

// Renew replaces the agency license on an active contract and restarts the
// license validity window. The contract's creation date is kept.
func (s *CollaborationService) Renew(ctx context.Context, agencyID, developerID, licenseURL string) (*ContractView, error) {
	licenseURL = strings.TrimSpace(licenseURL)
	if !validation.IsDocumentURL(licenseURL) {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"agency_license_url": "must be a valid document URL",
		})
	}

	contract, err := s.getContract(ctx, developerID, agencyID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.ContractActive {
		return nil, domainerrors.StaleTransitionf("only active contracts can be renewed; contract is %s", contract.Status)
	}

	now := s.clock().UTC()
	ok, err := s.store.RenewContractLicense(ctx, contract.ID, licenseURL, now)
	if err != nil {
		return nil, fmt.Errorf("renew contract license: %w", err)
	}
	if !ok {
		return nil, domainerrors.StaleTransition("contract is no longer active")
	}

	s.logger.Info("Contract license renewed",
		"contract_id", contract.ID,
		"agency_id", agencyID,
	)

	if err := s.notifier.Notify(ctx, NotifyRequest{
		RecipientID: developerID,
		Kind:        domain.NotificationContractRenewed,
		Title:       "Agency license renewed",
		Body:        "An agency you collaborate with uploaded a renewed license.",
		DedupeKey:   "contract.renew:" + contract.ID + ":" + now.Format(time.RFC3339Nano),
		Payload: map[string]string{
			"contract_id": contract.ID,
			"agency_id":   agencyID,
		},
	}); err != nil {
		s.logger.Warn("failed to notify developer of license renewal",
			"contract_id", contract.ID,
			"error", err,
		)
	}

	renewed, err := s.getContract(ctx, developerID, agencyID)
	if err != nil {
		return nil, err
	}
	return s.view(renewed), nil
}

// Get returns the contract between a developer and an agency.
func (s *CollaborationService) Get(ctx context.Context, developerID, agencyID string) (*ContractView, error) {
	contract, err := s.getContract(ctx, developerID, agencyID)
	if err != nil {
		return nil, err
	}
	return s.view(contract), nil
}

// ListForAgency returns every contract the agency requested, newest first.
func (s *CollaborationService) ListForAgency(ctx context.Context, agencyID string) ([]*ContractView, error) {
	contracts, err := s.store.ListContractsByAgency(ctx, agencyID)
	if err != nil {
		return nil, fmt.Errorf("list contracts by agency: %w", err)
	}
	return s.views(contracts), nil
}

// ListForDeveloper returns the developer's contracts, optionally filtered by status.
func (s *CollaborationService) ListForDeveloper(ctx context.Context, developerID string, status domain.ContractStatus) ([]*ContractView, error) {
	if status != "" {
		if _, ok := domain.ParseContractStatus(string(status)); !ok {
			return nil, domainerrors.Validationf("invalid contract status %q", status)
		}
	}

	contracts, err := s.store.ListContractsByDeveloper(ctx, developerID, status)
	if err != nil {
		return nil, fmt.Errorf("list contracts by developer: %w", err)
	}
	return s.views(contracts), nil
}

func (s *CollaborationService) views(contracts []*domain.CollaborationContract) []*ContractView {
	views := make([]*ContractView, 0, len(contracts))
	for _, c := range contracts {
		views = append(views, s.view(c))
	}
	return views
}

func (s *CollaborationService) getContract(ctx context.Context, developerID, agencyID string) (*domain.CollaborationContract, error) {
	contract, err := s.store.GetContract(ctx, developerID, agencyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("contract not found")
		}
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return contract, nil
}
