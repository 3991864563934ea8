package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/store"
)

const tracerName = "github.com/agencynet/agencynet-server/internal/service"

// Saga kinds. Each kind plus subject id names exactly one durable progress record.
const (
	SagaInvitationIssue   = "invitation.issue"
	SagaInvitationAccept  = "invitation.accept"
	SagaInvitationDecline = "invitation.decline"
	SagaContractReview    = "contract.review"
)

// SagaStep is one write in a multi-step transition.
// Run must be idempotent: it may execute again after a crash between the
// write and the progress update.
type SagaStep struct {
	Name string
	Run  func(ctx context.Context) error
}

// Saga is a sequence of dependent writes that are not wrapped in a transaction.
type Saga struct {
	Kind      string
	SubjectID string
	ActorID   string
	Steps     []SagaStep
}

// ID returns the durable progress id for the saga.
func (s Saga) ID() string {
	return domain.SagaID(s.Kind, s.SubjectID)
}

// SagaRunner executes sagas and records the last completed step after each write,
// so a retry by the same actor resumes where the previous attempt stopped.
type SagaRunner struct {
	store  store.Store
	logger *slog.Logger
	tracer trace.Tracer
	clock  func() time.Time
}

// NewSagaRunner creates a saga runner.
func NewSagaRunner(store store.Store, logger *slog.Logger) *SagaRunner {
	return &SagaRunner{
		store:  store,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		clock:  time.Now,
	}
}

// Run executes the saga's remaining steps.
//
// A saga that already completed returns a stale transition error, as does a
// saga started by a different actor. When the first step fails nothing was
// written and its error is returned unchanged; a later failure returns a
// partial failure naming the step so the caller can retry.
func (r *SagaRunner) Run(ctx context.Context, saga Saga) error {
	sagaID := saga.ID()

	ctx, span := r.tracer.Start(ctx, saga.Kind, trace.WithAttributes(
		attribute.String("saga.id", sagaID),
		attribute.String("saga.actor_id", saga.ActorID),
	))
	defer span.End()

	progress, err := r.store.GetSagaProgress(ctx, sagaID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		now := r.clock().UTC()
		progress = &domain.SagaProgress{
			ID:        sagaID,
			Kind:      saga.Kind,
			SubjectID: saga.SubjectID,
			ActorID:   saga.ActorID,
			Status:    domain.SagaRunning,
			CreatedAt: now,
			UpdatedAt: now,
		}
	case err != nil:
		return fmt.Errorf("load saga progress: %w", err)
	case progress.IsCompleted():
		return domainerrors.StaleTransitionf("%s already completed", saga.Kind)
	case progress.ActorID != saga.ActorID:
		return domainerrors.StaleTransitionf("%s is in progress for another user", saga.Kind)
	default:
		r.logger.Info("resuming saga",
			"saga_id", sagaID,
			"from_step", progress.LastStep,
			"failed_step", progress.FailedStep,
		)
	}

	for i := progress.LastStep; i < len(saga.Steps); i++ {
		step := saga.Steps[i]

		if err := r.runStep(ctx, sagaID, step); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, step.Name)

			if i == 0 {
				return err
			}
			return r.fail(ctx, progress, saga, i, err)
		}

		progress.LastStep = i + 1
		progress.FailedStep = ""
		progress.Error = ""
		progress.Status = domain.SagaRunning
		if progress.LastStep == len(saga.Steps) {
			progress.Status = domain.SagaCompleted
		}
		progress.UpdatedAt = r.clock().UTC()

		if err := r.store.SaveSagaProgress(ctx, progress); err != nil {
			// The step committed; a retry re-runs it, which its idempotency allows.
			span.RecordError(err)
			return domainerrors.PartialFailure(domainerrors.PartialFailureDetails{
				SagaID:         sagaID,
				FailedStep:     step.Name,
				CompletedSteps: stepNames(saga.Steps[:i]),
			}, fmt.Errorf("save saga progress: %w", err))
		}
	}

	r.logger.Debug("saga completed", "saga_id", sagaID, "steps", len(saga.Steps))
	return nil
}

func (r *SagaRunner) runStep(ctx context.Context, sagaID string, step SagaStep) error {
	ctx, span := r.tracer.Start(ctx, step.Name, trace.WithAttributes(
		attribute.String("saga.id", sagaID),
		attribute.String("saga.step", step.Name),
	))
	defer span.End()

	if err := step.Run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// fail records the failed step and builds the partial failure returned to the caller.
func (r *SagaRunner) fail(ctx context.Context, progress *domain.SagaProgress, saga Saga, failedIdx int, cause error) error {
	step := saga.Steps[failedIdx]
	progress.Status = domain.SagaFailed
	progress.FailedStep = step.Name
	progress.Error = cause.Error()
	progress.UpdatedAt = r.clock().UTC()

	if err := r.store.SaveSagaProgress(ctx, progress); err != nil {
		r.logger.Error("failed to record saga failure",
			"saga_id", progress.ID,
			"failed_step", step.Name,
			"error", err,
		)
	}

	r.logger.Warn("saga step failed",
		"saga_id", progress.ID,
		"failed_step", step.Name,
		"completed_steps", failedIdx,
		"error", cause,
	)

	return domainerrors.PartialFailure(domainerrors.PartialFailureDetails{
		SagaID:         progress.ID,
		FailedStep:     step.Name,
		CompletedSteps: stepNames(saga.Steps[:failedIdx]),
	}, cause)
}

func stepNames(steps []SagaStep) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}
