package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/store"
)

// countingSaga builds a three-step saga whose steps record how often they ran.
// failAt names a step that fails until healed is set.
type countingSaga struct {
	runs   map[string]int
	failAt string
	healed bool
}

func (c *countingSaga) saga(actorID string) Saga {
	step := func(name string) SagaStep {
		return SagaStep{Name: name, Run: func(context.Context) error {
			c.runs[name]++
			if name == c.failAt && !c.healed {
				return errors.New(name + " unavailable")
			}
			return nil
		}}
	}
	return Saga{
		Kind:      "test.saga",
		SubjectID: "subject-1",
		ActorID:   actorID,
		Steps:     []SagaStep{step("first"), step("second"), step("third")},
	}
}

func TestSagaRunner_Completes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := &countingSaga{runs: map[string]int{}}

	require.NoError(t, env.runner.Run(ctx, c.saga("user-1")))
	assert.Equal(t, map[string]int{"first": 1, "second": 1, "third": 1}, c.runs)

	progress, err := env.db.GetSagaProgress(ctx, "test.saga:subject-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SagaCompleted, progress.Status)
	assert.Equal(t, 3, progress.LastStep)
	assert.Equal(t, "user-1", progress.ActorID)

	err = env.runner.Run(ctx, c.saga("user-1"))
	assert.ErrorIs(t, err, domainerrors.ErrStaleTransition)
	assert.Equal(t, 1, c.runs["first"], "completed saga must not re-run steps")
}

func TestSagaRunner_FirstStepFailureSavesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := &countingSaga{runs: map[string]int{}, failAt: "first"}

	err := env.runner.Run(ctx, c.saga("user-1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domainerrors.ErrPartialFailure)
	assert.EqualError(t, err, "first unavailable")

	_, err = env.db.GetSagaProgress(ctx, "test.saga:subject-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSagaRunner_ResumesFromFailedStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := &countingSaga{runs: map[string]int{}, failAt: "third"}

	err := env.runner.Run(ctx, c.saga("user-1"))
	require.ErrorIs(t, err, domainerrors.ErrPartialFailure)
	details := partialFailureDetails(t, err)
	assert.Equal(t, domainerrors.PartialFailureDetails{
		SagaID:         "test.saga:subject-1",
		FailedStep:     "third",
		CompletedSteps: []string{"first", "second"},
	}, details)

	progress, err := env.db.GetSagaProgress(ctx, details.SagaID)
	require.NoError(t, err)
	assert.Equal(t, domain.SagaFailed, progress.Status)
	assert.Equal(t, "third", progress.FailedStep)
	assert.Equal(t, "third unavailable", progress.Error)

	// A different actor cannot resume it.
	err = env.runner.Run(ctx, c.saga("user-2"))
	assert.ErrorIs(t, err, domainerrors.ErrStaleTransition)

	c.healed = true
	require.NoError(t, env.runner.Run(ctx, c.saga("user-1")))
	assert.Equal(t, map[string]int{"first": 1, "second": 1, "third": 2}, c.runs)
}
