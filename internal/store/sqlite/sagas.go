package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/store"
)

const sagaColumns = `id, created_at, updated_at, kind, subject_id, actor_id, status, last_step, failed_step, error`

func scanSaga(scanner interface{ Scan(dest ...any) error }) (*domain.SagaProgress, error) {
	var (
		p          domain.SagaProgress
		createdAt  string
		updatedAt  string
		status     string
		failedStep sql.NullString
		errText    sql.NullString
	)
	err := scanner.Scan(&p.ID, &createdAt, &updatedAt, &p.Kind, &p.SubjectID, &p.ActorID,
		&status, &p.LastStep, &failedStep, &errText)
	if err != nil {
		return nil, err
	}

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.SagaStatus(status)
	p.FailedStep = failedStep.String
	p.Error = errText.String
	return &p, nil
}

// GetSagaProgress retrieves the progress record for a saga.
// Returns store.ErrNotFound if the saga never started.
func (s *Store) GetSagaProgress(ctx context.Context, id string) (*domain.SagaProgress, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sagaColumns+` FROM saga_progress WHERE id = ?`, id)

	p, err := scanSaga(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// SaveSagaProgress inserts or replaces a progress record. created_at is kept from the first save.
func (s *Store) SaveSagaProgress(ctx context.Context, p *domain.SagaProgress) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saga_progress (id, created_at, updated_at, kind, subject_id, actor_id, status, last_step, failed_step, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = excluded.updated_at,
			actor_id = excluded.actor_id,
			status = excluded.status,
			last_step = excluded.last_step,
			failed_step = excluded.failed_step,
			error = excluded.error`,
		p.ID,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
		p.Kind,
		p.SubjectID,
		p.ActorID,
		string(p.Status),
		p.LastStep,
		nullString(p.FailedStep),
		nullString(p.Error),
	)
	return mapWriteError(err)
}
