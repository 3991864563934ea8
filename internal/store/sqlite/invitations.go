package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/sse"
	"github.com/agencynet/agencynet-server/internal/store"
)

// invitationColumns is the ordered list of columns selected in invitation queries.
// Must match the scan order in scanInvitation.
const invitationColumns = `id, created_at, updated_at, expires_at,
	agency_id, email, full_name, phone, whatsapp, token_hash, status, resolved_by, resolved_at`

func scanInvitation(scanner interface{ Scan(dest ...any) error }) (*domain.AgentInvitation, error) {
	var (
		inv        domain.AgentInvitation
		createdAt  string
		updatedAt  string
		expiresAt  string
		phone      sql.NullString
		whatsapp   sql.NullString
		status     string
		resolvedBy sql.NullString
		resolvedAt sql.NullString
	)

	err := scanner.Scan(
		&inv.ID,
		&createdAt,
		&updatedAt,
		&expiresAt,
		&inv.AgencyID,
		&inv.Email,
		&inv.FullName,
		&phone,
		&whatsapp,
		&inv.TokenHash,
		&status,
		&resolvedBy,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if inv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if inv.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if inv.ResolvedAt, err = parseNullableTime(resolvedAt); err != nil {
		return nil, err
	}

	parsed, ok := domain.ParseInvitationStatus(status)
	if !ok {
		return nil, fmt.Errorf("invitation %s: unknown status %q", inv.ID, status)
	}
	inv.Status = parsed
	inv.Phone = phone.String
	inv.WhatsApp = whatsapp.String
	inv.ResolvedBy = resolvedBy.String

	return &inv, nil
}

func invitationEvent(op sse.Op, inv *domain.AgentInvitation) sse.Event {
	return sse.NewRowEvent(sse.TableInvitations, op, inv, inv.AgencyID, inv.ResolvedBy)
}

// CreateInvitation inserts a new invitation.
// Returns store.ErrAlreadyExists when the agency already has a pending invitation
// for the same normalized email, or the token fingerprint collides.
func (s *Store) CreateInvitation(ctx context.Context, inv *domain.AgentInvitation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_invitations (
			id, created_at, updated_at, expires_at,
			agency_id, email, email_normalized, full_name, phone, whatsapp,
			token_hash, status, resolved_by, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		formatTime(inv.CreatedAt),
		formatTime(inv.UpdatedAt),
		formatTime(inv.ExpiresAt),
		inv.AgencyID,
		inv.Email,
		domain.NormalizeEmail(inv.Email),
		inv.FullName,
		nullString(inv.Phone),
		nullString(inv.WhatsApp),
		inv.TokenHash,
		string(inv.Status),
		nullString(inv.ResolvedBy),
		nullTimeString(inv.ResolvedAt),
	)
	if err != nil {
		return mapWriteError(err)
	}

	s.emit(invitationEvent(sse.OpInsert, inv))
	return nil
}

// GetInvitation retrieves an invitation by id.
// Returns store.ErrNotFound if the invitation does not exist.
func (s *Store) GetInvitation(ctx context.Context, id string) (*domain.AgentInvitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM agent_invitations WHERE id = ?`, id)

	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return inv, err
}

// GetInvitationByTokenHash retrieves an invitation by its token fingerprint.
// Returns store.ErrNotFound for unknown or superseded tokens.
func (s *Store) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*domain.AgentInvitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM agent_invitations WHERE token_hash = ?`, tokenHash)

	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return inv, err
}

// FindPendingInvitation returns the agency's pending invitation for email, if any.
// Returns store.ErrNotFound when there is none.
func (s *Store) FindPendingInvitation(ctx context.Context, agencyID, email string) (*domain.AgentInvitation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM agent_invitations
		WHERE agency_id = ? AND email_normalized = ? AND status = 'pending'`,
		agencyID, domain.NormalizeEmail(email))

	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return inv, err
}

// ListInvitations returns an agency's invitations, newest first.
// An empty status returns every status.
func (s *Store) ListInvitations(ctx context.Context, agencyID string, status domain.InvitationStatus) ([]*domain.AgentInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM agent_invitations WHERE agency_id = ?`
	args := []any{agencyID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []*domain.AgentInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// TransitionInvitation applies a conditional status update.
// It reports true when the row moved from t.From to t.To, or was already
// resolved to t.To by the same actor. It reports false, without writing,
// when any other status is current.
func (s *Store) TransitionInvitation(ctx context.Context, t store.InvitationTransition) (bool, error) {
	at := formatTime(t.At)
	result, err := s.db.ExecContext(ctx, `
		UPDATE agent_invitations SET
			status = ?,
			resolved_by = ?,
			resolved_at = ?,
			updated_at = ?
		WHERE id = ? AND status = ?`,
		string(t.To), t.ActorID, at, at, t.ID, string(t.From))
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	inv, err := s.GetInvitation(ctx, t.ID)
	if err != nil {
		return false, err
	}

	if n == 1 {
		s.emit(invitationEvent(sse.OpUpdate, inv))
		return true, nil
	}
	return inv.Status == t.To && inv.ResolvedBy == t.ActorID, nil
}

// DeleteInvitation hard-deletes an invitation row, invalidating its token.
// Returns store.ErrNotFound if the invitation does not exist.
func (s *Store) DeleteInvitation(ctx context.Context, id string) error {
	var agencyID string
	err := s.db.QueryRowContext(ctx, `DELETE FROM agent_invitations WHERE id = ? RETURNING agency_id`, id).Scan(&agencyID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	s.emit(sse.NewDeleteEvent(sse.TableInvitations, map[string]string{"id": id}, agencyID, ""))
	return nil
}
