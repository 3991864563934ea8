package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/sse"
)

const grantColumns = `id, created_at, property_id, agent_id, sharing_agency_id, notified`

func scanGrant(scanner interface{ Scan(dest ...any) error }) (*domain.SharedPropertyGrant, error) {
	var (
		g         domain.SharedPropertyGrant
		createdAt string
		notified  int
	)
	if err := scanner.Scan(&g.ID, &createdAt, &g.PropertyID, &g.AgentID, &g.SharingAgencyID, &notified); err != nil {
		return nil, err
	}

	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	g.Notified = notified != 0
	return &g, nil
}

// GetVisibility returns the sharing mode for a property.
// A pair that was never configured reads as broadcast off.
func (s *Store) GetVisibility(ctx context.Context, propertyID, agencyID string) (*domain.PropertyVisibility, error) {
	var (
		shared    int
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT shared_with_all_agents, updated_at FROM property_visibility
		WHERE property_id = ? AND agency_id = ?`,
		propertyID, agencyID).Scan(&shared, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.PropertyVisibility{PropertyID: propertyID, AgencyID: agencyID}, nil
	}
	if err != nil {
		return nil, err
	}

	vis := &domain.PropertyVisibility{
		PropertyID:          propertyID,
		AgencyID:            agencyID,
		SharedWithAllAgents: shared != 0,
	}
	if vis.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return vis, nil
}

// SetBroadcast sets the broadcast flag. Turning it on deletes every enumerated
// grant for the pair in the same transaction; turning it off touches no grants.
// It returns the number of grants removed.
func (s *Store) SetBroadcast(ctx context.Context, propertyID, agencyID string, on bool, at time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	removed := make(map[string]string)
	if on {
		rows, err := tx.QueryContext(ctx, `
			DELETE FROM shared_property_grants
			WHERE property_id = ? AND sharing_agency_id = ?
			RETURNING id, agent_id`,
			propertyID, agencyID)
		if err != nil {
			return 0, fmt.Errorf("delete grants: %w", err)
		}
		var grantID, agentID string
		for rows.Next() {
			if err := rows.Scan(&grantID, &agentID); err != nil {
				rows.Close()
				return 0, err
			}
			removed[grantID] = agentID
		}
		if err := rows.Close(); err != nil {
			return 0, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO property_visibility (property_id, agency_id, shared_with_all_agents, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (property_id, agency_id) DO UPDATE SET
			shared_with_all_agents = excluded.shared_with_all_agents,
			updated_at = excluded.updated_at`,
		propertyID, agencyID, boolInt(on), formatTime(at))
	if err != nil {
		return 0, mapWriteError(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	for grantID, agentID := range removed {
		s.emit(sse.NewDeleteEvent(sse.TableGrants, map[string]string{"id": grantID}, agencyID, agentID))
	}
	s.emit(sse.NewRowEvent(sse.TableVisibility, sse.OpUpdate, &domain.PropertyVisibility{
		UpdatedAt:           at,
		PropertyID:          propertyID,
		AgencyID:            agencyID,
		SharedWithAllAgents: on,
	}, agencyID, ""))

	return len(removed), nil
}

// ListGrants returns the enumerated grants for a property, ordered by agent.
func (s *Store) ListGrants(ctx context.Context, propertyID, agencyID string) ([]*domain.SharedPropertyGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+grantColumns+` FROM shared_property_grants
		WHERE property_id = ? AND sharing_agency_id = ?
		ORDER BY agent_id`,
		propertyID, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []*domain.SharedPropertyGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ApplyGrantDiff deletes the listed grants and inserts the new ones in a single
// transaction. Grants not named are left untouched.
func (s *Store) ApplyGrantDiff(ctx context.Context, propertyID, agencyID string, removeGrantIDs []string, add []*domain.SharedPropertyGrant) error {
	if len(removeGrantIDs) == 0 && len(add) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	removedAgents := make(map[string]string, len(removeGrantIDs))
	if len(removeGrantIDs) > 0 {
		args := append([]any{propertyID, agencyID}, stringArgs(removeGrantIDs)...)
		rows, err := tx.QueryContext(ctx, `
			DELETE FROM shared_property_grants
			WHERE property_id = ? AND sharing_agency_id = ? AND id IN (`+placeholders(len(removeGrantIDs))+`)
			RETURNING id, agent_id`,
			args...)
		if err != nil {
			return fmt.Errorf("delete grants: %w", err)
		}
		for rows.Next() {
			var grantID, agentID string
			if err := rows.Scan(&grantID, &agentID); err != nil {
				rows.Close()
				return err
			}
			removedAgents[grantID] = agentID
		}
		if err := rows.Close(); err != nil {
			return err
		}
	}

	for _, g := range add {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shared_property_grants (id, created_at, property_id, agent_id, sharing_agency_id, notified)
			VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID, formatTime(g.CreatedAt), propertyID, g.AgentID, agencyID, boolInt(g.Notified))
		if err != nil {
			return fmt.Errorf("insert grant for %s: %w", g.AgentID, mapWriteError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for grantID, agentID := range removedAgents {
		s.emit(sse.NewDeleteEvent(sse.TableGrants, map[string]string{"id": grantID}, agencyID, agentID))
	}
	for _, g := range add {
		s.emit(sse.NewRowEvent(sse.TableGrants, sse.OpInsert, g, agencyID, g.AgentID))
	}

	s.logger.Debug("grant diff applied",
		"property_id", propertyID,
		"agency_id", agencyID,
		"removed", len(removedAgents),
		"added", len(add))
	return nil
}

// MarkGrantsNotified flags grants whose recipients have been notified.
func (s *Store) MarkGrantsNotified(ctx context.Context, grantIDs []string) error {
	if len(grantIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE shared_property_grants SET notified = 1 WHERE notified = 0 AND id IN (`+placeholders(len(grantIDs))+`)`,
		stringArgs(grantIDs)...)
	return err
}
