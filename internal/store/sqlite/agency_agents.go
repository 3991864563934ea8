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

// agencyAgentColumns joins the agent profile so list reads carry name and email.
const agencyAgentColumns = `aa.agency_id, aa.agent_id, aa.status, aa.created_at, aa.updated_at,
	COALESCE(p.full_name, ''), COALESCE(p.email, '')`

const agencyAgentFrom = ` FROM agency_agents aa LEFT JOIN profiles p ON p.id = aa.agent_id`

func scanAgencyAgent(scanner interface{ Scan(dest ...any) error }) (*domain.AgencyAgentLink, error) {
	var (
		link      domain.AgencyAgentLink
		status    string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&link.AgencyID,
		&link.AgentID,
		&status,
		&createdAt,
		&updatedAt,
		&link.AgentName,
		&link.AgentEmail,
	)
	if err != nil {
		return nil, err
	}

	if link.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if link.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	parsed, ok := domain.ParseLinkStatus(status)
	if !ok {
		return nil, fmt.Errorf("agency link %s/%s: unknown status %q", link.AgencyID, link.AgentID, status)
	}
	link.Status = parsed

	return &link, nil
}

// UpsertAgencyAgent inserts the link or updates its status.
// Upserting the status a link already has writes nothing and emits nothing.
func (s *Store) UpsertAgencyAgent(ctx context.Context, link *domain.AgencyAgentLink) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO agency_agents (agency_id, agent_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (agency_id, agent_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at
		WHERE agency_agents.status != excluded.status`,
		link.AgencyID,
		link.AgentID,
		string(link.Status),
		formatTime(link.CreatedAt),
		formatTime(link.UpdatedAt),
	)
	if err != nil {
		return mapWriteError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		s.emit(sse.NewRowEvent(sse.TableAgencyAgents, sse.OpUpdate, link, link.AgencyID, link.AgentID))
	}
	return nil
}

// GetAgencyAgent retrieves one membership link.
// Returns store.ErrNotFound if the agent has no link with the agency.
func (s *Store) GetAgencyAgent(ctx context.Context, agencyID, agentID string) (*domain.AgencyAgentLink, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agencyAgentColumns+agencyAgentFrom+` WHERE aa.agency_id = ? AND aa.agent_id = ?`,
		agencyID, agentID)

	link, err := scanAgencyAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return link, err
}

// ListAgencyAgents returns an agency's links, newest first.
// An empty status returns every status.
func (s *Store) ListAgencyAgents(ctx context.Context, agencyID string, status domain.LinkStatus) ([]*domain.AgencyAgentLink, error) {
	query := `SELECT ` + agencyAgentColumns + agencyAgentFrom + ` WHERE aa.agency_id = ?`
	args := []any{agencyID}
	if status != "" {
		query += ` AND aa.status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY aa.created_at DESC, aa.agent_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.AgencyAgentLink
	for rows.Next() {
		link, err := scanAgencyAgent(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// DeleteAgencyAgent removes only the link row.
// Returns store.ErrNotFound if there was no link.
func (s *Store) DeleteAgencyAgent(ctx context.Context, agencyID, agentID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM agency_agents WHERE agency_id = ? AND agent_id = ?`, agencyID, agentID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	s.emit(sse.NewDeleteEvent(sse.TableAgencyAgents,
		map[string]string{"agency_id": agencyID, "agent_id": agentID}, agencyID, agentID))
	return nil
}
