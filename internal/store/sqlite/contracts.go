package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/sse"
	"github.com/agencynet/agencynet-server/internal/store"
)

const contractColumns = `id, created_at, updated_at, license_renewed_at,
	developer_id, agency_id, status, notes,
	agency_registration_url, agency_license_url, agency_signed_contract_url,
	developer_counter_signed_contract_url`

func scanContract(scanner interface{ Scan(dest ...any) error }) (*domain.CollaborationContract, error) {
	var (
		c             domain.CollaborationContract
		createdAt     string
		updatedAt     string
		renewedAt     sql.NullString
		status        string
		notes         sql.NullString
		counterSigned sql.NullString
	)

	err := scanner.Scan(
		&c.ID,
		&createdAt,
		&updatedAt,
		&renewedAt,
		&c.DeveloperID,
		&c.AgencyID,
		&status,
		&notes,
		&c.Documents.AgencyRegistrationURL,
		&c.Documents.AgencyLicenseURL,
		&c.Documents.AgencySignedContractURL,
		&counterSigned,
	)
	if err != nil {
		return nil, err
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if c.LicenseRenewedAt, err = parseNullableTime(renewedAt); err != nil {
		return nil, err
	}

	parsed, ok := domain.ParseContractStatus(status)
	if !ok {
		return nil, fmt.Errorf("contract %s: unknown status %q", c.ID, status)
	}
	c.Status = parsed
	c.Notes = notes.String
	c.Documents.DeveloperCounterSignedContractURL = counterSigned.String

	return &c, nil
}

func contractEvent(op sse.Op, c *domain.CollaborationContract) sse.Event {
	return sse.NewRowEvent(sse.TableContracts, op, c, c.AgencyID, c.DeveloperID)
}

// CreateContract inserts a contract request.
// Returns store.ErrAlreadyExists if the developer and agency already have a contract.
func (s *Store) CreateContract(ctx context.Context, c *domain.CollaborationContract) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collaboration_contracts (
			id, created_at, updated_at, license_renewed_at,
			developer_id, agency_id, status, notes,
			agency_registration_url, agency_license_url, agency_signed_contract_url,
			developer_counter_signed_contract_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
		nullTimeString(c.LicenseRenewedAt),
		c.DeveloperID,
		c.AgencyID,
		string(c.Status),
		nullString(c.Notes),
		c.Documents.AgencyRegistrationURL,
		c.Documents.AgencyLicenseURL,
		c.Documents.AgencySignedContractURL,
		nullString(c.Documents.DeveloperCounterSignedContractURL),
	)
	if err != nil {
		return mapWriteError(err)
	}

	s.emit(contractEvent(sse.OpInsert, c))
	return nil
}

// GetContract retrieves the contract between a developer and an agency.
// Returns store.ErrNotFound if none exists.
func (s *Store) GetContract(ctx context.Context, developerID, agencyID string) (*domain.CollaborationContract, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM collaboration_contracts WHERE developer_id = ? AND agency_id = ?`,
		developerID, agencyID)

	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return c, err
}

func (s *Store) getContractByID(ctx context.Context, id string) (*domain.CollaborationContract, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM collaboration_contracts WHERE id = ?`, id)

	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return c, err
}

func (s *Store) listContracts(ctx context.Context, where string, args ...any) ([]*domain.CollaborationContract, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contractColumns+` FROM collaboration_contracts WHERE `+where+` ORDER BY created_at DESC, id DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []*domain.CollaborationContract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// ListContractsByAgency returns every contract the agency requested, newest first.
func (s *Store) ListContractsByAgency(ctx context.Context, agencyID string) ([]*domain.CollaborationContract, error) {
	return s.listContracts(ctx, `agency_id = ?`, agencyID)
}

// ListContractsByDeveloper returns the developer's contracts, newest first.
// An empty status returns every status.
func (s *Store) ListContractsByDeveloper(ctx context.Context, developerID string, status domain.ContractStatus) ([]*domain.CollaborationContract, error) {
	if status == "" {
		return s.listContracts(ctx, `developer_id = ?`, developerID)
	}
	return s.listContracts(ctx, `developer_id = ? AND status = ?`, developerID, string(status))
}

// TransitionContract applies a conditional status update.
// It reports false, without writing, when the contract is no longer in t.From.
// Returns store.ErrNotFound if the contract does not exist.
func (s *Store) TransitionContract(ctx context.Context, t store.ContractTransition) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE collaboration_contracts SET
			status = ?,
			notes = COALESCE(?, notes),
			developer_counter_signed_contract_url = COALESCE(?, developer_counter_signed_contract_url),
			updated_at = ?
		WHERE id = ? AND status = ?`,
		string(t.To),
		nullString(t.Notes),
		nullString(t.CounterSignedURL),
		formatTime(t.At),
		t.ID,
		string(t.From),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	c, err := s.getContractByID(ctx, t.ID)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	s.emit(contractEvent(sse.OpUpdate, c))
	return true, nil
}

// RenewContractLicense replaces the agency license document and moves the
// license anchor to at. Only active contracts can be renewed; it reports false otherwise.
func (s *Store) RenewContractLicense(ctx context.Context, contractID, licenseURL string, at time.Time) (bool, error) {
	ts := formatTime(at)
	result, err := s.db.ExecContext(ctx, `
		UPDATE collaboration_contracts SET
			agency_license_url = ?,
			license_renewed_at = ?,
			updated_at = ?
		WHERE id = ? AND status = 'active'`,
		licenseURL, ts, ts, contractID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	c, err := s.getContractByID(ctx, contractID)
	if err != nil {
		return false, err
	}
	s.emit(contractEvent(sse.OpUpdate, c))
	return true, nil
}
