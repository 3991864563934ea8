package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/agencynet/agencynet-server/internal/domain"
	"github.com/agencynet/agencynet-server/internal/sse"
	"github.com/agencynet/agencynet-server/internal/store"
)

const profileColumns = `id, created_at, updated_at, email, full_name, role, agency_id`

func scanProfile(scanner interface{ Scan(dest ...any) error }) (*domain.Profile, error) {
	var (
		p         domain.Profile
		createdAt string
		updatedAt string
		role      string
		agencyID  sql.NullString
	)

	if err := scanner.Scan(&p.ID, &createdAt, &updatedAt, &p.Email, &p.FullName, &role, &agencyID); err != nil {
		return nil, err
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	p.Role = domain.Role(role)
	p.AgencyID = agencyID.String

	return &p, nil
}

// CreateProfile inserts a marketplace account.
// Returns store.ErrAlreadyExists if the id or normalized email is taken.
func (s *Store) CreateProfile(ctx context.Context, p *domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, created_at, updated_at, email, email_normalized, full_name, role, agency_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
		p.Email,
		domain.NormalizeEmail(p.Email),
		p.FullName,
		string(p.Role),
		nullString(p.AgencyID),
	)
	if err != nil {
		return mapWriteError(err)
	}

	s.emit(sse.NewRowEvent(sse.TableProfiles, sse.OpInsert, p, p.AgencyID, p.ID))
	return nil
}

// GetProfile retrieves a profile by id.
// Returns store.ErrNotFound if the profile does not exist.
func (s *Store) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// GetProfileByEmail retrieves a profile by email, compared in normalized form.
// Returns store.ErrNotFound if no account uses the address.
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email_normalized = ?`, domain.NormalizeEmail(email))

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// SetProfileAgency associates a profile with the agency it acts for.
// Setting the same agency again is a no-op write.
func (s *Store) SetProfileAgency(ctx context.Context, profileID, agencyID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET agency_id = ?, updated_at = ? WHERE id = ?`,
		nullString(agencyID), formatTime(at), profileID)
	if err != nil {
		return mapWriteError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	s.emit(sse.NewRowEvent(sse.TableProfiles, sse.OpUpdate,
		map[string]string{"id": profileID, "agency_id": agencyID}, agencyID, profileID))
	return nil
}

const agencyColumns = `id, created_at, updated_at, name, owner_id`

func scanAgency(scanner interface{ Scan(dest ...any) error }) (*domain.Agency, error) {
	var (
		a         domain.Agency
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&a.ID, &createdAt, &updatedAt, &a.Name, &a.OwnerID); err != nil {
		return nil, err
	}

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAgency inserts an agency. The owner profile must already exist.
func (s *Store) CreateAgency(ctx context.Context, a *domain.Agency) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agencies (id, created_at, updated_at, name, owner_id)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, formatTime(a.CreatedAt), formatTime(a.UpdatedAt), a.Name, a.OwnerID)
	return mapWriteError(err)
}

// GetAgency retrieves an agency by id.
// Returns store.ErrNotFound if the agency does not exist.
func (s *Store) GetAgency(ctx context.Context, id string) (*domain.Agency, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+agencyColumns+` FROM agencies WHERE id = ?`, id)

	a, err := scanAgency(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return a, err
}
