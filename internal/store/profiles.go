// internal/store/profiles.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/models"

	"github.com/google/uuid"
)

const (
	profileCacheTTL   = 5 * time.Minute
	minDisplayNameLen = 2
)

func profileCacheKey(id uuid.UUID) string {
	return "profile:" + id.String()
}

// GetProfile fetches one profile by id, consulting the redis cache first.
// A cache miss or decode failure falls through to the database.
func (s *Postgres) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("profiles", "get", time.Now())

	if s.redis != nil {
		if val, err := s.redis.Get(ctx, profileCacheKey(id)).Result(); err == nil {
			var p models.Profile
			if err := json.Unmarshal([]byte(val), &p); err == nil {
				return &p, nil
			}
		}
	}

	var p models.Profile
	var rawID string
	var email, phone sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, role, display_name, contact_email, contact_phone, created_at
		FROM profiles
		WHERE id = $1`, id.String()).Scan(
		&rawID, &p.Role, &p.DisplayName, &email, &phone, &p.CreatedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("profile", id.String())
		}
		return nil, errors.NewStoreQueryFailedError("profiles", err)
	}

	p.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, errors.NewMalformedRowError("profiles", err.Error())
	}
	p.ContactEmail = email.String
	p.ContactPhone = phone.String

	if s.redis != nil {
		if data, err := json.Marshal(&p); err == nil {
			s.redis.Set(ctx, profileCacheKey(id), data, profileCacheTTL)
		}
	}

	return &p, nil
}

// CreateProfile inserts a new profile during onboarding. A duplicate id is a
// validation failure, never a silent overwrite.
func (s *Postgres) CreateProfile(ctx context.Context, p *models.Profile) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("profiles", "insert", time.Now())

	if !p.Role.Valid() {
		return errors.NewInvalidRoleError(string(p.Role))
	}
	if len(strings.TrimSpace(p.DisplayName)) < minDisplayNameLen {
		return errors.NewNameTooShortError(minDisplayNameLen)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, role, display_name, contact_email, contact_phone)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))`,
		p.ID.String(), string(p.Role), strings.TrimSpace(p.DisplayName), p.ContactEmail, p.ContactPhone,
	)
	if err != nil {
		return errors.NewStoreWriteFailedError("profiles", err)
	}
	return nil
}

// ListProfilesByRole lists the profile directory for one role, newest first.
func (s *Postgres) ListProfilesByRole(ctx context.Context, role models.Role) ([]models.Profile, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("profiles", "list", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, display_name, contact_email, contact_phone, created_at
		FROM profiles
		WHERE role = $1
		ORDER BY created_at DESC`, string(role))
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("profiles", err)
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		var p models.Profile
		var rawID string
		var email, phone sql.NullString
		if err := rows.Scan(&rawID, &p.Role, &p.DisplayName, &email, &phone, &p.CreatedAt); err != nil {
			return nil, errors.NewStoreQueryFailedError("profiles", err)
		}
		p.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, errors.NewMalformedRowError("profiles", err.Error())
		}
		p.ContactEmail = email.String
		p.ContactPhone = phone.String
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("profiles", err)
	}
	return out, nil
}

// UpdateProfileContact writes new contact defaults and returns the row as
// saved. Zero rows updated is treated as a permission failure so a row-level
// security no-op cannot masquerade as success.
func (s *Postgres) UpdateProfileContact(ctx context.Context, id uuid.UUID, contact models.ContactSnapshot) (*models.ContactSnapshot, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("profiles", "update", time.Now())

	var email, phone sql.NullString
	err := s.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET contact_email = NULLIF($2, ''), contact_phone = NULLIF($3, '')
		WHERE id = $1
		RETURNING contact_email, contact_phone`,
		id.String(), contact.Email, contact.Phone,
	).Scan(&email, &phone)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNoPermissionError("profile contact update affected no rows")
		}
		return nil, errors.NewStoreWriteFailedError("profiles", err)
	}

	if s.redis != nil {
		s.redis.Del(ctx, profileCacheKey(id))
	}

	return &models.ContactSnapshot{Email: email.String, Phone: phone.String}, nil
}

// PropagateContact copies new profile defaults into every application the
// musician has, so counterparties see the refreshed snapshot. Zero affected
// rows is fine here: a musician without applications has nothing to update.
func (s *Postgres) PropagateContact(ctx context.Context, musicianID uuid.UUID, contact models.ContactSnapshot) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("applications", "propagate_contact", time.Now())

	_, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET contact_email = NULLIF($2, ''), contact_phone = NULLIF($3, '')
		WHERE musician_id = $1`,
		musicianID.String(), contact.Email, contact.Phone,
	)
	if err != nil {
		return errors.NewStoreWriteFailedError("applications", err)
	}
	return nil
}
