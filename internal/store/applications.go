// internal/store/applications.go
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/common/metrics"
	"musikmatch/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const applicationColumns = `id, gig_id, musician_id, message, status,
		contact_email, contact_phone, created_at`

func scanApplication(scan func(dest ...interface{}) error) (*models.Application, error) {
	var a models.Application
	var rawMusicianID string
	var message, email, phone sql.NullString
	err := scan(
		&a.ID, &a.GigID, &rawMusicianID, &message, &a.Status,
		&email, &phone, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.MusicianID, err = uuid.Parse(rawMusicianID)
	if err != nil {
		return nil, errors.NewMalformedRowError("applications", err.Error())
	}
	if !a.Status.Valid() {
		return nil, errors.NewMalformedRowError("applications", fmt.Sprintf("unknown status %q", a.Status))
	}
	a.Message = message.String
	a.Contact = models.ContactSnapshot{Email: email.String, Phone: phone.String}
	return &a, nil
}

func applicationStoreErr(err error, op string) error {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if op == "read" {
		return errors.NewStoreQueryFailedError("applications", err)
	}
	return errors.NewStoreWriteFailedError("applications", err)
}

// CurrentApplication returns the most recent application for the
// (gig, musician) pair, or a not-found error. Older duplicate rows are left
// in place and never surfaced.
func (s *Postgres) CurrentApplication(ctx context.Context, gigID int64, musicianID uuid.UUID) (*models.Application, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("applications", "current", time.Now())

	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE gig_id = $1 AND musician_id = $2
		ORDER BY created_at DESC
		LIMIT 1`, gigID, musicianID.String())

	a, err := scanApplication(row.Scan)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("application",
				fmt.Sprintf("gig %d musician %s", gigID, musicianID))
		}
		return nil, applicationStoreErr(err, "read")
	}
	return a, nil
}

// InsertApplication creates a pending application and returns the stored row
// with its server-assigned id and timestamp.
func (s *Postgres) InsertApplication(ctx context.Context, a *models.Application) (*models.Application, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("applications", "insert", time.Now())

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO applications (gig_id, musician_id, message, contact_email, contact_phone)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
		RETURNING `+applicationColumns,
		a.GigID, a.MusicianID.String(), strings.TrimSpace(a.Message),
		strings.TrimSpace(a.Contact.Email), strings.TrimSpace(a.Contact.Phone),
	)

	saved, err := scanApplication(row.Scan)
	if err != nil {
		return nil, applicationStoreErr(err, "write")
	}
	return saved, nil
}

// UpdateApplication replaces the message and contact snapshot of an existing
// application and returns the row as saved. Zero rows is a permission failure.
func (s *Postgres) UpdateApplication(ctx context.Context, id int64, message string, contact models.ContactSnapshot) (*models.Application, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("applications", "update", time.Now())

	row := s.db.QueryRowContext(ctx, `
		UPDATE applications
		SET message = NULLIF($2, ''), contact_email = NULLIF($3, ''), contact_phone = NULLIF($4, '')
		WHERE id = $1
		RETURNING `+applicationColumns,
		id, strings.TrimSpace(message), strings.TrimSpace(contact.Email), strings.TrimSpace(contact.Phone),
	)

	saved, err := scanApplication(row.Scan)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNoPermissionError("application update affected no rows")
		}
		return nil, applicationStoreErr(err, "write")
	}
	return saved, nil
}

// DeleteApplication removes a musician's own application. Owners never
// delete; a delete scoped to someone else's row affects nothing and surfaces
// as a permission failure.
func (s *Postgres) DeleteApplication(ctx context.Context, id int64, musicianID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("applications", "delete", time.Now())

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM applications
		WHERE id = $1 AND musician_id = $2`, id, musicianID.String())
	if err != nil {
		return applicationStoreErr(err, "write")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return applicationStoreErr(err, "write")
	}
	if affected == 0 {
		return errors.NewNoPermissionError("application delete affected no rows")
	}
	return nil
}

// ListApplicationsByGig lists an owner's view of one gig's applications,
// newest first, with musician display names resolved in the same query.
func (s *Postgres) ListApplicationsByGig(ctx context.Context, gigID int64) ([]models.Application, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("applications", "list_by_gig", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.gig_id, a.musician_id, a.message, a.status,
		       a.contact_email, a.contact_phone, a.created_at, p.display_name
		FROM applications a
		LEFT JOIN profiles p ON p.id = a.musician_id
		WHERE a.gig_id = $1
		ORDER BY a.created_at DESC`, gigID)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("applications", err)
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		var a models.Application
		var rawMusicianID string
		var message, email, phone, name sql.NullString
		if err := rows.Scan(
			&a.ID, &a.GigID, &rawMusicianID, &message, &a.Status,
			&email, &phone, &a.CreatedAt, &name,
		); err != nil {
			return nil, errors.NewStoreQueryFailedError("applications", err)
		}
		a.MusicianID, err = uuid.Parse(rawMusicianID)
		if err != nil {
			return nil, errors.NewMalformedRowError("applications", err.Error())
		}
		a.Message = message.String
		a.Contact = models.ContactSnapshot{Email: email.String, Phone: phone.String}
		a.MusicianName = name.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("applications", err)
	}
	return out, nil
}

// ListApplicationsByMusician lists a musician's own applications joined with
// gig headline fields, newest first.
func (s *Postgres) ListApplicationsByMusician(ctx context.Context, musicianID uuid.UUID) ([]models.ApplicationSummary, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("applications", "list_by_musician", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.gig_id, a.status, a.message, a.created_at,
		       g.title, g.city, g.start_time
		FROM applications a
		JOIN gigs g ON g.id = a.gig_id
		WHERE a.musician_id = $1
		ORDER BY a.created_at DESC`, musicianID.String())
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("applications", err)
	}
	defer rows.Close()

	var out []models.ApplicationSummary
	for rows.Next() {
		var a models.ApplicationSummary
		var message, city sql.NullString
		if err := rows.Scan(
			&a.ID, &a.GigID, &a.Status, &message, &a.CreatedAt,
			&a.GigTitle, &city, &a.GigStart,
		); err != nil {
			return nil, errors.NewStoreQueryFailedError("applications", err)
		}
		a.Message = message.String
		a.GigCity = city.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("applications", err)
	}
	return out, nil
}

// CountApplicationsByGig returns per-gig application counts for the owner's
// gig list.
func (s *Postgres) CountApplicationsByGig(ctx context.Context, gigIDs []int64) (map[int64]int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("applications", "count_by_gig", time.Now())

	counts := make(map[int64]int, len(gigIDs))
	if len(gigIDs) == 0 {
		return counts, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT gig_id, COUNT(*)
		FROM applications
		WHERE gig_id = ANY($1)
		GROUP BY gig_id`, pq.Array(gigIDs))
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("applications", err)
	}
	defer rows.Close()

	for rows.Next() {
		var gigID int64
		var n int
		if err := rows.Scan(&gigID, &n); err != nil {
			return nil, errors.NewStoreQueryFailedError("applications", err)
		}
		counts[gigID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("applications", err)
	}
	return counts, nil
}

// SetApplicationStatus calls the status transition procedure. The procedure
// only moves rows out of pending and only for the gig's owner, so a decision
// on an already-decided application (or by a non-owner) affects zero rows and
// is reported as a permission failure.
func (s *Postgres) SetApplicationStatus(ctx context.Context, id int64, status models.Status, ownerID uuid.UUID) (*models.Application, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("applications", "set_status", time.Now())

	if !status.Decided() {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeInvalidStatus,
			Kind:      errors.KindValidation,
			Message:   fmt.Sprintf("Status %q is not a decision", status),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM set_application_status($1, $2, $3)`,
		id, string(status), ownerID.String())

	a, err := scanApplication(row.Scan)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			metrics.StatusTransitions.WithLabelValues(string(status), "denied").Inc()
			return nil, errors.NewNotOwnerError(
				"status transition affected no rows for application " + strconv.FormatInt(id, 10))
		}
		metrics.StatusTransitions.WithLabelValues(string(status), "error").Inc()
		return nil, applicationStoreErr(err, "write")
	}

	metrics.StatusTransitions.WithLabelValues(string(status), "ok").Inc()
	return a, nil
}
