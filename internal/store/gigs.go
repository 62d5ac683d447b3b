// internal/store/gigs.go
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/models"

	"github.com/google/uuid"
)

const minGigTitleLen = 3

func scanGig(scan func(dest ...interface{}) error) (*models.Gig, error) {
	var g models.Gig
	var rawVenueID string
	var desc, city sql.NullString
	var budgetMin, budgetMax sql.NullInt64
	err := scan(
		&g.ID, &rawVenueID, &g.Title, &desc, &city,
		&g.StartTime, &g.DurationMinutes, &budgetMin, &budgetMax, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.VenueID, err = uuid.Parse(rawVenueID)
	if err != nil {
		return nil, errors.NewMalformedRowError("gigs", err.Error())
	}
	g.Description = desc.String
	g.City = city.String
	if budgetMin.Valid {
		v := int(budgetMin.Int64)
		g.BudgetMin = &v
	}
	if budgetMax.Valid {
		v := int(budgetMax.Int64)
		g.BudgetMax = &v
	}
	return &g, nil
}

const gigColumns = `id, venue_id, title, description, city, start_time,
		duration_minutes, budget_min, budget_max, created_at`

// CreateGig validates and inserts a new gig, returning the stored row.
func (s *Postgres) CreateGig(ctx context.Context, g *models.Gig) (*models.Gig, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("gigs", "insert", time.Now())

	if len(strings.TrimSpace(g.Title)) < minGigTitleLen {
		return nil, errors.NewTitleTooShortError(minGigTitleLen)
	}
	if g.StartTime.IsZero() {
		return nil, errors.NewMissingFieldError("start_time")
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO gigs (venue_id, title, description, city, start_time,
			duration_minutes, budget_min, budget_max)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING `+gigColumns,
		g.VenueID.String(), strings.TrimSpace(g.Title), strings.TrimSpace(g.Description),
		strings.TrimSpace(g.City), g.StartTime, g.DurationMinutes, g.BudgetMin, g.BudgetMax,
	)

	saved, err := scanGig(row.Scan)
	if err != nil {
		var stdErr *errors.StandardError
		if stderrors.As(err, &stdErr) {
			return nil, stdErr
		}
		return nil, errors.NewStoreWriteFailedError("gigs", err)
	}
	return saved, nil
}

// GetGig fetches one gig by id.
func (s *Postgres) GetGig(ctx context.Context, id int64) (*models.Gig, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("gigs", "get", time.Now())

	row := s.db.QueryRowContext(ctx, `
		SELECT `+gigColumns+`
		FROM gigs
		WHERE id = $1`, id)

	g, err := scanGig(row.Scan)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("gig", strconv.FormatInt(id, 10))
		}
		var stdErr *errors.StandardError
		if stderrors.As(err, &stdErr) {
			return nil, stdErr
		}
		return nil, errors.NewStoreQueryFailedError("gigs", err)
	}
	return g, nil
}

// ListGigs lists every open gig ordered by start time ascending, the browse
// page ordering.
func (s *Postgres) ListGigs(ctx context.Context) ([]models.Gig, error) {
	return s.listGigs(ctx, `
		SELECT `+gigColumns+`
		FROM gigs
		ORDER BY start_time ASC`)
}

// ListGigsByVenue lists one venue's gigs, most recent start first.
func (s *Postgres) ListGigsByVenue(ctx context.Context, venueID uuid.UUID) ([]models.Gig, error) {
	return s.listGigs(ctx, `
		SELECT `+gigColumns+`
		FROM gigs
		WHERE venue_id = $1
		ORDER BY start_time DESC`, venueID.String())
}

func (s *Postgres) listGigs(ctx context.Context, query string, args ...interface{}) ([]models.Gig, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("gigs", "list", time.Now())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("gigs", err)
	}
	defer rows.Close()

	var out []models.Gig
	for rows.Next() {
		g, err := scanGig(rows.Scan)
		if err != nil {
			var stdErr *errors.StandardError
			if stderrors.As(err, &stdErr) {
				return nil, stdErr
			}
			return nil, errors.NewStoreQueryFailedError("gigs", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("gigs", err)
	}
	return out, nil
}

// DeleteGig removes a gig owned by venueID. Deleting someone else's gig
// affects zero rows and surfaces as a permission failure.
func (s *Postgres) DeleteGig(ctx context.Context, id int64, venueID uuid.UUID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("gigs", "delete", time.Now())

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM gigs
		WHERE id = $1 AND venue_id = $2`, id, venueID.String())
	if err != nil {
		return errors.NewStoreWriteFailedError("gigs", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewStoreWriteFailedError("gigs", err)
	}
	if affected == 0 {
		return errors.NewNoPermissionError("gig delete affected no rows")
	}
	return nil
}
