// internal/store/gigs_test.go
package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gigRows(g models.Gig) *sqlmock.Rows {
	var budgetMin, budgetMax interface{}
	if g.BudgetMin != nil {
		budgetMin = int64(*g.BudgetMin)
	}
	if g.BudgetMax != nil {
		budgetMax = int64(*g.BudgetMax)
	}
	return sqlmock.NewRows([]string{
		"id", "venue_id", "title", "description", "city", "start_time",
		"duration_minutes", "budget_min", "budget_max", "created_at",
	}).AddRow(
		g.ID, g.VenueID.String(), g.Title, g.Description, g.City, g.StartTime,
		g.DurationMinutes, budgetMin, budgetMax, g.CreatedAt,
	)
}

func TestCreateGigValidation(t *testing.T) {
	start := time.Date(2026, 10, 2, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		gig      models.Gig
		wantCode errors.ErrorCode
	}{
		{
			name:     "title too short",
			gig:      models.Gig{VenueID: uuid.New(), Title: "ab", StartTime: start},
			wantCode: errors.ErrCodeTitleTooShort,
		},
		{
			name:     "whitespace title too short",
			gig:      models.Gig{VenueID: uuid.New(), Title: "  a  ", StartTime: start},
			wantCode: errors.ErrCodeTitleTooShort,
		},
		{
			name:     "missing start time",
			gig:      models.Gig{VenueID: uuid.New(), Title: "Friday Jazz"},
			wantCode: errors.ErrCodeMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := createTestStore(t)

			_, err := s.CreateGig(context.Background(), &tt.gig)

			require.Error(t, err)
			var stdErr *errors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			requireExpectationsMet(t, mock)
		})
	}
}

func TestCreateGigReturnsStoredRow(t *testing.T) {
	s, mock := createTestStore(t)
	venueID := uuid.New()
	start := time.Date(2026, 10, 2, 20, 0, 0, 0, time.UTC)
	budget := 300
	saved := models.Gig{
		ID: 9, VenueID: venueID, Title: "Friday Jazz", City: "Berlin",
		StartTime: start, DurationMinutes: 120, BudgetMin: &budget,
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectQuery("INSERT INTO gigs").
		WithArgs(venueID.String(), "Friday Jazz", "", "Berlin", start, 120, 300, nil).
		WillReturnRows(gigRows(saved))

	got, err := s.CreateGig(context.Background(), &models.Gig{
		VenueID: venueID, Title: " Friday Jazz ", City: "Berlin",
		StartTime: start, DurationMinutes: 120, BudgetMin: &budget,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
	require.NotNil(t, got.BudgetMin)
	assert.Equal(t, 300, *got.BudgetMin)
	requireExpectationsMet(t, mock)
}

func TestGetGigNotFound(t *testing.T) {
	s, mock := createTestStore(t)

	mock.ExpectQuery("(?s)SELECT .+ FROM\\s+gigs").
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetGig(context.Background(), 9)

	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	requireExpectationsMet(t, mock)
}

func TestDeleteGigZeroRowsIsPermissionFailure(t *testing.T) {
	s, mock := createTestStore(t)
	venueID := uuid.New()

	mock.ExpectExec("DELETE FROM gigs").
		WithArgs(int64(9), venueID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteGig(context.Background(), 9, venueID)

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindPermission))
	requireExpectationsMet(t, mock)
}
