// internal/store/messages.go
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/models"

	"github.com/google/uuid"
)

// ListMessages fetches every message for one application ordered by creation
// time ascending, the order the conversation log expects from history loads.
func (s *Postgres) ListMessages(ctx context.Context, applicationID int64) ([]models.Message, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("application_messages", "list", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, sender_id, body, created_at
		FROM application_messages
		WHERE application_id = $1
		ORDER BY created_at ASC`, applicationID)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("application_messages", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		var rawSenderID string
		if err := rows.Scan(&m.ID, &m.ApplicationID, &rawSenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, errors.NewStoreQueryFailedError("application_messages", err)
		}
		m.SenderID, err = uuid.Parse(rawSenderID)
		if err != nil {
			return nil, errors.NewMalformedRowError("application_messages", err.Error())
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("application_messages", err)
	}
	return out, nil
}

// InsertMessage stores one message and returns it with the server-assigned
// id and timestamp, which the conversation log merges under its dedup rule.
func (s *Postgres) InsertMessage(ctx context.Context, applicationID int64, senderID uuid.UUID, body string) (*models.Message, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	defer observe("application_messages", "insert", time.Now())

	var m models.Message
	var rawSenderID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO application_messages (application_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, application_id, sender_id, body, created_at`,
		applicationID, senderID.String(), body,
	).Scan(&m.ID, &m.ApplicationID, &rawSenderID, &m.Body, &m.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNoPermissionError("message insert affected no rows")
		}
		return nil, errors.NewStoreWriteFailedError("application_messages", err)
	}

	m.SenderID, err = uuid.Parse(rawSenderID)
	if err != nil {
		return nil, errors.NewMalformedRowError("application_messages", err.Error())
	}
	return &m, nil
}
