// Package feed delivers row-level change notifications: the daemon bridges
// Postgres NOTIFY payloads into Redis pub/sub, and consumers hold cancellable
// subscriptions producing decoded change events. Delivery is at-least-once
// and unordered with respect to history fetches; deduplication is the
// consumer's job.
package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"musikmatch/internal/common/errors"
	"musikmatch/internal/models"

	"github.com/google/uuid"
)

// Action is the row-level change type carried by an event.
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Collection names carried in the Table field.
const (
	TableProfiles     = "profiles"
	TableGigs         = "gigs"
	TableApplications = "applications"
	TableMessages     = "application_messages"
)

// Event is one row-level change notification. Updates carry the previous
// row alongside the new one so consumers can distinguish a real state
// transition from an edit of unrelated columns.
type Event struct {
	Table  string          `json:"table"`
	Action Action          `json:"action"`
	Row    json.RawMessage `json:"row"`
	OldRow json.RawMessage `json:"old_row,omitempty"`
}

// Stream is a live subscription. Events is closed after Close returns; a
// stream left open past its consumer's lifetime is a defect.
type Stream interface {
	Events() <-chan Event
	Close()
}

// Source opens streams scoped to a set of collections.
type Source interface {
	Subscribe(tables ...string) Stream
}

type messageRow struct {
	ID            int64  `json:"id"`
	ApplicationID int64  `json:"application_id"`
	SenderID      string `json:"sender_id"`
	Body          string `json:"body"`
	CreatedAt     string `json:"created_at"`
}

// DecodeMessage decodes an application_messages event row.
func (e Event) DecodeMessage() (*models.Message, error) {
	var row messageRow
	if err := json.Unmarshal(e.Row, &row); err != nil {
		return nil, errors.NewFeedDecodeFailedError(err)
	}

	senderID, err := uuid.Parse(row.SenderID)
	if err != nil {
		return nil, errors.NewFeedDecodeFailedError(err)
	}

	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, errors.NewFeedDecodeFailedError(err)
	}

	return &models.Message{
		ID:            row.ID,
		ApplicationID: row.ApplicationID,
		SenderID:      senderID,
		Body:          row.Body,
		CreatedAt:     createdAt,
	}, nil
}

type applicationRow struct {
	ID           int64   `json:"id"`
	GigID        int64   `json:"gig_id"`
	MusicianID   string  `json:"musician_id"`
	Message      *string `json:"message"`
	Status       string  `json:"status"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
}

// DecodeApplication decodes an applications event row.
func (e Event) DecodeApplication() (*models.Application, error) {
	return decodeApplicationRow(e.Row)
}

// DecodeOldApplication decodes the pre-update applications row. Only update
// events carry one.
func (e Event) DecodeOldApplication() (*models.Application, error) {
	if len(e.OldRow) == 0 {
		return nil, errors.NewFeedDecodeFailedError(fmt.Errorf("event has no old row"))
	}
	return decodeApplicationRow(e.OldRow)
}

func decodeApplicationRow(raw json.RawMessage) (*models.Application, error) {
	var row applicationRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, errors.NewFeedDecodeFailedError(err)
	}

	musicianID, err := uuid.Parse(row.MusicianID)
	if err != nil {
		return nil, errors.NewFeedDecodeFailedError(err)
	}

	a := &models.Application{
		ID:         row.ID,
		GigID:      row.GigID,
		MusicianID: musicianID,
		Status:     models.Status(row.Status),
	}
	if !a.Status.Valid() {
		return nil, errors.NewFeedDecodeFailedError(fmt.Errorf("unknown status %q", row.Status))
	}
	if row.Message != nil {
		a.Message = *row.Message
	}
	if row.ContactEmail != nil {
		a.Contact.Email = *row.ContactEmail
	}
	if row.ContactPhone != nil {
		a.Contact.Phone = *row.ContactPhone
	}
	return a, nil
}

type profileRow struct {
	ID           string  `json:"id"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
}

// DecodeProfileContact decodes the (id, contact snapshot) pair from a
// profiles event row.
func (e Event) DecodeProfileContact() (uuid.UUID, models.ContactSnapshot, error) {
	var row profileRow
	if err := json.Unmarshal(e.Row, &row); err != nil {
		return uuid.Nil, models.ContactSnapshot{}, errors.NewFeedDecodeFailedError(err)
	}

	id, err := uuid.Parse(row.ID)
	if err != nil {
		return uuid.Nil, models.ContactSnapshot{}, errors.NewFeedDecodeFailedError(err)
	}

	var contact models.ContactSnapshot
	if row.ContactEmail != nil {
		contact.Email = *row.ContactEmail
	}
	if row.ContactPhone != nil {
		contact.Phone = *row.ContactPhone
	}
	return id, contact, nil
}
