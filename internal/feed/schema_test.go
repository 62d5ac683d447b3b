// internal/feed/schema_test.go
package feed

import (
	"encoding/json"
	"testing"

	"musikmatch/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(registry.Default())
	require.NoError(t, err)
	return v
}

func TestValidatorAcceptsWellFormedRows(t *testing.T) {
	v := createTestValidator(t)

	tests := []struct {
		name  string
		table string
		row   string
	}{
		{
			name:  "message row",
			table: TableMessages,
			row:   `{"id": 1, "application_id": 7, "sender_id": "abc", "body": "hi", "created_at": "2026-03-01T12:00:00Z"}`,
		},
		{
			name:  "profile row with null contact",
			table: TableProfiles,
			row:   `{"id": "abc", "role": "musician", "contact_email": null}`,
		},
		{
			name:  "application row",
			table: TableApplications,
			row:   `{"id": 1, "gig_id": 42, "musician_id": "abc", "status": "pending"}`,
		},
		{
			name:  "gig row",
			table: TableGigs,
			row:   `{"id": 1, "venue_id": "abc", "title": "Friday Jazz"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(Event{Table: tt.table, Action: ActionInsert, Row: json.RawMessage(tt.row)})
			assert.NoError(t, err)
		})
	}
}

func TestValidatorRejectsMalformedRows(t *testing.T) {
	v := createTestValidator(t)

	tests := []struct {
		name  string
		table string
		row   string
	}{
		{
			name:  "message missing body",
			table: TableMessages,
			row:   `{"id": 1, "application_id": 7, "sender_id": "abc", "created_at": "2026-03-01T12:00:00Z"}`,
		},
		{
			name:  "string id where integer expected",
			table: TableMessages,
			row:   `{"id": "1", "application_id": 7, "sender_id": "abc", "body": "hi", "created_at": "x"}`,
		},
		{
			name:  "unknown application status",
			table: TableApplications,
			row:   `{"id": 1, "gig_id": 42, "musician_id": "abc", "status": "archived"}`,
		},
		{
			name:  "unknown role",
			table: TableProfiles,
			row:   `{"id": "abc", "role": "promoter"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(Event{Table: tt.table, Action: ActionInsert, Row: json.RawMessage(tt.row)})
			assert.Error(t, err)
		})
	}
}

func TestValidatorRejectsUnknownTable(t *testing.T) {
	v := createTestValidator(t)

	err := v.Validate(Event{Table: "invoices", Action: ActionInsert, Row: json.RawMessage(`{}`)})

	require.Error(t, err)
}
