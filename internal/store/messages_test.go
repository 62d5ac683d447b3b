// internal/store/messages_test.go
package store

import (
	"context"
	"testing"
	"time"

	stderrors "errors"

	"musikmatch/internal/common/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMessagesPreservesAscendingOrder(t *testing.T) {
	s, mock := createTestStore(t)
	senderID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "application_id", "sender_id", "body", "created_at"}).
		AddRow(int64(1), int64(7), senderID.String(), "first", base).
		AddRow(int64(2), int64(7), senderID.String(), "second", base.Add(time.Minute))

	mock.ExpectQuery("(?s)SELECT .+ FROM application_messages").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	msgs, err := s.ListMessages(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Body)
	assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
	requireExpectationsMet(t, mock)
}

func TestInsertMessageReturnsServerIDAndTimestamp(t *testing.T) {
	s, mock := createTestStore(t)
	senderID := uuid.New()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO application_messages").
		WithArgs(int64(7), senderID.String(), "hello").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "sender_id", "body", "created_at"}).
			AddRow(int64(1001), int64(7), senderID.String(), "hello", createdAt))

	msg, err := s.InsertMessage(context.Background(), 7, senderID, "hello")

	require.NoError(t, err)
	assert.Equal(t, int64(1001), msg.ID)
	assert.Equal(t, createdAt, msg.CreatedAt)
	assert.Equal(t, senderID, msg.SenderID)
	requireExpectationsMet(t, mock)
}

func TestInsertMessageWrapsStoreFailure(t *testing.T) {
	s, mock := createTestStore(t)
	senderID := uuid.New()

	mock.ExpectQuery("INSERT INTO application_messages").
		WithArgs(int64(7), senderID.String(), "hello").
		WillReturnError(stderrors.New("connection reset"))

	_, err := s.InsertMessage(context.Background(), 7, senderID, "hello")

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindRemote))
	requireExpectationsMet(t, mock)
}
