// internal/store/store_test.go
package store

import (
	"testing"

	"musikmatch/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db, nil, logger.NewTestLogger(t)), mock
}

func createTestStoreWithCache(t *testing.T) (*Postgres, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewPostgres(db, rdb, logger.NewTestLogger(t)), mock, mr
}

// createTestStoreWithFailingCache uses redismock instead of miniredis so
// tests can script cache-side failures, which a healthy in-memory server
// cannot produce.
func createTestStoreWithFailingCache(t *testing.T) (*Postgres, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdb, cacheMock := redismock.NewClientMock()
	t.Cleanup(func() { rdb.Close() })

	return NewPostgres(db, rdb, logger.NewTestLogger(t)), mock, cacheMock
}

func requireExpectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	require.NoError(t, mock.ExpectationsWereMet())
}
