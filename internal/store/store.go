// Package store implements the remote store contract on PostgreSQL: keyed
// fetch/filter/order on the marketplace collections, ownership-scoped writes,
// and the application status transition procedure. Writes that affect zero
// rows are reported as permission failures, never as success.
package store

import (
	"context"
	"database/sql"
	"time"

	"musikmatch/internal/common/logger"
	"musikmatch/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Postgres is the PostgreSQL-backed store. The optional redis client is used
// as a read-through cache for profile rows.
type Postgres struct {
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewPostgres(db *sql.DB, rdb *redis.Client, log logger.Logger) *Postgres {
	return &Postgres{
		db:     db,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// observe records the duration of one store operation.
func observe(collection, operation string, start time.Time) {
	metrics.StoreQueryDuration.WithLabelValues(collection, operation).
		Observe(time.Since(start).Seconds())
}

// withTimeout bounds a store call that arrived without a deadline.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 10*time.Second)
}
