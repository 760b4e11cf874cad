package metrics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/priorauth/priorauth/internal/platform/db"
)

// Repository loads request snapshots for aggregation.
type Repository interface {
	// Snapshots returns the requests created within [now - windowDays, now].
	Snapshots(ctx context.Context, now time.Time, windowDays int) ([]*Snapshot, error)
}

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) Snapshots(ctx context.Context, now time.Time, windowDays int) ([]*Snapshot, error) {
	from := now.AddDate(0, 0, -windowDays)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, priority, COALESCE(payer_id::text, ''), created_at, submitted_at
		FROM pa_request
		WHERE created_at >= $1 AND created_at <= $2`,
		from, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Status, &s.Priority, &s.PayerID, &s.CreatedAt, &s.SubmittedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, nil
}
