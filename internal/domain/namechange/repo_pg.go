package namechange

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/priorauth/priorauth/internal/platform/db"
)

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

const cols = `id, member_id, current_first, current_last, requested_first,
	requested_last, status, reviewer_id, denial_reason, created_at, updated_at`

func scan(row pgx.Row) (*NameChangeRequest, error) {
	var n NameChangeRequest
	err := row.Scan(&n.ID, &n.MemberID, &n.CurrentFirst, &n.CurrentLast, &n.RequestedFirst,
		&n.RequestedLast, &n.Status, &n.ReviewerID, &n.DenialReason, &n.CreatedAt, &n.UpdatedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *NameChangeRequest) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO name_change_request
			(id, member_id, current_first, current_last, requested_first, requested_last, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, n.MemberID, n.CurrentFirst, n.CurrentLast, n.RequestedFirst, n.RequestedLast, n.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*NameChangeRequest, error) {
	n, err := scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM name_change_request WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	return n, err
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*NameChangeRequest, int, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM name_change_request`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+cols+` FROM name_change_request%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*NameChangeRequest
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, nil
}

func (r *repoPG) HasPending(ctx context.Context, memberID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM name_change_request WHERE member_id = $1 AND status = 'pending')`,
		memberID).Scan(&exists)
	return exists, err
}

func (r *repoPG) Resolve(ctx context.Context, id uuid.UUID, status, reviewerID string, denialReason *string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE name_change_request
		SET status = $2, reviewer_id = $3, denial_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		id, status, reviewerID, denialReason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
