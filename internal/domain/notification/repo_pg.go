package notification

import (
	"context"

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

type notificationRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &notificationRepoPG{pool: pool}
}

func (r *notificationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const notificationCols = `id, recipient_id, type, title, message, link, metadata, read, created_at`

func (r *notificationRepoPG) scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &n.Link, &n.Metadata, &n.Read, &n.CreatedAt)
	return &n, err
}

func (r *notificationRepoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notification (id, recipient_id, type, title, message, link, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, n.RecipientID, n.Type, n.Title, n.Message, n.Link, n.Metadata)
	return err
}

func (r *notificationRepoPG) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*Notification, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notification WHERE recipient_id = $1`, recipientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+notificationCols+` FROM notification
		WHERE recipient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, nil
}

func (r *notificationRepoPG) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notification WHERE recipient_id = $1 AND NOT read`, recipientID).Scan(&count)
	return count, err
}

func (r *notificationRepoPG) MarkRead(ctx context.Context, id uuid.UUID, recipientID string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification SET read = TRUE WHERE id = $1 AND recipient_id = $2`,
		id, recipientID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *notificationRepoPG) MarkAllRead(ctx context.Context, recipientID string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification SET read = TRUE WHERE recipient_id = $1 AND NOT read`,
		recipientID)
	return err
}
