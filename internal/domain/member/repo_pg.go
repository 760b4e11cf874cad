package member

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

type memberRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &memberRepoPG{pool: pool}
}

func (r *memberRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const memberCols = `id, user_id, first_name, last_name, role, active, created_at, updated_at`

func (r *memberRepoPG) scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.UserID, &m.FirstName, &m.LastName, &m.Role, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *memberRepoPG) Create(ctx context.Context, m *Member) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO org_member (id, user_id, first_name, last_name, role, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.UserID, m.FirstName, m.LastName, m.Role, m.Active)
	return err
}

func (r *memberRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	return r.scanMember(r.conn(ctx).QueryRow(ctx, `SELECT `+memberCols+` FROM org_member WHERE id = $1`, id))
}

func (r *memberRepoPG) Update(ctx context.Context, m *Member) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE org_member SET first_name=$2, last_name=$3, role=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.FirstName, m.LastName, m.Role, m.Active)
	return err
}

func (r *memberRepoPG) UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE org_member SET first_name=$2, last_name=$3, updated_at=NOW() WHERE id = $1`,
		id, firstName, lastName)
	return err
}

func (r *memberRepoPG) List(ctx context.Context, limit, offset int) ([]*Member, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM org_member`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+memberCols+` FROM org_member ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Member
	for rows.Next() {
		m, err := r.scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *memberRepoPG) ListActiveAdmins(ctx context.Context) ([]*Member, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+memberCols+` FROM org_member WHERE role = 'admin' AND active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Member
	for rows.Next() {
		m, err := r.scanMember(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, nil
}
