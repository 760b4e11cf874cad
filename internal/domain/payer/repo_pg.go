package payer

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

type payerRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &payerRepoPG{pool: pool}
}

func (r *payerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const payerCols = `id, name, policy_url, created_at, updated_at`

func (r *payerRepoPG) scanPayer(row pgx.Row) (*Payer, error) {
	var p Payer
	err := row.Scan(&p.ID, &p.Name, &p.PolicyURL, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *payerRepoPG) Create(ctx context.Context, p *Payer) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payer (id, name, policy_url) VALUES ($1,$2,$3)`,
		p.ID, p.Name, p.PolicyURL)
	return err
}

func (r *payerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payer, error) {
	return r.scanPayer(r.conn(ctx).QueryRow(ctx, `SELECT `+payerCols+` FROM payer WHERE id = $1`, id))
}

func (r *payerRepoPG) Update(ctx context.Context, p *Payer) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE payer SET name=$2, policy_url=$3, updated_at=NOW() WHERE id = $1`,
		p.ID, p.Name, p.PolicyURL)
	return err
}

func (r *payerRepoPG) List(ctx context.Context, limit, offset int) ([]*Payer, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payer`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+payerCols+` FROM payer ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Payer
	for rows.Next() {
		p, err := r.scanPayer(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

const snippetCols = `id, payer_id, modality, heading, text, source_url, created_at`

func (r *payerRepoPG) CreateSnippet(ctx context.Context, s *PolicySnippet) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO policy_snippet (id, payer_id, modality, heading, text, source_url)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.PayerID, s.Modality, s.Heading, s.Text, s.SourceURL)
	return err
}

func (r *payerRepoPG) ReplaceSnippets(ctx context.Context, payerID uuid.UUID, modality string, snippets []*PolicySnippet) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := r.conn(ctx).Exec(ctx,
			`DELETE FROM policy_snippet WHERE payer_id = $1 AND modality = $2`,
			payerID, modality); err != nil {
			return err
		}
		for _, s := range snippets {
			if err := r.CreateSnippet(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *payerRepoPG) ListSnippets(ctx context.Context, payerID uuid.UUID, modality string, limit int) ([]*PolicySnippet, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+snippetCols+` FROM policy_snippet
		WHERE payer_id = $1 AND modality = $2
		ORDER BY created_at LIMIT $3`,
		payerID, modality, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PolicySnippet
	for rows.Next() {
		var s PolicySnippet
		if err := rows.Scan(&s.ID, &s.PayerID, &s.Modality, &s.Heading, &s.Text, &s.SourceURL, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, nil
}
