package order

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

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &orderRepoPG{pool: pool}
}

func (r *orderRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const orderCols = `id, patient_name, patient_mrn, modality, cpt_code,
	diagnosis_code, ordering_provider, clinical_notes, created_at, updated_at`

func (r *orderRepoPG) scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PatientName, &o.PatientMRN, &o.Modality, &o.CPTCode,
		&o.DiagnosisCode, &o.OrderingProvider, &o.ClinicalNotes, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_order (id, patient_name, patient_mrn, modality, cpt_code,
			diagnosis_code, ordering_provider, clinical_notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.PatientName, o.PatientMRN, o.Modality, o.CPTCode,
		o.DiagnosisCode, o.OrderingProvider, o.ClinicalNotes)
	return err
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.scanOrder(r.conn(ctx).QueryRow(ctx, `SELECT `+orderCols+` FROM clinical_order WHERE id = $1`, id))
}

func (r *orderRepoPG) Update(ctx context.Context, o *Order) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_order SET patient_name=$2, patient_mrn=$3, modality=$4,
			cpt_code=$5, diagnosis_code=$6, ordering_provider=$7, clinical_notes=$8,
			updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.PatientName, o.PatientMRN, o.Modality,
		o.CPTCode, o.DiagnosisCode, o.OrderingProvider, o.ClinicalNotes)
	return err
}

func (r *orderRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinical_order WHERE id = $1`, id)
	return err
}

func (r *orderRepoPG) List(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_order`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+orderCols+` FROM clinical_order ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, nil
}

func (r *orderRepoPG) CountPaRequests(ctx context.Context, orderID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM pa_request WHERE order_id = $1`, orderID).Scan(&count)
	return count, err
}
