package parequest

import (
	"context"
	"fmt"
	"time"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// -- pa_request --

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) RequestRepository {
	return &requestRepoPG{pool: pool}
}

const requestCols = `id, order_id, payer_id, status, priority, created_by,
	submitted_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*PaRequest, error) {
	var r PaRequest
	err := row.Scan(&r.ID, &r.OrderID, &r.PayerID, &r.Status, &r.Priority, &r.CreatedBy,
		&r.SubmittedAt, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (r *requestRepoPG) Create(ctx context.Context, req *PaRequest) error {
	req.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO pa_request (id, order_id, payer_id, status, priority, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		req.ID, req.OrderID, req.PayerID, req.Status, req.Priority, req.CreatedBy)
	return err
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PaRequest, error) {
	req, err := scanRequest(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+requestCols+` FROM pa_request WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	return req, err
}

func (r *requestRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*PaRequest, int, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM pa_request`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+requestCols+` FROM pa_request%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PaRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, nil
}

func (r *requestRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM pa_request WHERE id = $1`, id)
	return err
}

func (r *requestRepoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, submittedAt *time.Time) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if submittedAt != nil {
		tag, err = conn(ctx, r.pool).Exec(ctx, `
			UPDATE pa_request SET status = $3, submitted_at = $4, updated_at = NOW()
			WHERE id = $1 AND status = $2`,
			id, from, to, *submittedAt)
	} else {
		tag, err = conn(ctx, r.pool).Exec(ctx, `
			UPDATE pa_request SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2`,
			id, from, to)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// -- checklist_item --

type checklistRepoPG struct{ pool *pgxpool.Pool }

func NewChecklistRepoPG(pool *pgxpool.Pool) ChecklistRepository {
	return &checklistRepoPG{pool: pool}
}

const itemCols = `id, request_id, name, required, status, attachment_id,
	ocr_status, ocr_text, ocr_confidence, created_at, updated_at`

func scanItem(row pgx.Row) (*ChecklistItem, error) {
	var i ChecklistItem
	err := row.Scan(&i.ID, &i.RequestID, &i.Name, &i.Required, &i.Status, &i.AttachmentID,
		&i.OCRStatus, &i.OCRText, &i.OCRConfidence, &i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *checklistRepoPG) Create(ctx context.Context, item *ChecklistItem) error {
	item.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO checklist_item (id, request_id, name, required, status, ocr_status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		item.ID, item.RequestID, item.Name, item.Required, item.Status, item.OCRStatus)
	return err
}

func (r *checklistRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ChecklistItem, error) {
	item, err := scanItem(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+itemCols+` FROM checklist_item WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	return item, err
}

func (r *checklistRepoPG) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*ChecklistItem, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+itemCols+` FROM checklist_item WHERE request_id = $1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ChecklistItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *checklistRepoPG) CountByRequest(ctx context.Context, requestID uuid.UUID) (int, error) {
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM checklist_item WHERE request_id = $1`, requestID).Scan(&count)
	return count, err
}

func (r *checklistRepoPG) SetAttachment(ctx context.Context, id uuid.UUID, attachmentID string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE checklist_item SET status = 'attached', attachment_id = $2,
			ocr_status = 'pending', updated_at = NOW()
		WHERE id = $1`,
		id, attachmentID)
	return err
}

func (r *checklistRepoPG) Waive(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE checklist_item SET status = 'waived', updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *checklistRepoPG) ListPendingOCR(ctx context.Context, limit int) ([]*ChecklistItem, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+itemCols+` FROM checklist_item
		WHERE ocr_status = 'pending' AND attachment_id IS NOT NULL
		ORDER BY updated_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ChecklistItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *checklistRepoPG) SetOCRResult(ctx context.Context, id uuid.UUID, text string, confidence float64) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE checklist_item SET ocr_status = 'done', ocr_text = $2,
			ocr_confidence = $3, updated_at = NOW()
		WHERE id = $1`,
		id, text, confidence)
	return err
}

func (r *checklistRepoPG) SetOCRFailed(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE checklist_item SET ocr_status = 'failed', updated_at = NOW() WHERE id = $1`, id)
	return err
}

// -- summary --

type summaryRepoPG struct{ pool *pgxpool.Pool }

func NewSummaryRepoPG(pool *pgxpool.Pool) SummaryRepository {
	return &summaryRepoPG{pool: pool}
}

func (r *summaryRepoPG) Create(ctx context.Context, s *Summary) error {
	s.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO pa_summary (id, request_id, version, medical_necessity, indications, risk_benefit, model_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.RequestID, s.Version, s.MedicalNecessity, s.Indications, s.RiskBenefit, s.ModelID)
	return err
}

func (r *summaryRepoPG) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Summary, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, request_id, version, medical_necessity, indications, risk_benefit, model_id, created_at
		FROM pa_summary WHERE request_id = $1 ORDER BY version`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.RequestID, &s.Version, &s.MedicalNecessity, &s.Indications, &s.RiskBenefit, &s.ModelID, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, nil
}

// -- status_history --

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepoPG{pool: pool}
}

func (r *historyRepoPG) Append(ctx context.Context, h *StatusHistory) error {
	h.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO status_history (id, request_id, from_status, to_status, reason, actor)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.RequestID, h.FromStatus, h.ToStatus, h.Reason, h.Actor)
	return err
}

func (r *historyRepoPG) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*StatusHistory, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, request_id, from_status, to_status, reason, actor, created_at
		FROM status_history WHERE request_id = $1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StatusHistory
	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.RequestID, &h.FromStatus, &h.ToStatus, &h.Reason, &h.Actor, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, nil
}
