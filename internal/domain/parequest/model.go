package parequest

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses.
const (
	StatusDraft       = "draft"
	StatusSubmitted   = "submitted"
	StatusPendingInfo = "pending_info"
	StatusApproved    = "approved"
	StatusDenied      = "denied"
	StatusAppealed    = "appealed"
)

// Checklist item statuses.
const (
	ItemPending  = "pending"
	ItemAttached = "attached"
	ItemWaived   = "waived"
)

// Per-item OCR states for the batch sweep.
const (
	OCRNone    = "none"
	OCRPending = "pending"
	OCRDone    = "done"
	OCRFailed  = "failed"
)

// PaRequest maps to the pa_request table. One prior authorization case tied
// to one clinical order and one payer. Status is mutated only through the
// service's transition functions.
type PaRequest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrderID     uuid.UUID  `db:"order_id" json:"order_id"`
	PayerID     uuid.UUID  `db:"payer_id" json:"payer_id"`
	Status      string     `db:"status" json:"status"`
	Priority    string     `db:"priority" json:"priority"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ChecklistItem is one required-or-optional piece of evidence for a request.
type ChecklistItem struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	RequestID     uuid.UUID  `db:"request_id" json:"request_id"`
	Name          string     `db:"name" json:"name"`
	Required      bool       `db:"required" json:"required"`
	Status        string     `db:"status" json:"status"`
	AttachmentID  *string    `db:"attachment_id" json:"attachment_id,omitempty"`
	OCRStatus     string     `db:"ocr_status" json:"ocr_status"`
	OCRText       *string    `db:"ocr_text" json:"ocr_text,omitempty"`
	OCRConfidence *float64   `db:"ocr_confidence" json:"ocr_confidence,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Summary is a versioned medical necessity write-up. Never updated in place;
// corrections produce a new version.
type Summary struct {
	ID               uuid.UUID `db:"id" json:"id"`
	RequestID        uuid.UUID `db:"request_id" json:"request_id"`
	Version          int       `db:"version" json:"version"`
	MedicalNecessity string    `db:"medical_necessity" json:"medical_necessity"`
	Indications      string    `db:"indications" json:"indications"`
	RiskBenefit      string    `db:"risk_benefit" json:"risk_benefit"`
	ModelID          string    `db:"model_id" json:"model_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// StatusHistory records one transition of a request.
type StatusHistory struct {
	ID         uuid.UUID `db:"id" json:"id"`
	RequestID  uuid.UUID `db:"request_id" json:"request_id"`
	FromStatus string    `db:"from_status" json:"from_status"`
	ToStatus   string    `db:"to_status" json:"to_status"`
	Reason     string    `db:"reason" json:"reason"`
	Actor      string    `db:"actor" json:"actor"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
