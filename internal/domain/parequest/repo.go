package parequest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RequestRepository interface {
	Create(ctx context.Context, r *PaRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*PaRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]*PaRequest, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// TransitionStatus performs a status-guarded conditional update: the row
	// changes only if its current status equals from. Returns false when no
	// row matched, which means a concurrent transition won.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, submittedAt *time.Time) (bool, error)
}

type ChecklistRepository interface {
	Create(ctx context.Context, item *ChecklistItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*ChecklistItem, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*ChecklistItem, error)
	CountByRequest(ctx context.Context, requestID uuid.UUID) (int, error)
	SetAttachment(ctx context.Context, id uuid.UUID, attachmentID string) error
	Waive(ctx context.Context, id uuid.UUID) error
	// ListPendingOCR returns up to limit items with an attachment awaiting
	// text extraction, oldest first.
	ListPendingOCR(ctx context.Context, limit int) ([]*ChecklistItem, error)
	SetOCRResult(ctx context.Context, id uuid.UUID, text string, confidence float64) error
	SetOCRFailed(ctx context.Context, id uuid.UUID) error
}

type SummaryRepository interface {
	Create(ctx context.Context, s *Summary) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Summary, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, h *StatusHistory) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*StatusHistory, error)
}
