package namechange

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *NameChangeRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*NameChangeRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]*NameChangeRequest, int, error)
	// HasPending reports whether the member already has an unresolved request.
	HasPending(ctx context.Context, memberID uuid.UUID) (bool, error)
	// Resolve performs a status-guarded conditional update from pending to the
	// terminal status. Returns false when the row was not pending anymore.
	Resolve(ctx context.Context, id uuid.UUID, status, reviewerID string, denialReason *string) (bool, error)
}
