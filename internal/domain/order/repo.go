package order

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Order, int, error)
	// CountPaRequests reports how many prior authorization requests
	// reference the order. Deletion is blocked while any exist.
	CountPaRequests(ctx context.Context, orderID uuid.UUID) (int, error)
}
