package member

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	Update(ctx context.Context, m *Member) error
	UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) error
	List(ctx context.Context, limit, offset int) ([]*Member, int, error)
	ListActiveAdmins(ctx context.Context) ([]*Member, error)
}
