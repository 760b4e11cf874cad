package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	// MarkRead flips the read flag for one notification owned by the
	// recipient. Returns false when no matching row exists.
	MarkRead(ctx context.Context, id uuid.UUID, recipientID string) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string) error
}
