package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	notifications []*Notification
	createErr     error
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = uuid.New()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockRepo) ListByRecipient(_ context.Context, recipientID string, limit, offset int) ([]*Notification, int, error) {
	var items []*Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			items = append(items, n)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) UnreadCount(_ context.Context, recipientID string) (int, error) {
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) MarkRead(_ context.Context, id uuid.UUID, recipientID string) (bool, error) {
	for _, n := range m.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			n.Read = true
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) MarkAllRead(_ context.Context, recipientID string) error {
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			n.Read = true
		}
	}
	return nil
}

func TestEmit_StoresNotification(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	svc.Emit(context.Background(), "u1", TypePaStatusChange, "Request approved", "Your PA request was approved.", map[string]interface{}{"request_id": "r1"})

	if len(repo.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.notifications))
	}
	n := repo.notifications[0]
	if n.Type != TypePaStatusChange {
		t.Errorf("unexpected type %q", n.Type)
	}
	if n.Metadata == nil {
		t.Error("expected metadata to be stored")
	}
}

func TestEmit_SwallowsFailure(t *testing.T) {
	repo := &mockRepo{createErr: errors.New("connection refused")}
	svc := NewService(repo)

	// Must not panic or return an error.
	svc.Emit(context.Background(), "u1", TypeNameChangeRequest, "t", "m", nil)

	if len(repo.notifications) != 0 {
		t.Error("expected no notification stored")
	}
}

func TestMarkRead(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	svc.Emit(ctx, "u1", TypePaStatusChange, "t", "m", nil)
	n := repo.notifications[0]

	if err := svc.MarkRead(ctx, n.ID, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.Read {
		t.Error("expected notification marked read")
	}

	// Wrong recipient cannot mark someone else's notification.
	svc.Emit(ctx, "u1", TypePaStatusChange, "t", "m", nil)
	other := repo.notifications[1]
	if err := svc.MarkRead(ctx, other.ID, "u2"); err == nil {
		t.Error("expected error for mismatched recipient")
	}
}

func TestUnreadCount(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	svc.Emit(ctx, "u1", TypePaStatusChange, "t", "m", nil)
	svc.Emit(ctx, "u1", TypePaStatusChange, "t", "m", nil)
	svc.Emit(ctx, "u2", TypePaStatusChange, "t", "m", nil)

	count, err := svc.UnreadCount(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 unread, got %d", count)
	}

	if err := svc.MarkAllRead(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	count, _ = svc.UnreadCount(ctx, "u1")
	if count != 0 {
		t.Errorf("expected 0 unread after mark all, got %d", count)
	}
}
