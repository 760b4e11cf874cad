package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	notifications Repository
}

func NewService(notifications Repository) *Service {
	return &Service{notifications: notifications}
}

func (s *Service) List(ctx context.Context, recipientID string, limit, offset int) ([]*Notification, int, error) {
	return s.notifications.ListByRecipient(ctx, recipientID, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.notifications.UnreadCount(ctx, recipientID)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, recipientID string) error {
	ok, err := s.notifications.MarkRead(ctx, id, recipientID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID string) error {
	return s.notifications.MarkAllRead(ctx, recipientID)
}

// Emit creates a notification as a workflow side effect. Failures are logged
// and swallowed: a lost notification must never unwind the transition that
// triggered it.
func (s *Service) Emit(ctx context.Context, recipientID, ntype, title, message string, metadata map[string]interface{}) {
	n := &Notification{
		RecipientID: recipientID,
		Type:        ntype,
		Title:       title,
		Message:     message,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err == nil {
			rm := json.RawMessage(raw)
			n.Metadata = &rm
		}
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		log.Error().
			Err(err).
			Str("recipient_id", recipientID).
			Str("type", ntype).
			Msg("notification dispatch failed")
		return
	}

	log.Debug().
		Str("recipient_id", recipientID).
		Str("type", ntype).
		Msg("notification dispatched")
}
