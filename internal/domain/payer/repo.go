package payer

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Payer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payer, error)
	Update(ctx context.Context, p *Payer) error
	List(ctx context.Context, limit, offset int) ([]*Payer, int, error)

	CreateSnippet(ctx context.Context, s *PolicySnippet) error
	// ReplaceSnippets atomically swaps the stored snippets for a payer and
	// modality with a fresh scrape result.
	ReplaceSnippets(ctx context.Context, payerID uuid.UUID, modality string, snippets []*PolicySnippet) error
	ListSnippets(ctx context.Context, payerID uuid.UUID, modality string, limit int) ([]*PolicySnippet, error)
}
