package payer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/priorauth/priorauth/internal/platform/policy"
)

// ErrIngestionDisabled is returned when policy scraping is requested but the
// feature flag is off. Handlers map it to 503.
var ErrIngestionDisabled = errors.New("policy ingestion is disabled")

// Scraper fetches a policy page and returns its snippets.
type Scraper interface {
	Scrape(ctx context.Context, url string) ([]policy.Snippet, error)
}

type Service struct {
	payers           Repository
	scraper          Scraper
	ingestionEnabled bool
}

func NewService(payers Repository, scraper Scraper, ingestionEnabled bool) *Service {
	return &Service{payers: payers, scraper: scraper, ingestionEnabled: ingestionEnabled}
}

func (s *Service) CreatePayer(ctx context.Context, p *Payer) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.payers.Create(ctx, p)
}

func (s *Service) GetPayer(ctx context.Context, id uuid.UUID) (*Payer, error) {
	return s.payers.GetByID(ctx, id)
}

func (s *Service) UpdatePayer(ctx context.Context, p *Payer) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.payers.Update(ctx, p)
}

func (s *Service) ListPayers(ctx context.Context, limit, offset int) ([]*Payer, int, error) {
	return s.payers.List(ctx, limit, offset)
}

// IngestPolicy scrapes the payer's policy page for a modality and replaces
// the stored snippets with the result. Returns the number of snippets stored.
func (s *Service) IngestPolicy(ctx context.Context, payerID uuid.UUID, modality string) (int, error) {
	if !s.ingestionEnabled {
		return 0, ErrIngestionDisabled
	}

	p, err := s.payers.GetByID(ctx, payerID)
	if err != nil {
		return 0, err
	}
	if p.PolicyURL == nil || *p.PolicyURL == "" {
		return 0, fmt.Errorf("payer %s has no policy_url configured", p.Name)
	}

	scraped, err := s.scraper.Scrape(ctx, *p.PolicyURL)
	if err != nil {
		return 0, fmt.Errorf("scrape policy page: %w", err)
	}

	snippets := make([]*PolicySnippet, 0, len(scraped))
	for _, sn := range scraped {
		snippets = append(snippets, &PolicySnippet{
			PayerID:   payerID,
			Modality:  modality,
			Heading:   sn.Heading,
			Text:      sn.Text,
			SourceURL: *p.PolicyURL,
		})
	}

	if err := s.payers.ReplaceSnippets(ctx, payerID, modality, snippets); err != nil {
		return 0, fmt.Errorf("store snippets: %w", err)
	}

	log.Info().
		Str("payer_id", payerID.String()).
		Str("modality", modality).
		Int("snippets", len(snippets)).
		Msg("policy snippets ingested")

	return len(snippets), nil
}

func (s *Service) ListSnippets(ctx context.Context, payerID uuid.UUID, modality string, limit int) ([]*PolicySnippet, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.payers.ListSnippets(ctx, payerID, modality, limit)
}
