package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/priorauth/priorauth/internal/domain/order"
	"github.com/priorauth/priorauth/internal/domain/payer"
)

type stubOrderRepo struct {
	orders map[uuid.UUID]*order.Order
}

func (s *stubOrderRepo) Create(context.Context, *order.Order) error { return nil }
func (s *stubOrderRepo) Update(context.Context, *order.Order) error { return nil }
func (s *stubOrderRepo) Delete(context.Context, uuid.UUID) error    { return nil }
func (s *stubOrderRepo) List(context.Context, int, int) ([]*order.Order, int, error) {
	return nil, 0, nil
}
func (s *stubOrderRepo) CountPaRequests(context.Context, uuid.UUID) (int, error) { return 0, nil }
func (s *stubOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	return o, nil
}

type stubPayerRepo struct {
	payers   map[uuid.UUID]*payer.Payer
	snippets []*payer.PolicySnippet
}

func (s *stubPayerRepo) Create(context.Context, *payer.Payer) error { return nil }
func (s *stubPayerRepo) Update(context.Context, *payer.Payer) error { return nil }
func (s *stubPayerRepo) List(context.Context, int, int) ([]*payer.Payer, int, error) {
	return nil, 0, nil
}
func (s *stubPayerRepo) CreateSnippet(context.Context, *payer.PolicySnippet) error { return nil }
func (s *stubPayerRepo) ReplaceSnippets(context.Context, uuid.UUID, string, []*payer.PolicySnippet) error {
	return nil
}
func (s *stubPayerRepo) GetByID(_ context.Context, id uuid.UUID) (*payer.Payer, error) {
	p, ok := s.payers[id]
	if !ok {
		return nil, errors.New("payer not found")
	}
	return p, nil
}
func (s *stubPayerRepo) ListSnippets(context.Context, uuid.UUID, string, int) ([]*payer.PolicySnippet, error) {
	return s.snippets, nil
}

func TestOrderSourceAdapter_MapsFields(t *testing.T) {
	id := uuid.New()
	notes := "persistent radiculopathy"
	repo := &stubOrderRepo{orders: map[uuid.UUID]*order.Order{
		id: {ID: id, PatientName: "Jamie Smith", Modality: "mri", CPTCode: "72148", DiagnosisCode: "M54.16", ClinicalNotes: &notes},
	}}
	adapter := &orderSourceAdapter{svc: order.NewService(repo)}

	info, err := adapter.OrderInfo(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Modality != "mri" || info.CPTCode != "72148" || info.DiagnosisCode != "M54.16" {
		t.Errorf("fields not mapped: %+v", info)
	}
	if info.ClinicalNotes == nil || *info.ClinicalNotes != notes {
		t.Error("clinical notes not mapped")
	}
}

func TestOrderSourceAdapter_MissingOrder(t *testing.T) {
	adapter := &orderSourceAdapter{svc: order.NewService(&stubOrderRepo{orders: map[uuid.UUID]*order.Order{}})}
	if _, err := adapter.OrderInfo(context.Background(), uuid.New()); err == nil {
		t.Error("expected error for unknown order")
	}
}

func TestPolicySourceAdapter_FormatsSnippets(t *testing.T) {
	id := uuid.New()
	repo := &stubPayerRepo{
		payers: map[uuid.UUID]*payer.Payer{id: {ID: id, Name: "Acme Health"}},
		snippets: []*payer.PolicySnippet{
			{Heading: "Criteria", Text: "Six weeks of conservative therapy required."},
			{Heading: "", Text: "Preamble text without a heading."},
		},
	}
	adapter := &policySourceAdapter{svc: payer.NewService(repo, nil, false)}

	name, err := adapter.PayerName(context.Background(), id)
	if err != nil {
		t.Fatalf("payer name: %v", err)
	}
	if name != "Acme Health" {
		t.Errorf("wrong payer name: %s", name)
	}

	texts, err := adapter.Snippets(context.Background(), id, "mri", 5)
	if err != nil {
		t.Fatalf("snippets: %v", err)
	}
	if len(texts) != 2 {
		t.Fatalf("expected 2 snippets, got %d", len(texts))
	}
	if texts[0] != "Criteria: Six weeks of conservative therapy required." {
		t.Errorf("heading not prefixed: %q", texts[0])
	}
	if texts[1] != "Preamble text without a heading." {
		t.Errorf("unexpected formatting for headingless snippet: %q", texts[1])
	}
}
