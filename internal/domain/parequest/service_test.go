package parequest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/priorauth/priorauth/internal/platform/blobstore"
	"github.com/priorauth/priorauth/internal/platform/llm"
	"github.com/priorauth/priorauth/internal/platform/ocr"
)

// -- in-memory repositories --

type mockRequestRepo struct {
	requests map[uuid.UUID]*PaRequest
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[uuid.UUID]*PaRequest)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *PaRequest) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now().UTC()
	m.requests[r.ID] = r
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*PaRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRequestRepo) List(_ context.Context, status string, _, _ int) ([]*PaRequest, int, error) {
	var items []*PaRequest
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			items = append(items, r)
		}
	}
	return items, len(items), nil
}

func (m *mockRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.requests, id)
	return nil
}

func (m *mockRequestRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to string, submittedAt *time.Time) (bool, error) {
	r, ok := m.requests[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	if submittedAt != nil {
		r.SubmittedAt = submittedAt
	}
	return true, nil
}

type mockChecklistRepo struct {
	items map[uuid.UUID]*ChecklistItem
	order []uuid.UUID
}

func newMockChecklistRepo() *mockChecklistRepo {
	return &mockChecklistRepo{items: make(map[uuid.UUID]*ChecklistItem)}
}

func (m *mockChecklistRepo) Create(_ context.Context, item *ChecklistItem) error {
	item.ID = uuid.New()
	m.items[item.ID] = item
	m.order = append(m.order, item.ID)
	return nil
}

func (m *mockChecklistRepo) GetByID(_ context.Context, id uuid.UUID) (*ChecklistItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *mockChecklistRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*ChecklistItem, error) {
	var items []*ChecklistItem
	for _, id := range m.order {
		if m.items[id].RequestID == requestID {
			items = append(items, m.items[id])
		}
	}
	return items, nil
}

func (m *mockChecklistRepo) CountByRequest(_ context.Context, requestID uuid.UUID) (int, error) {
	count := 0
	for _, item := range m.items {
		if item.RequestID == requestID {
			count++
		}
	}
	return count, nil
}

func (m *mockChecklistRepo) SetAttachment(_ context.Context, id uuid.UUID, attachmentID string) error {
	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	item.Status = ItemAttached
	item.AttachmentID = &attachmentID
	item.OCRStatus = OCRPending
	return nil
}

func (m *mockChecklistRepo) Waive(_ context.Context, id uuid.UUID) error {
	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	item.Status = ItemWaived
	return nil
}

func (m *mockChecklistRepo) ListPendingOCR(_ context.Context, limit int) ([]*ChecklistItem, error) {
	var items []*ChecklistItem
	for _, id := range m.order {
		item := m.items[id]
		if item.OCRStatus == OCRPending && item.AttachmentID != nil {
			items = append(items, item)
		}
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (m *mockChecklistRepo) SetOCRResult(_ context.Context, id uuid.UUID, text string, confidence float64) error {
	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	item.OCRStatus = OCRDone
	item.OCRText = &text
	item.OCRConfidence = &confidence
	return nil
}

func (m *mockChecklistRepo) SetOCRFailed(_ context.Context, id uuid.UUID) error {
	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	item.OCRStatus = OCRFailed
	return nil
}

type mockSummaryRepo struct {
	summaries map[uuid.UUID][]*Summary
}

func newMockSummaryRepo() *mockSummaryRepo {
	return &mockSummaryRepo{summaries: make(map[uuid.UUID][]*Summary)}
}

func (m *mockSummaryRepo) Create(_ context.Context, s *Summary) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	m.summaries[s.RequestID] = append(m.summaries[s.RequestID], s)
	return nil
}

func (m *mockSummaryRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*Summary, error) {
	return m.summaries[requestID], nil
}

type mockHistoryRepo struct {
	entries []*StatusHistory
}

func (m *mockHistoryRepo) Append(_ context.Context, h *StatusHistory) error {
	h.ID = uuid.New()
	h.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, h)
	return nil
}

func (m *mockHistoryRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*StatusHistory, error) {
	var items []*StatusHistory
	for _, h := range m.entries {
		if h.RequestID == requestID {
			items = append(items, h)
		}
	}
	return items, nil
}

// -- collaborators --

type mockNotifier struct {
	emitted []string
}

func (m *mockNotifier) Emit(_ context.Context, recipientID, ntype, _, _ string, _ map[string]interface{}) {
	m.emitted = append(m.emitted, recipientID+":"+ntype)
}

type mockOrderSource struct {
	info *OrderInfo
	err  error
}

func (m *mockOrderSource) OrderInfo(context.Context, uuid.UUID) (*OrderInfo, error) {
	return m.info, m.err
}

type mockPolicySource struct {
	name     string
	snippets []string
}

func (m *mockPolicySource) PayerName(context.Context, uuid.UUID) (string, error) {
	return m.name, nil
}

func (m *mockPolicySource) Snippets(context.Context, uuid.UUID, string, int) ([]string, error) {
	return m.snippets, nil
}

// failingExtractor errors on documents whose content contains the marker.
type failingExtractor struct {
	marker string
}

func (f *failingExtractor) Extract(_ context.Context, content io.Reader, _ string) (*ocr.Result, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	text := string(data)
	if strings.Contains(text, f.marker) {
		return nil, errors.New("unreadable document")
	}
	return &ocr.Result{Text: "extracted: " + text, Confidence: 0.9}, nil
}

func passTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	svc       *Service
	requests  *mockRequestRepo
	checklist *mockChecklistRepo
	summaries *mockSummaryRepo
	history   *mockHistoryRepo
	notifier  *mockNotifier
	blobs     *blobstore.InMemoryStore
}

func newTestEnv(generator llm.Generator, extractor ocr.Extractor) *testEnv {
	env := &testEnv{
		requests:  newMockRequestRepo(),
		checklist: newMockChecklistRepo(),
		summaries: newMockSummaryRepo(),
		history:   &mockHistoryRepo{},
		notifier:  &mockNotifier{},
		blobs:     blobstore.NewInMemoryStore(),
	}
	if extractor == nil {
		extractor = &ocr.MockExtractor{}
	}
	env.svc = NewService(ServiceDeps{
		Requests:  env.requests,
		Checklist: env.checklist,
		Summaries: env.summaries,
		History:   env.history,
		Blobs:     env.blobs,
		Extractor: extractor,
		Generator: generator,
		Notifier:  env.notifier,
		Orders:    &mockOrderSource{info: &OrderInfo{Modality: "mri", CPTCode: "70553", DiagnosisCode: "M54.5"}},
		Policies:  &mockPolicySource{name: "Acme Health", snippets: []string{"MRI requires 6 weeks conservative therapy"}},
		RunTx:     passTx,
	})
	return env
}

func (env *testEnv) draftRequest(t *testing.T) *PaRequest {
	t.Helper()
	r := &PaRequest{OrderID: uuid.New(), PayerID: uuid.New(), CreatedBy: "user-1"}
	if err := env.svc.CreateRequest(context.Background(), r); err != nil {
		t.Fatalf("create request: %v", err)
	}
	return r
}

func (env *testEnv) addSummary(t *testing.T, requestID uuid.UUID) {
	t.Helper()
	err := env.summaries.Create(context.Background(), &Summary{RequestID: requestID, Version: 1, MedicalNecessity: "necessary"})
	if err != nil {
		t.Fatalf("seed summary: %v", err)
	}
}

// -- CRUD --

func TestCreateRequest_DefaultsToDraft(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := &PaRequest{OrderID: uuid.New(), PayerID: uuid.New(), Status: "approved", Priority: ""}

	if err := env.svc.CreateRequest(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusDraft {
		t.Errorf("expected draft, got %s", r.Status)
	}
	if r.Priority != "standard" {
		t.Errorf("expected standard priority, got %s", r.Priority)
	}
	if r.SubmittedAt != nil {
		t.Error("expected nil submitted_at on create")
	}
}

func TestCreateRequest_Validation(t *testing.T) {
	env := newTestEnv(nil, nil)
	cases := []struct {
		name string
		req  *PaRequest
	}{
		{"missing order", &PaRequest{PayerID: uuid.New()}},
		{"missing payer", &PaRequest{OrderID: uuid.New()}},
		{"bad priority", &PaRequest{OrderID: uuid.New(), PayerID: uuid.New(), Priority: "asap"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := env.svc.CreateRequest(context.Background(), tc.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDeleteRequest_BlockedByChecklist(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)
	ctx := context.Background()

	if err := env.svc.AddChecklistItem(ctx, &ChecklistItem{RequestID: r.ID, Name: "notes", Required: true}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	err := env.svc.DeleteRequest(ctx, r.ID)
	if !errors.Is(err, ErrChecklistNotEmpty) {
		t.Fatalf("expected ErrChecklistNotEmpty, got %v", err)
	}
	if _, err := env.requests.GetByID(ctx, r.ID); err != nil {
		t.Error("request should still exist")
	}
}

// -- Checklist --

func TestAttachEvidence_MarksItemAndQueuesOCR(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)
	ctx := context.Background()

	item := &ChecklistItem{RequestID: r.ID, Name: "imaging report", Required: true}
	if err := env.svc.AddChecklistItem(ctx, item); err != nil {
		t.Fatalf("add item: %v", err)
	}

	meta, err := env.svc.AttachEvidence(ctx, item.ID, "report.pdf", "application/pdf", "user-1", strings.NewReader("scan content"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if meta.RequestID != r.ID.String() {
		t.Errorf("blob not tagged with request id: %s", meta.RequestID)
	}

	got, _ := env.checklist.GetByID(ctx, item.ID)
	if got.Status != ItemAttached {
		t.Errorf("expected attached, got %s", got.Status)
	}
	if got.OCRStatus != OCRPending {
		t.Errorf("expected ocr pending, got %s", got.OCRStatus)
	}
	if got.AttachmentID == nil || *got.AttachmentID != meta.ID {
		t.Error("attachment id not recorded")
	}
}

// -- Submit --

func TestSubmit_HappyPath(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)
	ctx := context.Background()
	env.addSummary(t, r.ID)

	got, err := env.svc.Submit(ctx, r.ID, "user-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Status != StatusSubmitted {
		t.Errorf("expected submitted, got %s", got.Status)
	}
	if got.SubmittedAt == nil {
		t.Error("expected submitted_at to be set")
	}

	history, _ := env.history.ListByRequest(ctx, r.ID)
	if len(history) != 1 || history[0].ToStatus != StatusSubmitted {
		t.Errorf("expected one submit history entry, got %+v", history)
	}
	if len(env.notifier.emitted) != 1 {
		t.Errorf("expected one notification, got %d", len(env.notifier.emitted))
	}
}

func TestSubmit_FailsWhenNotDraft(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)
	ctx := context.Background()
	env.requests.requests[r.ID].Status = StatusDenied

	_, err := env.svc.Submit(ctx, r.ID, "user-1")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, _ := env.requests.GetByID(ctx, r.ID)
	if got.Status != StatusDenied {
		t.Errorf("status mutated on failed submit: %s", got.Status)
	}
	if history, _ := env.history.ListByRequest(ctx, r.ID); len(history) != 0 {
		t.Error("history appended on failed submit")
	}
}

func TestSubmit_IncompleteChecklistListsOffendingItems(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)
	ctx := context.Background()
	env.addSummary(t, r.ID)

	satisfied := &ChecklistItem{RequestID: r.ID, Name: "clinical notes", Required: true}
	missing1 := &ChecklistItem{RequestID: r.ID, Name: "imaging report", Required: true}
	optional := &ChecklistItem{RequestID: r.ID, Name: "referral letter", Required: false}
	missing2 := &ChecklistItem{RequestID: r.ID, Name: "lab results", Required: true}
	for _, item := range []*ChecklistItem{satisfied, missing1, optional, missing2} {
		if err := env.svc.AddChecklistItem(ctx, item); err != nil {
			t.Fatalf("add item: %v", err)
		}
	}
	if _, err := env.svc.AttachEvidence(ctx, satisfied.ID, "notes.pdf", "application/pdf", "user-1", strings.NewReader("notes")); err != nil {
		t.Fatalf("attach: %v", err)
	}

	_, err := env.svc.Submit(ctx, r.ID, "user-1")
	var incomplete *IncompleteChecklistError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteChecklistError, got %v", err)
	}
	if len(incomplete.Items) != 2 {
		t.Fatalf("expected exactly 2 offending items, got %d", len(incomplete.Items))
	}
	if incomplete.Items[0].ID != missing1.ID || incomplete.Items[1].ID != missing2.ID {
		t.Error("wrong offending items reported")
	}
}

func TestSubmit_RequiresSummary(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)

	_, err := env.svc.Submit(context.Background(), r.ID, "user-1")
	if !errors.Is(err, ErrMissingSummary) {
		t.Fatalf("expected ErrMissingSummary, got %v", err)
	}
}

func TestSubmit_SecondSubmitFails(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)
	ctx := context.Background()
	env.addSummary(t, r.ID)

	if _, err := env.svc.Submit(ctx, r.ID, "user-1"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := env.svc.Submit(ctx, r.ID, "user-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second submit, got %v", err)
	}
}

// -- Transitions --

func TestTransitions_Table(t *testing.T) {
	cases := []struct {
		name    string
		from    string
		call    func(svc *Service, ctx context.Context, id uuid.UUID) error
		want    string
		wantErr bool
	}{
		{"approve submitted", StatusSubmitted, func(svc *Service, ctx context.Context, id uuid.UUID) error {
			_, err := svc.Approve(ctx, id, "admin", "")
			return err
		}, StatusApproved, false},
		{"approve appealed", StatusAppealed, func(svc *Service, ctx context.Context, id uuid.UUID) error {
			_, err := svc.Approve(ctx, id, "admin", "")
			return err
		}, StatusApproved, false},
		{"approve draft", StatusDraft, func(svc *Service, ctx context.Context, id uuid.UUID) error {
			_, err := svc.Approve(ctx, id, "admin", "")
			return err
		}, "", true},
		{"deny submitted", StatusSubmitted, func(svc *Service, ctx context.Context, id uuid.UUID) error {
			_, err := svc.Deny(ctx, id, "admin", "not covered")
			return err
		}, StatusDenied, false},
		{"request info submitted", StatusSubmitted, func(svc *Service, ctx context.Context, id uuid.UUID) error {
			_, err := svc.RequestInfo(ctx, id, "admin", "")
			return err
		}, StatusPendingInfo, false},
		{"appeal denied", StatusDenied, func(svc *Service, ctx context.Context, id uuid.UUID) error {
			_, err := svc.Appeal(ctx, id, "user-1", "")
			return err
		}, StatusAppealed, false},
		{"appeal approved", StatusApproved, func(svc *Service, ctx context.Context, id uuid.UUID) error {
			_, err := svc.Appeal(ctx, id, "user-1", "")
			return err
		}, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(nil, nil)
			r := env.draftRequest(t)
			ctx := context.Background()
			env.requests.requests[r.ID].Status = tc.from

			err := tc.call(env.svc, ctx, r.ID)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, _ := env.requests.GetByID(ctx, r.ID)
			if got.Status != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got.Status)
			}
		})
	}
}

func TestDeny_RequiresReason(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)
	env.requests.requests[r.ID].Status = StatusSubmitted

	if _, err := env.svc.Deny(context.Background(), r.ID, "admin", "  "); err == nil {
		t.Error("expected error for blank denial reason")
	}
}

// -- Summary generation --

func TestGenerateSummary_DisabledWithoutGenerator(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)

	_, err := env.svc.GenerateSummary(context.Background(), r.ID)
	if !errors.Is(err, llm.ErrDisabled) {
		t.Fatalf("expected llm.ErrDisabled, got %v", err)
	}
}

func TestGenerateSummary_VersionsIncrement(t *testing.T) {
	gen := &llm.MockGenerator{}
	env := newTestEnv(gen, nil)
	r := env.draftRequest(t)
	ctx := context.Background()

	first, err := env.svc.GenerateSummary(ctx, r.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("expected version 1, got %d", first.Version)
	}
	if first.MedicalNecessity == "" {
		t.Error("expected generated medical necessity text")
	}

	second, err := env.svc.GenerateSummary(ctx, r.ID)
	if err != nil {
		t.Fatalf("generate second: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("expected version 2, got %d", second.Version)
	}
}

func TestGenerateSummary_GeneratorFailure(t *testing.T) {
	gen := &llm.MockGenerator{Err: errors.New("model overloaded")}
	env := newTestEnv(gen, nil)
	r := env.draftRequest(t)

	if _, err := env.svc.GenerateSummary(context.Background(), r.ID); err == nil {
		t.Error("expected generation error to propagate")
	}
	if got := env.summaries.summaries[r.ID]; len(got) != 0 {
		t.Error("no summary should be stored on failure")
	}
}

// -- OCR sweep --

func TestRunOCRSweep_PartialFailure(t *testing.T) {
	env := newTestEnv(nil, &failingExtractor{marker: "corrupt"})
	r := env.draftRequest(t)
	ctx := context.Background()

	var failedItem uuid.UUID
	for i := 0; i < 10; i++ {
		item := &ChecklistItem{RequestID: r.ID, Name: fmt.Sprintf("doc %d", i), Required: true}
		if err := env.svc.AddChecklistItem(ctx, item); err != nil {
			t.Fatalf("add item: %v", err)
		}
		content := fmt.Sprintf("document body %d", i)
		if i == 4 {
			content = "corrupt scan"
			failedItem = item.ID
		}
		if _, err := env.svc.AttachEvidence(ctx, item.ID, fmt.Sprintf("doc%d.pdf", i), "application/pdf", "user-1", strings.NewReader(content)); err != nil {
			t.Fatalf("attach: %v", err)
		}
	}

	result, err := env.svc.RunOCRSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Processed != 10 || result.Succeeded != 9 || result.Failed != 1 {
		t.Fatalf("expected 10/9/1, got %d/%d/%d", result.Processed, result.Succeeded, result.Failed)
	}

	items, _ := env.checklist.ListByRequest(ctx, r.ID)
	for _, item := range items {
		if item.ID == failedItem {
			if item.OCRStatus != OCRFailed {
				t.Errorf("failed item has status %s", item.OCRStatus)
			}
			continue
		}
		if item.OCRStatus != OCRDone {
			t.Errorf("item %s should be done, got %s", item.Name, item.OCRStatus)
		}
		if item.OCRText == nil || !strings.HasPrefix(*item.OCRText, "extracted: ") {
			t.Errorf("item %s missing extracted text", item.Name)
		}
	}
}

func TestRunOCRSweep_NothingPending(t *testing.T) {
	env := newTestEnv(nil, nil)

	result, err := env.svc.RunOCRSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Processed != 0 {
		t.Errorf("expected no items processed, got %d", result.Processed)
	}
}

func TestRunOCRSweep_BatchLimit(t *testing.T) {
	env := newTestEnv(nil, nil)
	r := env.draftRequest(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		item := &ChecklistItem{RequestID: r.ID, Name: fmt.Sprintf("doc %d", i), Required: true}
		if err := env.svc.AddChecklistItem(ctx, item); err != nil {
			t.Fatalf("add item: %v", err)
		}
		if _, err := env.svc.AttachEvidence(ctx, item.ID, "doc.pdf", "application/pdf", "user-1", strings.NewReader("body")); err != nil {
			t.Fatalf("attach: %v", err)
		}
	}

	result, err := env.svc.RunOCRSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Processed != 10 {
		t.Errorf("expected batch capped at 10, got %d", result.Processed)
	}
}
