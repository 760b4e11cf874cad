package parequest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/priorauth/priorauth/internal/domain/notification"
	"github.com/priorauth/priorauth/internal/platform/blobstore"
	"github.com/priorauth/priorauth/internal/platform/llm"
	"github.com/priorauth/priorauth/internal/platform/ocr"
)

// TxRunner executes fn inside a database transaction. Repositories called
// from fn join the transaction through the context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Notifier dispatches best-effort workflow notifications.
type Notifier interface {
	Emit(ctx context.Context, recipientID, ntype, title, message string, metadata map[string]interface{})
}

// OrderInfo is the slice of a clinical order the summary generator needs.
type OrderInfo struct {
	PatientName   string
	Modality      string
	CPTCode       string
	DiagnosisCode string
	ClinicalNotes *string
}

// OrderSource resolves order details for a request.
type OrderSource interface {
	OrderInfo(ctx context.Context, id uuid.UUID) (*OrderInfo, error)
}

// PolicySource supplies payer names and policy snippets for prompt building.
type PolicySource interface {
	PayerName(ctx context.Context, id uuid.UUID) (string, error)
	Snippets(ctx context.Context, payerID uuid.UUID, modality string, limit int) ([]string, error)
}

// ocrBatchSize bounds how many attachments one sweep processes.
const ocrBatchSize = 10

// policySnippetLimit bounds how many policy excerpts go into the prompt.
const policySnippetLimit = 5

type Service struct {
	requests  RequestRepository
	checklist ChecklistRepository
	summaries SummaryRepository
	history   HistoryRepository

	blobs     blobstore.Store
	extractor ocr.Extractor
	generator llm.Generator
	notifier  Notifier
	orders    OrderSource
	policies  PolicySource

	runTx TxRunner
}

type ServiceDeps struct {
	Requests  RequestRepository
	Checklist ChecklistRepository
	Summaries SummaryRepository
	History   HistoryRepository

	Blobs     blobstore.Store
	Extractor ocr.Extractor
	// Generator is nil when LLM summary generation is disabled by config.
	Generator llm.Generator
	Notifier  Notifier
	Orders    OrderSource
	Policies  PolicySource

	RunTx TxRunner
}

func NewService(deps ServiceDeps) *Service {
	return &Service{
		requests:  deps.Requests,
		checklist: deps.Checklist,
		summaries: deps.Summaries,
		history:   deps.History,
		blobs:     deps.Blobs,
		extractor: deps.Extractor,
		generator: deps.Generator,
		notifier:  deps.Notifier,
		orders:    deps.Orders,
		policies:  deps.Policies,
		runTx:     deps.RunTx,
	}
}

var validPriorities = map[string]bool{
	"standard": true,
	"urgent":   true,
}

// transitionSources maps each target status to the statuses a request may
// transition from.
var transitionSources = map[string][]string{
	StatusSubmitted:   {StatusDraft},
	StatusApproved:    {StatusSubmitted, StatusPendingInfo, StatusAppealed},
	StatusDenied:      {StatusSubmitted, StatusPendingInfo, StatusAppealed},
	StatusPendingInfo: {StatusSubmitted, StatusAppealed},
	StatusAppealed:    {StatusDenied},
}

// -- CRUD --

func (s *Service) CreateRequest(ctx context.Context, r *PaRequest) error {
	if r.OrderID == uuid.Nil {
		return fmt.Errorf("order_id is required")
	}
	if r.PayerID == uuid.Nil {
		return fmt.Errorf("payer_id is required")
	}
	if r.Priority == "" {
		r.Priority = "standard"
	}
	if !validPriorities[r.Priority] {
		return fmt.Errorf("invalid priority: %s", r.Priority)
	}
	r.Status = StatusDraft
	r.SubmittedAt = nil
	return s.requests.Create(ctx, r)
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*PaRequest, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, status string, limit, offset int) ([]*PaRequest, int, error) {
	return s.requests.List(ctx, status, limit, offset)
}

// DeleteRequest removes a request unless checklist items still reference it.
func (s *Service) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	if _, err := s.requests.GetByID(ctx, id); err != nil {
		return err
	}
	count, err := s.checklist.CountByRequest(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d item(s)", ErrChecklistNotEmpty, count)
	}
	return s.requests.Delete(ctx, id)
}

// -- Checklist --

func (s *Service) AddChecklistItem(ctx context.Context, item *ChecklistItem) error {
	if item.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := s.requests.GetByID(ctx, item.RequestID); err != nil {
		return err
	}
	item.Status = ItemPending
	item.OCRStatus = OCRNone
	return s.checklist.Create(ctx, item)
}

func (s *Service) ListChecklist(ctx context.Context, requestID uuid.UUID) ([]*ChecklistItem, error) {
	return s.checklist.ListByRequest(ctx, requestID)
}

// AttachEvidence stores the uploaded document and marks the item attached.
// The item becomes eligible for the next OCR sweep.
func (s *Service) AttachEvidence(ctx context.Context, itemID uuid.UUID, fileName, contentType, uploadedBy string, content io.Reader) (*blobstore.BlobMetadata, error) {
	item, err := s.checklist.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:        fileName,
		ContentType:     contentType,
		RequestID:       item.RequestID.String(),
		ChecklistItemID: item.ID.String(),
		CreatedBy:       uploadedBy,
	}, content)
	if err != nil {
		return nil, err
	}

	if err := s.checklist.SetAttachment(ctx, itemID, meta.ID); err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *Service) WaiveItem(ctx context.Context, itemID uuid.UUID) error {
	if _, err := s.checklist.GetByID(ctx, itemID); err != nil {
		return err
	}
	return s.checklist.Waive(ctx, itemID)
}

// -- State machine --

// Submit moves a draft request to submitted. All three preconditions are
// checked before any mutation; the status change and history append happen
// in one transaction, with the status guard closing the window where a
// concurrent submit could double-transition.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, actor string) (*PaRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != StatusDraft {
		return nil, transitionError(req.Status, StatusSubmitted)
	}

	items, err := s.checklist.ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if missing := EvaluateChecklist(items); len(missing) > 0 {
		return nil, &IncompleteChecklistError{Items: missing}
	}

	summaries, err := s.summaries.ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !HasSummary(summaries) {
		return nil, ErrMissingSummary
	}

	now := time.Now().UTC()
	err = s.runTx(ctx, func(ctx context.Context) error {
		ok, err := s.requests.TransitionStatus(ctx, id, StatusDraft, StatusSubmitted, &now)
		if err != nil {
			return err
		}
		if !ok {
			return transitionError(req.Status, StatusSubmitted)
		}
		return s.history.Append(ctx, &StatusHistory{
			RequestID:  id,
			FromStatus: StatusDraft,
			ToStatus:   StatusSubmitted,
			Reason:     "submitted to payer",
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}

	req.Status = StatusSubmitted
	req.SubmittedAt = &now

	s.notifyStatusChange(ctx, req, StatusDraft, actor)
	return req, nil
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor, reason string) (*PaRequest, error) {
	return s.transition(ctx, id, StatusApproved, actor, orDefault(reason, "approved by payer"))
}

func (s *Service) Deny(ctx context.Context, id uuid.UUID, actor, reason string) (*PaRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("denial reason is required")
	}
	return s.transition(ctx, id, StatusDenied, actor, reason)
}

func (s *Service) RequestInfo(ctx context.Context, id uuid.UUID, actor, reason string) (*PaRequest, error) {
	return s.transition(ctx, id, StatusPendingInfo, actor, orDefault(reason, "payer requested additional information"))
}

func (s *Service) Appeal(ctx context.Context, id uuid.UUID, actor, reason string) (*PaRequest, error) {
	return s.transition(ctx, id, StatusAppealed, actor, orDefault(reason, "denial appealed"))
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target, actor, reason string) (*PaRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, source := range transitionSources[target] {
		if req.Status == source {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, transitionError(req.Status, target)
	}

	from := req.Status
	err = s.runTx(ctx, func(ctx context.Context) error {
		ok, err := s.requests.TransitionStatus(ctx, id, from, target, nil)
		if err != nil {
			return err
		}
		if !ok {
			return transitionError(from, target)
		}
		return s.history.Append(ctx, &StatusHistory{
			RequestID:  id,
			FromStatus: from,
			ToStatus:   target,
			Reason:     reason,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}

	req.Status = target

	s.notifyStatusChange(ctx, req, from, actor)
	return req, nil
}

// notifyStatusChange tells the requesting user about the transition.
// Best-effort: the transition has already committed.
func (s *Service) notifyStatusChange(ctx context.Context, req *PaRequest, from, actor string) {
	if s.notifier == nil || req.CreatedBy == "" {
		return
	}
	s.notifier.Emit(ctx, req.CreatedBy, notification.TypePaStatusChange,
		fmt.Sprintf("Request %s", req.Status),
		fmt.Sprintf("Prior authorization request moved from %s to %s.", from, req.Status),
		map[string]interface{}{
			"request_id": req.ID.String(),
			"from":       from,
			"to":         req.Status,
			"actor":      actor,
		})
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// -- Summaries --

func (s *Service) ListSummaries(ctx context.Context, requestID uuid.UUID) ([]*Summary, error) {
	return s.summaries.ListByRequest(ctx, requestID)
}

// GenerateSummary builds the prompt context from the order, the extracted
// document text, and the payer's policy snippets, then stores the generated
// draft as the next summary version.
func (s *Service) GenerateSummary(ctx context.Context, requestID uuid.UUID) (*Summary, error) {
	if s.generator == nil {
		return nil, llm.ErrDisabled
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	info, err := s.orders.OrderInfo(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	in := llm.Input{
		ProcedureCode: info.CPTCode,
		Modality:      info.Modality,
		Diagnosis:     info.DiagnosisCode,
	}
	if info.ClinicalNotes != nil && *info.ClinicalNotes != "" {
		in.ClinicalNotes = []string{*info.ClinicalNotes}
	}

	if s.policies != nil {
		if name, err := s.policies.PayerName(ctx, req.PayerID); err == nil {
			in.PayerName = name
		}
		snippets, err := s.policies.Snippets(ctx, req.PayerID, info.Modality, policySnippetLimit)
		if err != nil {
			log.Warn().Err(err).Str("request_id", requestID.String()).Msg("policy snippet lookup failed")
		} else {
			in.PolicySnippets = snippets
		}
	}

	items, err := s.checklist.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.OCRText != nil && *item.OCRText != "" {
			in.OCRText = append(in.OCRText, *item.OCRText)
		}
	}

	out, err := s.generator.Generate(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	existing, err := s.summaries.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RequestID:        requestID,
		Version:          NextSummaryVersion(existing),
		MedicalNecessity: out.MedicalNecessity,
		Indications:      out.Indications,
		RiskBenefit:      out.RiskBenefit,
		ModelID:          out.ModelID,
	}
	if err := s.summaries.Create(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) ListHistory(ctx context.Context, requestID uuid.UUID) ([]*StatusHistory, error) {
	return s.history.ListByRequest(ctx, requestID)
}

// -- OCR batch sweep --

// BatchResult is the per-item tally of one OCR sweep.
type BatchResult struct {
	Processed int               `json:"processed"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []BatchItemResult `json:"items"`
}

type BatchItemResult struct {
	ItemID uuid.UUID `json:"item_id"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// RunOCRSweep processes up to ocrBatchSize pending attachments. One item's
// failure marks that item failed and moves on; the sweep itself only errors
// when the pending list cannot be loaded.
func (s *Service) RunOCRSweep(ctx context.Context) (*BatchResult, error) {
	items, err := s.checklist.ListPendingOCR(ctx, ocrBatchSize)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}

	result := &BatchResult{}
	for _, item := range items {
		result.Processed++

		if err := s.extractItem(ctx, item); err != nil {
			result.Failed++
			result.Items = append(result.Items, BatchItemResult{
				ItemID: item.ID,
				Status: OCRFailed,
				Error:  err.Error(),
			})
			if markErr := s.checklist.SetOCRFailed(ctx, item.ID); markErr != nil {
				log.Error().Err(markErr).Str("item_id", item.ID.String()).Msg("failed to mark ocr failure")
			}
			continue
		}

		result.Succeeded++
		result.Items = append(result.Items, BatchItemResult{
			ItemID: item.ID,
			Status: OCRDone,
		})
	}

	log.Info().
		Int("processed", result.Processed).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("ocr sweep finished")

	return result, nil
}

func (s *Service) extractItem(ctx context.Context, item *ChecklistItem) error {
	if item.AttachmentID == nil {
		return ErrNoAttachment
	}

	rc, meta, err := s.blobs.Download(ctx, *item.AttachmentID)
	if err != nil {
		return fmt.Errorf("download attachment: %w", err)
	}
	defer rc.Close()

	res, err := s.extractor.Extract(ctx, rc, meta.ContentType)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	return s.checklist.SetOCRResult(ctx, item.ID, res.Text, res.Confidence)
}
