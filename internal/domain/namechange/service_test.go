package namechange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/priorauth/priorauth/internal/domain/member"
)

type mockRepo struct {
	requests map[uuid.UUID]*NameChangeRequest
}

func newMockRepo() *mockRepo {
	return &mockRepo{requests: make(map[uuid.UUID]*NameChangeRequest)}
}

func (m *mockRepo) Create(_ context.Context, r *NameChangeRequest) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now().UTC()
	m.requests[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*NameChangeRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, status string, _, _ int) ([]*NameChangeRequest, int, error) {
	var items []*NameChangeRequest
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			items = append(items, r)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) HasPending(_ context.Context, memberID uuid.UUID) (bool, error) {
	for _, r := range m.requests {
		if r.MemberID == memberID && r.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) Resolve(_ context.Context, id uuid.UUID, status, reviewerID string, denialReason *string) (bool, error) {
	r, ok := m.requests[id]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	r.Status = status
	r.ReviewerID = &reviewerID
	r.DenialReason = denialReason
	return true, nil
}

type mockDirectory struct {
	members   map[uuid.UUID]*member.Member
	admins    []*member.Member
	renameErr error
	renamed   map[uuid.UUID]string
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		members: make(map[uuid.UUID]*member.Member),
		renamed: make(map[uuid.UUID]string),
	}
}

func (m *mockDirectory) GetMember(_ context.Context, id uuid.UUID) (*member.Member, error) {
	mem, ok := m.members[id]
	if !ok {
		return nil, errors.New("member not found")
	}
	return mem, nil
}

func (m *mockDirectory) Rename(_ context.Context, id uuid.UUID, firstName, lastName string) error {
	if m.renameErr != nil {
		return m.renameErr
	}
	m.renamed[id] = firstName + " " + lastName
	if mem, ok := m.members[id]; ok {
		mem.FirstName = firstName
		mem.LastName = lastName
	}
	return nil
}

func (m *mockDirectory) ActiveAdmins(context.Context) ([]*member.Member, error) {
	return m.admins, nil
}

type emitted struct {
	recipient string
	ntype     string
}

type mockNotifier struct {
	events []emitted
}

func (m *mockNotifier) Emit(_ context.Context, recipientID, ntype, _, _ string, _ map[string]interface{}) {
	m.events = append(m.events, emitted{recipient: recipientID, ntype: ntype})
}

func setup() (*Service, *mockRepo, *mockDirectory, *mockNotifier, uuid.UUID) {
	repo := newMockRepo()
	dir := newMockDirectory()
	notifier := &mockNotifier{}

	memberID := uuid.New()
	dir.members[memberID] = &member.Member{ID: memberID, UserID: "user-1", FirstName: "Jamie", LastName: "Smith", Role: "member", Active: true}
	dir.admins = []*member.Member{
		{ID: uuid.New(), UserID: "admin-1", Role: "admin", Active: true},
		{ID: uuid.New(), UserID: "admin-2", Role: "admin", Active: true},
	}

	return NewService(repo, dir, notifier), repo, dir, notifier, memberID
}

func TestCreate_CapturesCurrentNameAndNotifiesAdmins(t *testing.T) {
	svc, _, _, notifier, memberID := setup()

	req, err := svc.Create(context.Background(), memberID, "Jay", "Smith")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("expected pending, got %s", req.Status)
	}
	if req.CurrentFirst != "Jamie" || req.CurrentLast != "Smith" {
		t.Errorf("current name not captured: %s %s", req.CurrentFirst, req.CurrentLast)
	}

	if len(notifier.events) != 2 {
		t.Fatalf("expected fan-out to 2 admins, got %d events", len(notifier.events))
	}
	for _, e := range notifier.events {
		if e.ntype != "name_change_request" {
			t.Errorf("wrong event type: %s", e.ntype)
		}
	}
}

func TestCreate_RejectsSecondPending(t *testing.T) {
	svc, _, _, _, memberID := setup()
	ctx := context.Background()

	if _, err := svc.Create(ctx, memberID, "Jay", "Smith"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, memberID, "Jaye", "Smith"); !errors.Is(err, ErrPendingExists) {
		t.Fatalf("expected ErrPendingExists, got %v", err)
	}
}

func TestCreate_AllowedAfterResolution(t *testing.T) {
	svc, _, _, _, memberID := setup()
	ctx := context.Background()

	first, err := svc.Create(ctx, memberID, "Jay", "Smith")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Deny(ctx, first.ID, "admin-1", "insufficient documentation"); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if _, err := svc.Create(ctx, memberID, "Jay", "Smith"); err != nil {
		t.Errorf("expected create to succeed after resolution, got %v", err)
	}
}

func TestApprove_RenamesMember(t *testing.T) {
	svc, repo, dir, notifier, memberID := setup()
	ctx := context.Background()

	req, err := svc.Create(ctx, memberID, "Jay", "Smith")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	notifier.events = nil

	got, err := svc.Approve(ctx, req.ID, "admin-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}
	if got.ReviewerID == nil || *got.ReviewerID != "admin-1" {
		t.Error("reviewer not recorded")
	}
	if dir.renamed[memberID] != "Jay Smith" {
		t.Errorf("member not renamed: %q", dir.renamed[memberID])
	}

	stored := repo.requests[req.ID]
	if stored.Status != StatusApproved {
		t.Errorf("stored status %s", stored.Status)
	}
	if len(notifier.events) != 2 || notifier.events[0].ntype != "name_change_approved" {
		t.Errorf("expected approval fan-out, got %+v", notifier.events)
	}
}

func TestApprove_RenameFailureDoesNotRollBack(t *testing.T) {
	svc, repo, dir, _, memberID := setup()
	ctx := context.Background()
	dir.renameErr = errors.New("directory unavailable")

	req, err := svc.Create(ctx, memberID, "Jay", "Smith")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Approve(ctx, req.ID, "admin-1")
	if err != nil {
		t.Fatalf("approve should succeed despite rename failure: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}
	if repo.requests[req.ID].Status != StatusApproved {
		t.Error("resolution rolled back on rename failure")
	}
}

func TestDeny_RequiresReason(t *testing.T) {
	svc, _, _, _, memberID := setup()
	ctx := context.Background()

	req, err := svc.Create(ctx, memberID, "Jay", "Smith")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Deny(ctx, req.ID, "admin-1", "  "); err == nil {
		t.Error("expected error for blank reason")
	}
}

func TestResolve_RejectsAlreadyResolved(t *testing.T) {
	svc, _, _, _, memberID := setup()
	ctx := context.Background()

	req, err := svc.Create(ctx, memberID, "Jay", "Smith")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Approve(ctx, req.ID, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Deny(ctx, req.ID, "admin-2", "too late"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
}
