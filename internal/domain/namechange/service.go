package namechange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/priorauth/priorauth/internal/domain/member"
	"github.com/priorauth/priorauth/internal/domain/notification"
)

var (
	ErrNotFound = errors.New("name change request not found")
	// ErrPendingExists rejects a second request while one is unresolved.
	ErrPendingExists = errors.New("member already has a pending name change request")
	// ErrNotPending means the request was already resolved, possibly by a
	// concurrent reviewer.
	ErrNotPending = errors.New("request is no longer pending")
)

// MemberDirectory is the slice of the member service this workflow needs.
type MemberDirectory interface {
	GetMember(ctx context.Context, id uuid.UUID) (*member.Member, error)
	Rename(ctx context.Context, id uuid.UUID, firstName, lastName string) error
	ActiveAdmins(ctx context.Context) ([]*member.Member, error)
}

// Notifier dispatches best-effort workflow notifications.
type Notifier interface {
	Emit(ctx context.Context, recipientID, ntype, title, message string, metadata map[string]interface{})
}

type Service struct {
	repo     Repository
	members  MemberDirectory
	notifier Notifier
}

func NewService(repo Repository, members MemberDirectory, notifier Notifier) *Service {
	return &Service{repo: repo, members: members, notifier: notifier}
}

// Create opens a pending request for the member. The current name is captured
// from the member record so reviewers see what is being changed.
func (s *Service) Create(ctx context.Context, memberID uuid.UUID, requestedFirst, requestedLast string) (*NameChangeRequest, error) {
	if strings.TrimSpace(requestedFirst) == "" || strings.TrimSpace(requestedLast) == "" {
		return nil, fmt.Errorf("requested_first and requested_last are required")
	}

	m, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.HasPending(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrPendingExists
	}

	req := &NameChangeRequest{
		MemberID:       memberID,
		CurrentFirst:   m.FirstName,
		CurrentLast:    m.LastName,
		RequestedFirst: requestedFirst,
		RequestedLast:  requestedLast,
		Status:         StatusPending,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.fanOutToAdmins(ctx, notification.TypeNameChangeRequest,
		"Name change requested",
		fmt.Sprintf("%s %s requested a name change to %s %s.", m.FirstName, m.LastName, requestedFirst, requestedLast),
		req)
	return req, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*NameChangeRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*NameChangeRequest, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

// Approve resolves the request and then, best-effort, renames the member and
// fans out notifications. The rename and the fan-out never roll back the
// already-committed resolution; their failures are logged.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, reviewerID string) (*NameChangeRequest, error) {
	req, err := s.resolve(ctx, id, StatusApproved, reviewerID, nil)
	if err != nil {
		return nil, err
	}

	if err := s.members.Rename(ctx, req.MemberID, req.RequestedFirst, req.RequestedLast); err != nil {
		log.Error().Err(err).
			Str("request_id", id.String()).
			Str("member_id", req.MemberID.String()).
			Msg("member rename failed after approval")
	}

	s.fanOutToAdmins(ctx, notification.TypeNameChangeApproved,
		"Name change approved",
		fmt.Sprintf("Name change to %s %s was approved.", req.RequestedFirst, req.RequestedLast),
		req)
	return req, nil
}

// Deny resolves the request with a reason. The reason is mandatory so the
// member knows why.
func (s *Service) Deny(ctx context.Context, id uuid.UUID, reviewerID, reason string) (*NameChangeRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("denial reason is required")
	}

	req, err := s.resolve(ctx, id, StatusDenied, reviewerID, &reason)
	if err != nil {
		return nil, err
	}

	s.fanOutToAdmins(ctx, notification.TypeNameChangeDenied,
		"Name change denied",
		fmt.Sprintf("Name change to %s %s was denied: %s", req.RequestedFirst, req.RequestedLast, reason),
		req)
	return req, nil
}

// resolve performs the guarded terminal transition. The guard makes a
// concurrent second review fail cleanly instead of overwriting the first.
func (s *Service) resolve(ctx context.Context, id uuid.UUID, status, reviewerID string, denialReason *string) (*NameChangeRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, req.Status)
	}

	ok, err := s.repo.Resolve(ctx, id, status, reviewerID, denialReason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotPending
	}

	req.Status = status
	req.ReviewerID = &reviewerID
	req.DenialReason = denialReason
	return req, nil
}

func (s *Service) fanOutToAdmins(ctx context.Context, ntype, title, message string, req *NameChangeRequest) {
	if s.notifier == nil {
		return
	}
	admins, err := s.members.ActiveAdmins(ctx)
	if err != nil {
		log.Error().Err(err).Str("request_id", req.ID.String()).Msg("admin lookup for fan-out failed")
		return
	}
	metadata := map[string]interface{}{
		"request_id": req.ID.String(),
		"member_id":  req.MemberID.String(),
		"status":     req.Status,
	}
	for _, admin := range admins {
		s.notifier.Emit(ctx, admin.UserID, ntype, title, message, metadata)
	}
}
