package member

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	members Repository
}

func NewService(members Repository) *Service {
	return &Service{members: members}
}

var validRoles = map[string]bool{
	"admin":  true,
	"staff":  true,
	"member": true,
}

func (s *Service) CreateMember(ctx context.Context, m *Member) error {
	if m.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if m.FirstName == "" || m.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if m.Role == "" {
		m.Role = "member"
	}
	if !validRoles[m.Role] {
		return fmt.Errorf("invalid role: %s", m.Role)
	}
	m.Active = true
	return s.members.Create(ctx, m)
}

func (s *Service) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	return s.members.GetByID(ctx, id)
}

func (s *Service) UpdateMember(ctx context.Context, m *Member) error {
	if !validRoles[m.Role] {
		return fmt.Errorf("invalid role: %s", m.Role)
	}
	return s.members.Update(ctx, m)
}

func (s *Service) ListMembers(ctx context.Context, limit, offset int) ([]*Member, int, error) {
	return s.members.List(ctx, limit, offset)
}

// Rename updates only the member's display name. Used by the name-change
// approval workflow.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, firstName, lastName string) error {
	return s.members.UpdateName(ctx, id, firstName, lastName)
}

// ActiveAdmins lists the members who receive workflow notifications.
func (s *Service) ActiveAdmins(ctx context.Context) ([]*Member, error) {
	return s.members.ListActiveAdmins(ctx)
}
