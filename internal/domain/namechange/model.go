package namechange

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses. A request starts pending and moves exactly once to
// approved or denied.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

// NameChangeRequest maps to the name_change_request table. A member-initiated
// display name change awaiting admin review.
type NameChangeRequest struct {
	ID             uuid.UUID `db:"id" json:"id"`
	MemberID       uuid.UUID `db:"member_id" json:"member_id"`
	CurrentFirst   string    `db:"current_first" json:"current_first"`
	CurrentLast    string    `db:"current_last" json:"current_last"`
	RequestedFirst string    `db:"requested_first" json:"requested_first"`
	RequestedLast  string    `db:"requested_last" json:"requested_last"`
	Status         string    `db:"status" json:"status"`
	ReviewerID     *string   `db:"reviewer_id" json:"reviewer_id,omitempty"`
	DenialReason   *string   `db:"denial_reason" json:"denial_reason,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
