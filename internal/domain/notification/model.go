package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type tags. Consumers filter on these.
const (
	TypePaStatusChange     = "pa_status_change"
	TypeNameChangeRequest  = "name_change_request"
	TypeNameChangeApproved = "name_change_approved"
	TypeNameChangeDenied   = "name_change_denied"
)

// Notification maps to the notification table. Created as a side effect of a
// workflow transition; mutated only by the recipient marking it read.
type Notification struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Type        string           `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	Link        *string          `db:"link" json:"link,omitempty"`
	Metadata    *json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
