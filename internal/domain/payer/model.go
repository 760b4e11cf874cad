package payer

import (
	"time"

	"github.com/google/uuid"
)

// Payer maps to the payer table in the shared schema.
type Payer struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	PolicyURL *string   `db:"policy_url" json:"policy_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PolicySnippet is one extracted passage of payer policy text, keyed by
// payer and imaging modality. Snippets feed the summary generator's prompt.
type PolicySnippet struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PayerID   uuid.UUID `db:"payer_id" json:"payer_id"`
	Modality  string    `db:"modality" json:"modality"`
	Heading   string    `db:"heading" json:"heading"`
	Text      string    `db:"text" json:"text"`
	SourceURL string    `db:"source_url" json:"source_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
