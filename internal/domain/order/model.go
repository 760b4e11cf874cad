package order

import (
	"time"

	"github.com/google/uuid"
)

// Order maps to the clinical_order table. One imaging order per row; prior
// authorization requests reference it.
type Order struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientName      string    `db:"patient_name" json:"patient_name"`
	PatientMRN       string    `db:"patient_mrn" json:"patient_mrn"`
	Modality         string    `db:"modality" json:"modality"`
	CPTCode          string    `db:"cpt_code" json:"cpt_code"`
	DiagnosisCode    string    `db:"diagnosis_code" json:"diagnosis_code"`
	OrderingProvider string    `db:"ordering_provider" json:"ordering_provider"`
	ClinicalNotes    *string   `db:"clinical_notes" json:"clinical_notes,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
