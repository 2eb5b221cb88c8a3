package models

// Session is one clinical record ("ficha") owned by a patient. SessionCode
// is a per-patient monotonic integer assigned at creation.
type Session struct {
	ID                 string  `db:"id" json:"id"`
	PatientID          string  `db:"patient_id" json:"patient_id"`
	SessionCode        int     `db:"session_code" json:"session_code"`
	SessionDate        *string `db:"session_date" json:"session_date,omitempty"`
	FirstAttentionDate *string `db:"first_attention_date" json:"first_attention_date,omitempty"`
	MotivoPrincipal    *string `db:"motivo_principal" json:"motivo_principal,omitempty"`
	OtrosMotivos       *string `db:"otros_motivos" json:"otros_motivos,omitempty"`
	FamilyNotes        *string `db:"family_notes" json:"family_notes,omitempty"`
	CreatedAt          Instant `db:"created_at" json:"created_at"`
	UpdatedAt          Instant `db:"updated_at" json:"updated_at"`
}
