package models

// Session history change types recorded by the form layer.
const (
	ChangePatient             = "patient"
	ChangeSession             = "session"
	ChangeProblemChains       = "problem_chains"
	ChangeProblemGoals        = "problem_goals"
	ChangePsychometrics       = "psychometrics"
	ChangeDysregulation       = "dysregulation"
	ChangeBiosocial           = "biosocial"
	ChangeTreatmentObjectives = "treatment_objectives"
	ChangeProblemAnalyses     = "problem_analyses"
	ChangeEvolutionNotes      = "evolution_notes"
	ChangeTasks               = "tasks"
	ChangeAttachments         = "attachments"
)

// SessionHistoryEntry is an append-only audit record. The core defines no
// update or delete operation for it.
type SessionHistoryEntry struct {
	ID         int64   `db:"id" json:"id"`
	SessionID  string  `db:"session_id" json:"session_id"`
	ChangeType string  `db:"change_type" json:"change_type"`
	ChangedAt  Instant `db:"changed_at" json:"changed_at"`
	Payload    *string `db:"payload" json:"payload,omitempty"`
}
