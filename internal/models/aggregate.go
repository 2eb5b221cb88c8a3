package models

// SessionAggregate bundles a session with every sub-section, as consumed
// by document export and aggregate read endpoints.
type SessionAggregate struct {
	Patient             *Patient              `json:"patient,omitempty"`
	Session             Session               `json:"session"`
	ProblemChains       []ProblemChainEntry   `json:"problem_chains,omitempty"`
	ProblemGoals        *ProblemGoals         `json:"problem_goals,omitempty"`
	Psychometrics       *PsychometricData     `json:"psychometrics,omitempty"`
	Dysregulation       *DysregulationAreas   `json:"dysregulation,omitempty"`
	Biosocial           *BiosocialModel       `json:"biosocial,omitempty"`
	TreatmentObjectives []TreatmentObjective  `json:"treatment_objectives,omitempty"`
	ProblemAnalyses     []ProblemAnalysis     `json:"problem_analyses,omitempty"`
	EvolutionNotes      []EvolutionNote       `json:"evolution_notes,omitempty"`
	Tasks               *SessionTasks         `json:"tasks,omitempty"`
	Attachments         []Attachment          `json:"attachments,omitempty"`
	History             []SessionHistoryEntry `json:"history,omitempty"`
}
