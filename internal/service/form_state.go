package service

import "github.com/noah-isme/ficha-clinica-api/internal/models"

// FormState is an immutable snapshot of one open session form. Mutators
// never modify a published snapshot; each change builds a fresh copy.
type FormState struct {
	Patient             *models.Patient              `json:"patient,omitempty"`
	Session             *models.Session              `json:"session,omitempty"`
	ProblemChains       []models.ProblemChainEntry   `json:"problem_chains,omitempty"`
	ProblemGoals        *models.ProblemGoals         `json:"problem_goals,omitempty"`
	Psychometrics       *models.PsychometricData     `json:"psychometrics,omitempty"`
	Dysregulation       *models.DysregulationAreas   `json:"dysregulation,omitempty"`
	Biosocial           *models.BiosocialModel       `json:"biosocial,omitempty"`
	TreatmentObjectives []models.TreatmentObjective  `json:"treatment_objectives,omitempty"`
	ProblemAnalyses     []models.ProblemAnalysis     `json:"problem_analyses,omitempty"`
	EvolutionNotes      []models.EvolutionNote       `json:"evolution_notes,omitempty"`
	Tasks               *models.SessionTasks         `json:"tasks,omitempty"`
	Attachments         []models.Attachment          `json:"attachments,omitempty"`
	History             []models.SessionHistoryEntry `json:"history,omitempty"`
	IsLoading           bool                         `json:"is_loading"`
	Error               string                       `json:"error,omitempty"`
}

func (st FormState) clone() FormState {
	next := st
	next.ProblemChains = cloneSlice(st.ProblemChains)
	next.TreatmentObjectives = cloneSlice(st.TreatmentObjectives)
	next.ProblemAnalyses = cloneSlice(st.ProblemAnalyses)
	next.EvolutionNotes = cloneSlice(st.EvolutionNotes)
	next.Attachments = cloneSlice(st.Attachments)
	next.History = cloneSlice(st.History)
	return next
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
