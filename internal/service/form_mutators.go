package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
)

// UpdatePatient applies an edit to the patient row and persists it. The
// snapshot keeps its prior patient when the write fails.
func (s *FormService) UpdatePatient(apply func(*models.Patient)) {
	s.enqueue(func(ctx context.Context) {
		cur := s.State().Patient
		if cur == nil {
			return
		}
		next := *cur
		apply(&next)
		next.UpdatedAt = models.NewInstant(s.clock())
		if err := s.patients.Upsert(ctx, &next); err != nil {
			s.failed(models.ChangePatient, err)
			return
		}
		s.mutate(func(st *FormState) {
			st.Patient = &next
			st.Error = ""
		})
		s.completed(ctx, models.ChangePatient, s.sessionID())
	})
}

// UpdateSession applies an edit to the session row and persists it.
func (s *FormService) UpdateSession(apply func(*models.Session)) {
	s.enqueue(func(ctx context.Context) {
		cur := s.State().Session
		if cur == nil {
			return
		}
		next := *cur
		apply(&next)
		next.UpdatedAt = models.NewInstant(s.clock())
		if err := s.sessions.UpdateSession(ctx, &next); err != nil {
			s.failed(models.ChangeSession, err)
			return
		}
		s.mutate(func(st *FormState) {
			st.Session = &next
			st.Error = ""
		})
		s.completed(ctx, models.ChangeSession, next.ID)
	})
}

// UpdateProblemGoals edits the goals section, creating it on first write.
func (s *FormService) UpdateProblemGoals(apply func(*models.ProblemGoals)) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := models.ProblemGoals{SessionID: st.Session.ID}
		if st.ProblemGoals != nil {
			next = *st.ProblemGoals
		}
		apply(&next)
		if err := s.sessions.UpsertProblemGoals(ctx, &next); err != nil {
			s.failed(models.ChangeProblemGoals, err)
			return
		}
		s.mutate(func(fst *FormState) {
			fst.ProblemGoals = &next
			fst.Error = ""
		})
		s.completed(ctx, models.ChangeProblemGoals, next.SessionID)
	})
}

// UpdatePsychometrics edits the psychometric scores section.
func (s *FormService) UpdatePsychometrics(apply func(*models.PsychometricData)) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := models.PsychometricData{SessionID: st.Session.ID}
		if st.Psychometrics != nil {
			next = *st.Psychometrics
		}
		apply(&next)
		if err := s.sessions.UpsertPsychometrics(ctx, &next); err != nil {
			s.failed(models.ChangePsychometrics, err)
			return
		}
		s.mutate(func(fst *FormState) {
			fst.Psychometrics = &next
			fst.Error = ""
		})
		s.completed(ctx, models.ChangePsychometrics, next.SessionID)
	})
}

// UpdateDysregulation edits the dysregulation areas section.
func (s *FormService) UpdateDysregulation(apply func(*models.DysregulationAreas)) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := models.DysregulationAreas{SessionID: st.Session.ID}
		if st.Dysregulation != nil {
			next = *st.Dysregulation
		}
		apply(&next)
		if err := s.sessions.UpsertDysregulation(ctx, &next); err != nil {
			s.failed(models.ChangeDysregulation, err)
			return
		}
		s.mutate(func(fst *FormState) {
			fst.Dysregulation = &next
			fst.Error = ""
		})
		s.completed(ctx, models.ChangeDysregulation, next.SessionID)
	})
}

// UpdateBiosocial edits the biosocial model section.
func (s *FormService) UpdateBiosocial(apply func(*models.BiosocialModel)) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := models.BiosocialModel{SessionID: st.Session.ID}
		if st.Biosocial != nil {
			next = *st.Biosocial
		}
		apply(&next)
		if err := s.sessions.UpsertBiosocial(ctx, &next); err != nil {
			s.failed(models.ChangeBiosocial, err)
			return
		}
		s.mutate(func(fst *FormState) {
			fst.Biosocial = &next
			fst.Error = ""
		})
		s.completed(ctx, models.ChangeBiosocial, next.SessionID)
	})
}

// UpdateTasks edits the free-text tasks section.
func (s *FormService) UpdateTasks(apply func(*models.SessionTasks)) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := models.SessionTasks{SessionID: st.Session.ID}
		if st.Tasks != nil {
			next = *st.Tasks
		}
		apply(&next)
		if err := s.sessions.UpsertTasks(ctx, &next); err != nil {
			s.failed(models.ChangeTasks, err)
			return
		}
		s.mutate(func(fst *FormState) {
			fst.Tasks = &next
			fst.Error = ""
		})
		s.completed(ctx, models.ChangeTasks, next.SessionID)
	})
}

// UpdateProblemChain edits the chain entry with the given label, creating
// a defaulted entry when the session has none yet. The whole list is
// persisted through the replace-all contract.
func (s *FormService) UpdateProblemChain(label string, apply func(*models.ProblemChainEntry)) {
	if !models.ValidChainLabel(label) {
		s.failed(models.ChangeProblemChains, fmt.Errorf("unknown chain label %q", label))
		return
	}
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := cloneSlice(st.ProblemChains)
		idx := -1
		for i := range next {
			if next[i].Label == label {
				idx = i
				break
			}
		}
		if idx < 0 {
			next = append(next, models.ProblemChainEntry{SessionID: st.Session.ID, Label: label})
			idx = len(next) - 1
		}
		apply(&next[idx])
		if err := s.sessions.UpsertProblemChains(ctx, next); err != nil {
			s.failed(models.ChangeProblemChains, err)
			return
		}
		s.mutate(func(fst *FormState) {
			fst.ProblemChains = next
			fst.Error = ""
		})
		s.completed(ctx, models.ChangeProblemChains, st.Session.ID)
	})
}

// SetTreatmentObjective records a value for one (stage, field) slot. Both
// coordinates must belong to the fixed catalog.
func (s *FormService) SetTreatmentObjective(stage models.ObjectiveStage, field string, value *string) {
	if !stage.Valid() || !models.ValidObjectiveField(stage, field) {
		s.failed(models.ChangeTreatmentObjectives, fmt.Errorf("unknown objective %s/%s", stage, field))
		return
	}
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := cloneSlice(st.TreatmentObjectives)
		idx := -1
		for i := range next {
			if next[i].Stage == stage && next[i].Field == field {
				idx = i
				break
			}
		}
		if idx < 0 {
			next = append(next, models.TreatmentObjective{SessionID: st.Session.ID, Stage: stage, Field: field})
			idx = len(next) - 1
		}
		next[idx].Value = value
		if err := s.sessions.UpsertTreatmentObjectives(ctx, next); err != nil {
			s.failed(models.ChangeTreatmentObjectives, err)
			return
		}
		s.mutate(func(fst *FormState) {
			fst.TreatmentObjectives = next
			fst.Error = ""
		})
		s.completed(ctx, models.ChangeTreatmentObjectives, st.Session.ID)
	})
}

// AddProblemAnalysis appends a fresh analysis numbered one past the
// current maximum and persists the list.
func (s *FormService) AddProblemAnalysis() {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := cloneSlice(st.ProblemAnalyses)
		number := 0
		for i := range next {
			if next[i].ProblemNumber > number {
				number = next[i].ProblemNumber
			}
		}
		next = append(next, models.ProblemAnalysis{SessionID: st.Session.ID, ProblemNumber: number + 1})
		s.persistAnalyses(ctx, st.Session.ID, next)
	})
}

// UpdateProblemAnalysis edits the analysis with the given number. Unknown
// numbers are ignored.
func (s *FormService) UpdateProblemAnalysis(number int, apply func(*models.ProblemAnalysis)) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := cloneSlice(st.ProblemAnalyses)
		idx := -1
		for i := range next {
			if next[i].ProblemNumber == number {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		apply(&next[idx])
		s.persistAnalyses(ctx, st.Session.ID, next)
	})
}

// RemoveProblemAnalysis drops the analysis with the given number and
// persists the remainder.
func (s *FormService) RemoveProblemAnalysis(number int) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := make([]models.ProblemAnalysis, 0, len(st.ProblemAnalyses))
		for _, a := range st.ProblemAnalyses {
			if a.ProblemNumber != number {
				next = append(next, a)
			}
		}
		if len(next) == len(st.ProblemAnalyses) {
			return
		}
		s.persistAnalyses(ctx, st.Session.ID, next)
	})
}

func (s *FormService) persistAnalyses(ctx context.Context, sessionID string, next []models.ProblemAnalysis) {
	if err := s.sessions.UpsertProblemAnalyses(ctx, next); err != nil {
		s.failed(models.ChangeProblemAnalyses, err)
		return
	}
	s.mutate(func(fst *FormState) {
		fst.ProblemAnalyses = next
		fst.Error = ""
	})
	s.completed(ctx, models.ChangeProblemAnalyses, sessionID)
}

// AddEvolutionNote appends a note titled with the given text. Note ids
// are assigned in memory, one past the maximum in the loaded list.
func (s *FormService) AddEvolutionNote(titulo string) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := cloneSlice(st.EvolutionNotes)
		var id int64
		for i := range next {
			if next[i].ID > id {
				id = next[i].ID
			}
		}
		next = append(next, models.EvolutionNote{ID: id + 1, SessionID: st.Session.ID, Titulo: titulo})
		s.persistNotes(ctx, st.Session.ID, next)
	})
}

// UpdateEvolutionNote edits the note with the given id. Unknown ids are
// ignored.
func (s *FormService) UpdateEvolutionNote(id int64, apply func(*models.EvolutionNote)) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := cloneSlice(st.EvolutionNotes)
		idx := -1
		for i := range next {
			if next[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		apply(&next[idx])
		s.persistNotes(ctx, st.Session.ID, next)
	})
}

// RemoveEvolutionNote drops the note with the given id.
func (s *FormService) RemoveEvolutionNote(id int64) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		next := make([]models.EvolutionNote, 0, len(st.EvolutionNotes))
		for _, n := range st.EvolutionNotes {
			if n.ID != id {
				next = append(next, n)
			}
		}
		if len(next) == len(st.EvolutionNotes) {
			return
		}
		s.persistNotes(ctx, st.Session.ID, next)
	})
}

func (s *FormService) persistNotes(ctx context.Context, sessionID string, next []models.EvolutionNote) {
	if err := s.sessions.UpsertEvolutionNotes(ctx, next); err != nil {
		s.failed(models.ChangeEvolutionNotes, err)
		return
	}
	s.mutate(func(fst *FormState) {
		fst.EvolutionNotes = next
		fst.Error = ""
	})
	s.completed(ctx, models.ChangeEvolutionNotes, sessionID)
}

// AttachFiles runs the ingestion pipeline over the given source paths,
// links the produced attachments to the session and appends one inline
// [displayName] token per stored file to the task description.
func (s *FormService) AttachFiles(sources []string) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil || s.ingestor == nil {
			return
		}
		attachments, err := s.ingestor.Ingest(ctx, st.Session.PatientID, st.Session.ID, sources)
		if err != nil {
			s.failed(models.ChangeAttachments, err)
			return
		}
		if len(attachments) == 0 {
			return
		}
		stored := make([]models.Attachment, 0, len(attachments))
		for i := range attachments {
			if err := s.sessions.AddAttachment(ctx, &attachments[i]); err != nil {
				s.failed(models.ChangeAttachments, err)
				continue
			}
			stored = append(stored, attachments[i])
		}
		if len(stored) == 0 {
			return
		}

		tasks := models.SessionTasks{SessionID: st.Session.ID}
		if st.Tasks != nil {
			tasks = *st.Tasks
		}
		var text string
		if tasks.Descripcion != nil {
			text = *tasks.Descripcion
		}
		for _, att := range stored {
			if text != "" {
				text += "\n"
			}
			text += "[" + att.DisplayName + "]"
		}
		tasks.Descripcion = &text
		savedTasks := &tasks
		if err := s.sessions.UpsertTasks(ctx, savedTasks); err != nil {
			s.failed(models.ChangeTasks, err)
			savedTasks = st.Tasks
		}

		s.mutate(func(fst *FormState) {
			fst.Attachments = append(fst.Attachments, stored...)
			fst.Tasks = savedTasks
		})
		s.completed(ctx, models.ChangeAttachments, st.Session.ID)
	})
}

// RemoveAttachment unlinks the attachment with the given id. The stored
// file itself is left in place.
func (s *FormService) RemoveAttachment(id string) {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		if err := s.sessions.RemoveAttachment(ctx, id); err != nil {
			s.failed(models.ChangeAttachments, err)
			return
		}
		s.mutate(func(fst *FormState) {
			next := make([]models.Attachment, 0, len(fst.Attachments))
			for _, a := range fst.Attachments {
				if a.ID != id {
					next = append(next, a)
				}
			}
			fst.Attachments = next
			fst.Error = ""
		})
		s.completed(ctx, models.ChangeAttachments, st.Session.ID)
	})
}

// SaveSession flushes the session row and every populated sub-section in
// a fixed order. Each step runs in its own transaction; a failure leaves
// earlier steps durably saved and records the first failure on the
// snapshot.
func (s *FormService) SaveSession() {
	s.enqueue(func(ctx context.Context) {
		st := s.State()
		if st.Session == nil {
			return
		}
		session := *st.Session
		session.UpdatedAt = models.NewInstant(s.clock())

		type step struct {
			name string
			run  func() error
		}
		steps := []step{
			{models.ChangeSession, func() error { return s.sessions.UpdateSession(ctx, &session) }},
		}
		if st.ProblemChains != nil {
			steps = append(steps, step{models.ChangeProblemChains, func() error {
				return s.sessions.UpsertProblemChains(ctx, st.ProblemChains)
			}})
		}
		if st.ProblemGoals != nil {
			steps = append(steps, step{models.ChangeProblemGoals, func() error {
				return s.sessions.UpsertProblemGoals(ctx, st.ProblemGoals)
			}})
		}
		if st.Psychometrics != nil {
			steps = append(steps, step{models.ChangePsychometrics, func() error {
				return s.sessions.UpsertPsychometrics(ctx, st.Psychometrics)
			}})
		}
		if st.Dysregulation != nil {
			steps = append(steps, step{models.ChangeDysregulation, func() error {
				return s.sessions.UpsertDysregulation(ctx, st.Dysregulation)
			}})
		}
		if st.Biosocial != nil {
			steps = append(steps, step{models.ChangeBiosocial, func() error {
				return s.sessions.UpsertBiosocial(ctx, st.Biosocial)
			}})
		}
		if st.TreatmentObjectives != nil {
			steps = append(steps, step{models.ChangeTreatmentObjectives, func() error {
				return s.sessions.UpsertTreatmentObjectives(ctx, st.TreatmentObjectives)
			}})
		}
		if st.ProblemAnalyses != nil {
			steps = append(steps, step{models.ChangeProblemAnalyses, func() error {
				return s.sessions.UpsertProblemAnalyses(ctx, st.ProblemAnalyses)
			}})
		}
		if st.EvolutionNotes != nil {
			steps = append(steps, step{models.ChangeEvolutionNotes, func() error {
				return s.sessions.UpsertEvolutionNotes(ctx, st.EvolutionNotes)
			}})
		}
		if st.Tasks != nil {
			steps = append(steps, step{models.ChangeTasks, func() error {
				return s.sessions.UpsertTasks(ctx, st.Tasks)
			}})
		}

		for _, sp := range steps {
			if err := sp.run(); err != nil {
				s.failed(sp.name, err)
				return
			}
		}
		s.mutate(func(fst *FormState) {
			fst.Session = &session
			fst.Error = ""
		})
		s.completed(ctx, models.ChangeSession, session.ID)
	})
}

// SortedObjectives returns the loaded treatment objectives ordered by
// stage then catalog position, for rendering and export.
func SortedObjectives(objectives []models.TreatmentObjective) []models.TreatmentObjective {
	out := cloneSlice(objectives)
	rank := func(o models.TreatmentObjective) (int, int) {
		stage := len(models.ObjectiveStages)
		for i, s := range models.ObjectiveStages {
			if s == o.Stage {
				stage = i
				break
			}
		}
		field := len(models.ObjectiveFieldCatalog[o.Stage])
		for i, f := range models.ObjectiveFieldCatalog[o.Stage] {
			if f == o.Field {
				field = i
				break
			}
		}
		return stage, field
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, fi := rank(out[i])
		sj, fj := rank(out[j])
		if si != sj {
			return si < sj
		}
		return fi < fj
	})
	return out
}

func (s *FormService) sessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Session == nil {
		return ""
	}
	return s.state.Session.ID
}
