package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
	"github.com/noah-isme/ficha-clinica-api/pkg/config"
)

type mockFormStore struct {
	mu sync.Mutex

	patients map[string]models.Patient
	sessions []models.Session

	goals      map[string]*models.ProblemGoals
	psycho     map[string]*models.PsychometricData
	dysreg     map[string]*models.DysregulationAreas
	biosocial  map[string]*models.BiosocialModel
	tasks      map[string]*models.SessionTasks
	chains     map[string][]models.ProblemChainEntry
	objectives map[string][]models.TreatmentObjective
	analyses   map[string][]models.ProblemAnalysis
	notes      map[string][]models.EvolutionNote

	attachments []models.Attachment
	history     []models.SessionHistoryEntry

	failures map[string]error
}

func newMockFormStore() *mockFormStore {
	return &mockFormStore{
		patients:   make(map[string]models.Patient),
		goals:      make(map[string]*models.ProblemGoals),
		psycho:     make(map[string]*models.PsychometricData),
		dysreg:     make(map[string]*models.DysregulationAreas),
		biosocial:  make(map[string]*models.BiosocialModel),
		tasks:      make(map[string]*models.SessionTasks),
		chains:     make(map[string][]models.ProblemChainEntry),
		objectives: make(map[string][]models.TreatmentObjective),
		analyses:   make(map[string][]models.ProblemAnalysis),
		notes:      make(map[string][]models.EvolutionNote),
		failures:   make(map[string]error),
	}
}

func (m *mockFormStore) fail(op string) error {
	if err, ok := m.failures[op]; ok {
		return err
	}
	return nil
}

func (m *mockFormStore) Upsert(ctx context.Context, patient *models.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Upsert"); err != nil {
		return err
	}
	m.patients[patient.ID] = *patient
	return nil
}

func (m *mockFormStore) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetByID"); err != nil {
		return nil, err
	}
	if p, ok := m.patients[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *mockFormStore) FindByDisplayName(ctx context.Context, name string) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.DisplayName == name {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (m *mockFormStore) CreateSession(ctx context.Context, patientID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateSession"); err != nil {
		return nil, err
	}
	code := 0
	for _, s := range m.sessions {
		if s.PatientID == patientID && s.SessionCode > code {
			code = s.SessionCode
		}
	}
	session := models.Session{
		ID:          fmt.Sprintf("s-%d", len(m.sessions)+1),
		PatientID:   patientID,
		SessionCode: code + 1,
	}
	m.sessions = append(m.sessions, session)
	return &session, nil
}

func (m *mockFormStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetSession"); err != nil {
		return nil, err
	}
	for _, s := range m.sessions {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (m *mockFormStore) ListSessions(ctx context.Context, patientID string) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListSessions"); err != nil {
		return nil, err
	}
	out := make([]models.Session, 0)
	for _, s := range m.sessions {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockFormStore) UpdateSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateSession"); err != nil {
		return err
	}
	for i := range m.sessions {
		if m.sessions[i].ID == session.ID {
			m.sessions[i] = *session
			return nil
		}
	}
	return errors.New("session missing")
}

func (m *mockFormStore) UpsertProblemGoals(ctx context.Context, goals *models.ProblemGoals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertProblemGoals"); err != nil {
		return err
	}
	m.goals[goals.SessionID] = goals
	return nil
}

func (m *mockFormStore) GetProblemGoals(ctx context.Context, sessionID string) (*models.ProblemGoals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goals[sessionID], nil
}

func (m *mockFormStore) UpsertPsychometrics(ctx context.Context, data *models.PsychometricData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertPsychometrics"); err != nil {
		return err
	}
	m.psycho[data.SessionID] = data
	return nil
}

func (m *mockFormStore) GetPsychometrics(ctx context.Context, sessionID string) (*models.PsychometricData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.psycho[sessionID], nil
}

func (m *mockFormStore) UpsertDysregulation(ctx context.Context, areas *models.DysregulationAreas) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertDysregulation"); err != nil {
		return err
	}
	m.dysreg[areas.SessionID] = areas
	return nil
}

func (m *mockFormStore) GetDysregulation(ctx context.Context, sessionID string) (*models.DysregulationAreas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dysreg[sessionID], nil
}

func (m *mockFormStore) UpsertBiosocial(ctx context.Context, model *models.BiosocialModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertBiosocial"); err != nil {
		return err
	}
	m.biosocial[model.SessionID] = model
	return nil
}

func (m *mockFormStore) GetBiosocial(ctx context.Context, sessionID string) (*models.BiosocialModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.biosocial[sessionID], nil
}

func (m *mockFormStore) UpsertTasks(ctx context.Context, tasks *models.SessionTasks) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertTasks"); err != nil {
		return err
	}
	m.tasks[tasks.SessionID] = tasks
	return nil
}

func (m *mockFormStore) GetTasks(ctx context.Context, sessionID string) (*models.SessionTasks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[sessionID], nil
}

func (m *mockFormStore) UpsertProblemChains(ctx context.Context, entries []models.ProblemChainEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertProblemChains"); err != nil {
		return err
	}
	if len(entries) > 0 {
		m.chains[entries[0].SessionID] = entries
	}
	return nil
}

func (m *mockFormStore) GetProblemChains(ctx context.Context, sessionID string) ([]models.ProblemChainEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chains[sessionID], nil
}

func (m *mockFormStore) UpsertTreatmentObjectives(ctx context.Context, objectives []models.TreatmentObjective) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertTreatmentObjectives"); err != nil {
		return err
	}
	if len(objectives) > 0 {
		m.objectives[objectives[0].SessionID] = objectives
	}
	return nil
}

func (m *mockFormStore) GetTreatmentObjectives(ctx context.Context, sessionID string) ([]models.TreatmentObjective, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objectives[sessionID], nil
}

func (m *mockFormStore) UpsertProblemAnalyses(ctx context.Context, analyses []models.ProblemAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertProblemAnalyses"); err != nil {
		return err
	}
	if len(analyses) > 0 {
		m.analyses[analyses[0].SessionID] = analyses
	}
	return nil
}

func (m *mockFormStore) GetProblemAnalyses(ctx context.Context, sessionID string) ([]models.ProblemAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.analyses[sessionID], nil
}

func (m *mockFormStore) UpsertEvolutionNotes(ctx context.Context, notes []models.EvolutionNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertEvolutionNotes"); err != nil {
		return err
	}
	if len(notes) > 0 {
		m.notes[notes[0].SessionID] = notes
	}
	return nil
}

func (m *mockFormStore) GetEvolutionNotes(ctx context.Context, sessionID string) ([]models.EvolutionNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notes[sessionID], nil
}

func (m *mockFormStore) AddAttachment(ctx context.Context, attachment *models.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AddAttachment"); err != nil {
		return err
	}
	m.attachments = append(m.attachments, *attachment)
	return nil
}

func (m *mockFormStore) GetAttachments(ctx context.Context, sessionID string) ([]models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Attachment, 0)
	for _, a := range m.attachments {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockFormStore) RemoveAttachment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.attachments[:0]
	for _, a := range m.attachments {
		if a.ID != id {
			out = append(out, a)
		}
	}
	m.attachments = out
	return nil
}

func (m *mockFormStore) AppendHistory(ctx context.Context, entry *models.SessionHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendHistory"); err != nil {
		return err
	}
	entry.ID = int64(len(m.history) + 1)
	m.history = append(m.history, *entry)
	return nil
}

func (m *mockFormStore) GetHistory(ctx context.Context, sessionID string) ([]models.SessionHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SessionHistoryEntry, 0)
	for _, h := range m.history {
		if h.SessionID == sessionID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockFormStore) historyTypes(sessionID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0)
	for _, h := range m.history {
		if h.SessionID == sessionID {
			types = append(types, h.ChangeType)
		}
	}
	return types
}

type mockIngestor struct {
	attachments []models.Attachment
	err         error
	calls       int
}

func (m *mockIngestor) Ingest(ctx context.Context, patientID, sessionID string, sources []string) ([]models.Attachment, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Attachment, len(m.attachments))
	copy(out, m.attachments)
	for i := range out {
		out[i].SessionID = sessionID
	}
	return out, nil
}

func newTestForm(store *mockFormStore, opts ...func(*FormServiceConfig)) *FormService {
	next := 0
	cfg := FormServiceConfig{
		Patients: store,
		Sessions: store,
		Logger:   zap.NewNop(),
		Clock:    func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
		IDGenerator: func() string {
			next++
			return fmt.Sprintf("id-%d", next)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewFormService(cfg)
}

func TestFormServiceLoadPatientByIDNotFound(t *testing.T) {
	store := newMockFormStore()
	form := newTestForm(store)
	defer form.Dispose()

	form.LoadPatientByID("missing")
	form.drain()

	state := form.State()
	assert.False(t, state.IsLoading)
	assert.Contains(t, state.Error, "missing")
	assert.Nil(t, state.Patient)
}

func TestFormServiceLoadDefaultPatientCreates(t *testing.T) {
	store := newMockFormStore()
	form := newTestForm(store)
	defer form.Dispose()

	form.LoadDefaultPatient("Consulta general")
	form.drain()

	state := form.State()
	require.NotNil(t, state.Patient)
	assert.Equal(t, "Consulta general", state.Patient.DisplayName)
	require.NotNil(t, state.Session)
	assert.Equal(t, 1, state.Session.SessionCode)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)
	assert.Len(t, store.patients, 1)
}

func TestFormServiceLoadDefaultPatientReuses(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Consulta general"}
	form := newTestForm(store)
	defer form.Dispose()

	form.LoadDefaultPatient("Consulta general")
	form.drain()

	state := form.State()
	require.NotNil(t, state.Patient)
	assert.Equal(t, "p-1", state.Patient.ID)
	assert.Len(t, store.patients, 1)
}

func TestFormServiceBootstrapPick(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	store.sessions = []models.Session{
		{ID: "s-old", PatientID: "p-1", SessionCode: 1},
		{ID: "s-new", PatientID: "p-1", SessionCode: 2},
	}

	oldest := newTestForm(store)
	defer oldest.Dispose()
	oldest.LoadPatientByID("p-1")
	oldest.drain()
	require.NotNil(t, oldest.State().Session)
	assert.Equal(t, "s-old", oldest.State().Session.ID)

	newest := newTestForm(store, func(cfg *FormServiceConfig) {
		cfg.BootstrapPick = config.BootstrapPickNewest
	})
	defer newest.Dispose()
	newest.LoadPatientByID("p-1")
	newest.drain()
	require.NotNil(t, newest.State().Session)
	assert.Equal(t, "s-new", newest.State().Session.ID)
}

func TestFormServiceUpdateSessionPersists(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	form := newTestForm(store)
	defer form.Dispose()
	form.LoadPatientByID("p-1")

	motivo := "crisis recurrentes"
	form.UpdateSession(func(s *models.Session) {
		s.MotivoPrincipal = &motivo
	})
	form.drain()

	state := form.State()
	require.NotNil(t, state.Session)
	require.NotNil(t, state.Session.MotivoPrincipal)
	assert.Equal(t, motivo, *state.Session.MotivoPrincipal)
	assert.Empty(t, state.Error)
	assert.Contains(t, store.historyTypes(state.Session.ID), models.ChangeSession)

	stored, err := store.GetSession(context.Background(), state.Session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.MotivoPrincipal)
	assert.Equal(t, motivo, *stored.MotivoPrincipal)
}

func TestFormServiceMutatorFailureKeepsState(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	store.failures["UpsertProblemGoals"] = errors.New("disk full")
	form := newTestForm(store)
	defer form.Dispose()
	form.LoadPatientByID("p-1")

	metas := "reducir autolesiones"
	form.UpdateProblemGoals(func(g *models.ProblemGoals) {
		g.Metas = &metas
	})
	form.drain()

	state := form.State()
	assert.Nil(t, state.ProblemGoals)
	assert.Contains(t, state.Error, "disk full")
	assert.Empty(t, store.goals)
}

func TestFormServiceFailureDoesNotTouchOtherSections(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	store.failures["UpsertBiosocial"] = errors.New("constraint violated")
	form := newTestForm(store)
	defer form.Dispose()
	form.LoadPatientByID("p-1")

	metas := "metas"
	form.UpdateProblemGoals(func(g *models.ProblemGoals) { g.Metas = &metas })
	resumen := "resumen"
	form.UpdateBiosocial(func(b *models.BiosocialModel) { b.Resumen = &resumen })
	form.drain()

	state := form.State()
	require.NotNil(t, state.ProblemGoals)
	assert.Equal(t, metas, *state.ProblemGoals.Metas)
	assert.Nil(t, state.Biosocial)
	assert.Contains(t, state.Error, "constraint violated")
}

func TestFormServiceProblemChainByLabel(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	form := newTestForm(store)
	defer form.Dispose()
	form.LoadPatientByID("p-1")

	evento := "discusión familiar"
	form.UpdateProblemChain(models.ChainLabelP2, func(c *models.ProblemChainEntry) {
		c.EventoDesencadenante = &evento
	})
	form.drain()

	state := form.State()
	require.Len(t, state.ProblemChains, 1)
	assert.Equal(t, models.ChainLabelP2, state.ProblemChains[0].Label)
	require.NotNil(t, state.ProblemChains[0].EventoDesencadenante)
	assert.Equal(t, evento, *state.ProblemChains[0].EventoDesencadenante)
}

func TestFormServiceProblemChainRejectsUnknownLabel(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	form := newTestForm(store)
	defer form.Dispose()
	form.LoadPatientByID("p-1")
	form.drain()

	form.UpdateProblemChain("P9", func(c *models.ProblemChainEntry) {})
	form.drain()

	state := form.State()
	assert.Contains(t, state.Error, "P9")
	assert.Empty(t, state.ProblemChains)
	assert.Empty(t, store.chains)
}

func TestFormServiceSetTreatmentObjective(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	form := newTestForm(store)
	defer form.Dispose()
	form.LoadPatientByID("p-1")

	value := "contrato de seguridad"
	form.SetTreatmentObjective(models.StageEtapa1, "conductasAtentanVida", &value)
	form.drain()

	state := form.State()
	require.Len(t, state.TreatmentObjectives, 1)
	assert.Equal(t, models.StageEtapa1, state.TreatmentObjectives[0].Stage)
	assert.Equal(t, "conductasAtentanVida", state.TreatmentObjectives[0].Field)

	form.SetTreatmentObjective(models.StageEtapa1, "noExiste", &value)
	form.drain()
	assert.Contains(t, form.State().Error, "noExiste")
	assert.Len(t, form.State().TreatmentObjectives, 1)
}

func TestFormServiceProblemAnalysisLifecycle(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	form := newTestForm(store)
	defer form.Dispose()
	form.LoadPatientByID("p-1")

	form.AddProblemAnalysis()
	form.AddProblemAnalysis()
	form.drain()
	require.Len(t, form.State().ProblemAnalyses, 2)
	assert.Equal(t, 1, form.State().ProblemAnalyses[0].ProblemNumber)
	assert.Equal(t, 2, form.State().ProblemAnalyses[1].ProblemNumber)

	conducta := "evitación"
	form.UpdateProblemAnalysis(2, func(a *models.ProblemAnalysis) {
		a.ConductaProblema = &conducta
	})
	form.RemoveProblemAnalysis(1)
	form.drain()

	state := form.State()
	require.Len(t, state.ProblemAnalyses, 1)
	assert.Equal(t, 2, state.ProblemAnalyses[0].ProblemNumber)
	require.NotNil(t, state.ProblemAnalyses[0].ConductaProblema)
	assert.Equal(t, conducta, *state.ProblemAnalyses[0].ConductaProblema)

	sessionID := state.Session.ID
	assert.Len(t, store.analyses[sessionID], 1)
}

func TestFormServiceEvolutionNoteIDs(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	form := newTestForm(store)
	defer form.Dispose()
	form.LoadPatientByID("p-1")

	form.AddEvolutionNote("Semana 1")
	form.AddEvolutionNote("Semana 2")
	form.drain()
	form.RemoveEvolutionNote(1)
	form.AddEvolutionNote("Semana 3")
	form.drain()

	state := form.State()
	require.Len(t, state.EvolutionNotes, 2)
	assert.Equal(t, int64(2), state.EvolutionNotes[0].ID)
	assert.Equal(t, int64(3), state.EvolutionNotes[1].ID)
	assert.Equal(t, "Semana 3", state.EvolutionNotes[1].Titulo)
}

func TestFormServiceAttachFilesAppendsTokens(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	ingestor := &mockIngestor{attachments: []models.Attachment{
		{ID: "a-1", DisplayName: "informe.pdf", StoredName: "u1_informe.pdf"},
		{ID: "a-2", DisplayName: "escala.png", StoredName: "u2_escala.png"},
	}}
	form := newTestForm(store, func(cfg *FormServiceConfig) {
		cfg.Ingestor = ingestor
	})
	defer form.Dispose()
	form.LoadPatientByID("p-1")

	prev := "tarea previa"
	form.UpdateTasks(func(tk *models.SessionTasks) { tk.Descripcion = &prev })
	form.AttachFiles([]string{"/tmp/informe.pdf", "/tmp/escala.png"})
	form.drain()

	state := form.State()
	require.Len(t, state.Attachments, 2)
	require.NotNil(t, state.Tasks)
	require.NotNil(t, state.Tasks.Descripcion)
	assert.Equal(t, "tarea previa\n[informe.pdf]\n[escala.png]", *state.Tasks.Descripcion)
	assert.Equal(t, 1, ingestor.calls)
	assert.Len(t, store.attachments, 2)
}

func TestFormServiceSaveSessionFlushes(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	form := newTestForm(store)
	defer form.Dispose()
	form.LoadPatientByID("p-1")

	metas := "metas"
	form.UpdateProblemGoals(func(g *models.ProblemGoals) { g.Metas = &metas })
	form.drain()

	store.failures["UpsertProblemGoals"] = errors.New("flush failed")
	form.SaveSession()
	form.drain()
	assert.Contains(t, form.State().Error, "flush failed")

	delete(store.failures, "UpsertProblemGoals")
	form.SaveSession()
	form.drain()
	assert.Empty(t, form.State().Error)
}

func TestFormServiceSubscribe(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	form := newTestForm(store)
	defer form.Dispose()

	stream, unsubscribe := form.Subscribe()
	defer unsubscribe()

	initial := <-stream
	assert.True(t, initial.IsLoading)

	form.LoadPatientByID("p-1")
	form.drain()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case state := <-stream:
			if state.Patient != nil && !state.IsLoading {
				return
			}
		case <-deadline:
			t.Fatal("no hydrated snapshot published")
		}
	}
}

func TestFormServiceDisposeDropsQueuedWork(t *testing.T) {
	store := newMockFormStore()
	store.patients["p-1"] = models.Patient{ID: "p-1", DisplayName: "Ana"}
	form := newTestForm(store)
	form.LoadPatientByID("p-1")
	form.drain()

	form.Dispose()
	form.Dispose()

	motivo := "descartado"
	form.UpdateSession(func(s *models.Session) { s.MotivoPrincipal = &motivo })
	form.drain()

	stored, err := store.GetSession(context.Background(), form.State().Session.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.MotivoPrincipal)
}
