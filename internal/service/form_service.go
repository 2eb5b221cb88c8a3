package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
	"github.com/noah-isme/ficha-clinica-api/pkg/config"
)

type formPatientStore interface {
	Upsert(ctx context.Context, patient *models.Patient) error
	GetByID(ctx context.Context, id string) (*models.Patient, error)
	FindByDisplayName(ctx context.Context, name string) (*models.Patient, error)
}

type formSessionStore interface {
	CreateSession(ctx context.Context, patientID string) (*models.Session, error)
	ListSessions(ctx context.Context, patientID string) ([]models.Session, error)
	UpdateSession(ctx context.Context, session *models.Session) error

	UpsertProblemGoals(ctx context.Context, goals *models.ProblemGoals) error
	GetProblemGoals(ctx context.Context, sessionID string) (*models.ProblemGoals, error)
	UpsertPsychometrics(ctx context.Context, data *models.PsychometricData) error
	GetPsychometrics(ctx context.Context, sessionID string) (*models.PsychometricData, error)
	UpsertDysregulation(ctx context.Context, areas *models.DysregulationAreas) error
	GetDysregulation(ctx context.Context, sessionID string) (*models.DysregulationAreas, error)
	UpsertBiosocial(ctx context.Context, model *models.BiosocialModel) error
	GetBiosocial(ctx context.Context, sessionID string) (*models.BiosocialModel, error)
	UpsertTasks(ctx context.Context, tasks *models.SessionTasks) error
	GetTasks(ctx context.Context, sessionID string) (*models.SessionTasks, error)

	UpsertProblemChains(ctx context.Context, entries []models.ProblemChainEntry) error
	GetProblemChains(ctx context.Context, sessionID string) ([]models.ProblemChainEntry, error)
	UpsertTreatmentObjectives(ctx context.Context, objectives []models.TreatmentObjective) error
	GetTreatmentObjectives(ctx context.Context, sessionID string) ([]models.TreatmentObjective, error)
	UpsertProblemAnalyses(ctx context.Context, analyses []models.ProblemAnalysis) error
	GetProblemAnalyses(ctx context.Context, sessionID string) ([]models.ProblemAnalysis, error)
	UpsertEvolutionNotes(ctx context.Context, notes []models.EvolutionNote) error
	GetEvolutionNotes(ctx context.Context, sessionID string) ([]models.EvolutionNote, error)

	AddAttachment(ctx context.Context, attachment *models.Attachment) error
	GetAttachments(ctx context.Context, sessionID string) ([]models.Attachment, error)
	RemoveAttachment(ctx context.Context, id string) error
	AppendHistory(ctx context.Context, entry *models.SessionHistoryEntry) error
	GetHistory(ctx context.Context, sessionID string) ([]models.SessionHistoryEntry, error)
}

type attachmentIngestor interface {
	Ingest(ctx context.Context, patientID, sessionID string, sources []string) ([]models.Attachment, error)
}

type aggregateInvalidator interface {
	Invalidate(ctx context.Context, sessionID string)
}

type autosaveRecorder interface {
	ObserveAutosave(section string, success bool)
}

// FormServiceConfig bundles the dependencies of a form instance. Cache,
// Metrics and Ingestor are optional.
type FormServiceConfig struct {
	Patients      formPatientStore
	Sessions      formSessionStore
	Ingestor      attachmentIngestor
	Cache         aggregateInvalidator
	Metrics       autosaveRecorder
	Logger        *zap.Logger
	Clock         func() time.Time
	IDGenerator   func() string
	BootstrapPick string
	QueueSize     int
}

// FormService is the view-model behind one open session form. Reads are
// served from an in-memory snapshot; every write is queued onto a single
// worker goroutine so persisted writes for the form never interleave.
type FormService struct {
	patients formPatientStore
	sessions formSessionStore
	ingestor attachmentIngestor
	cache    aggregateInvalidator
	metrics  autosaveRecorder
	logger   *zap.Logger
	clock    func() time.Time
	newID    func() string
	pick     string

	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan func(context.Context)
	wg     sync.WaitGroup
	once   sync.Once

	mu      sync.RWMutex
	state   FormState
	subs    map[int]chan FormState
	nextSub int
}

// NewFormService constructs a form and starts its worker goroutine. Call
// Dispose when the form is closed.
func NewFormService(cfg FormServiceConfig) *FormService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = func() string { return uuid.NewString() }
	}
	if cfg.BootstrapPick == "" {
		cfg.BootstrapPick = config.BootstrapPickOldest
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &FormService{
		patients: cfg.Patients,
		sessions: cfg.Sessions,
		ingestor: cfg.Ingestor,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		newID:    cfg.IDGenerator,
		pick:     cfg.BootstrapPick,
		ctx:      ctx,
		cancel:   cancel,
		tasks:    make(chan func(context.Context), cfg.QueueSize),
		state:    FormState{IsLoading: true},
		subs:     make(map[int]chan FormState),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *FormService) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-s.tasks:
			task(s.ctx)
		}
	}
}

// enqueue hands a task to the worker without waiting for its result.
// After Dispose the task is silently dropped.
func (s *FormService) enqueue(task func(context.Context)) {
	select {
	case <-s.ctx.Done():
	case s.tasks <- task:
	}
}

// drain blocks until every task queued before the call has run.
func (s *FormService) drain() {
	done := make(chan struct{})
	select {
	case <-s.ctx.Done():
		return
	case s.tasks <- func(context.Context) { close(done) }:
	}
	select {
	case <-done:
	case <-s.ctx.Done():
	}
}

// State returns the current snapshot.
func (s *FormService) State() FormState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers a listener for snapshot changes. The channel holds
// at most one pending snapshot; intermediate states may be skipped. The
// returned function unregisters the listener and closes the channel.
func (s *FormService) Subscribe() (<-chan FormState, func()) {
	ch := make(chan FormState, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state.clone()
	s.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// mutate publishes a new snapshot derived from the current one.
func (s *FormService) mutate(apply func(*FormState)) {
	s.mu.Lock()
	next := s.state.clone()
	apply(&next)
	s.state = next
	subs := make([]chan FormState, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
}

// Dispose cancels in-flight work, stops the worker and drops any queued
// tasks. Safe to call more than once.
func (s *FormService) Dispose() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

// LoadPatientByID bootstraps the form for a known patient id.
func (s *FormService) LoadPatientByID(id string) {
	s.mutate(func(st *FormState) {
		st.IsLoading = true
		st.Error = ""
	})
	s.enqueue(func(ctx context.Context) {
		patient, err := s.patients.GetByID(ctx, id)
		if err != nil {
			s.bootstrapFailed("cargar paciente", err)
			return
		}
		if patient == nil {
			s.mutate(func(st *FormState) {
				st.IsLoading = false
				st.Error = fmt.Sprintf("paciente %s no encontrado", id)
			})
			return
		}
		s.bootstrap(ctx, patient)
	})
}

// LoadDefaultPatient bootstraps the form for the patient with the given
// display name, creating the patient first when no match exists.
func (s *FormService) LoadDefaultPatient(displayName string) {
	s.mutate(func(st *FormState) {
		st.IsLoading = true
		st.Error = ""
	})
	s.enqueue(func(ctx context.Context) {
		patient, err := s.patients.FindByDisplayName(ctx, displayName)
		if err != nil {
			s.bootstrapFailed("buscar paciente", err)
			return
		}
		if patient == nil {
			now := models.NewInstant(s.clock())
			patient = &models.Patient{
				ID:          s.newID(),
				DisplayName: displayName,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.patients.Upsert(ctx, patient); err != nil {
				s.bootstrapFailed("crear paciente", err)
				return
			}
		}
		s.bootstrap(ctx, patient)
	})
}

// bootstrap resolves the working session for the patient and hydrates
// every section into a fresh snapshot.
func (s *FormService) bootstrap(ctx context.Context, patient *models.Patient) {
	sessions, err := s.sessions.ListSessions(ctx, patient.ID)
	if err != nil {
		s.bootstrapFailed("listar fichas", err)
		return
	}
	var session *models.Session
	if len(sessions) > 0 {
		idx := 0
		if s.pick == config.BootstrapPickNewest {
			idx = len(sessions) - 1
		}
		session = &sessions[idx]
	} else {
		session, err = s.sessions.CreateSession(ctx, patient.ID)
		if err != nil {
			s.bootstrapFailed("crear ficha", err)
			return
		}
	}

	next := FormState{Patient: patient, Session: session}
	loads := []struct {
		name string
		load func() error
	}{
		{models.ChangeProblemChains, func() (err error) {
			next.ProblemChains, err = s.sessions.GetProblemChains(ctx, session.ID)
			return
		}},
		{models.ChangeProblemGoals, func() (err error) {
			next.ProblemGoals, err = s.sessions.GetProblemGoals(ctx, session.ID)
			return
		}},
		{models.ChangePsychometrics, func() (err error) {
			next.Psychometrics, err = s.sessions.GetPsychometrics(ctx, session.ID)
			return
		}},
		{models.ChangeDysregulation, func() (err error) {
			next.Dysregulation, err = s.sessions.GetDysregulation(ctx, session.ID)
			return
		}},
		{models.ChangeBiosocial, func() (err error) {
			next.Biosocial, err = s.sessions.GetBiosocial(ctx, session.ID)
			return
		}},
		{models.ChangeTreatmentObjectives, func() (err error) {
			next.TreatmentObjectives, err = s.sessions.GetTreatmentObjectives(ctx, session.ID)
			return
		}},
		{models.ChangeProblemAnalyses, func() (err error) {
			next.ProblemAnalyses, err = s.sessions.GetProblemAnalyses(ctx, session.ID)
			return
		}},
		{models.ChangeEvolutionNotes, func() (err error) {
			next.EvolutionNotes, err = s.sessions.GetEvolutionNotes(ctx, session.ID)
			return
		}},
		{models.ChangeTasks, func() (err error) {
			next.Tasks, err = s.sessions.GetTasks(ctx, session.ID)
			return
		}},
		{models.ChangeAttachments, func() (err error) {
			next.Attachments, err = s.sessions.GetAttachments(ctx, session.ID)
			return
		}},
		{"history", func() (err error) {
			next.History, err = s.sessions.GetHistory(ctx, session.ID)
			return
		}},
	}
	for _, l := range loads {
		if err := l.load(); err != nil {
			s.bootstrapFailed("cargar "+l.name, err)
			return
		}
	}

	s.mutate(func(st *FormState) {
		*st = next
	})
}

func (s *FormService) bootstrapFailed(step string, err error) {
	s.logger.Warn("form bootstrap failed", zap.String("step", step), zap.Error(err))
	s.mutate(func(st *FormState) {
		st.IsLoading = false
		st.Error = fmt.Sprintf("%s: %v", step, err)
	})
}

// completed records a successful section persist: metrics, cache
// invalidation and a best-effort history append.
func (s *FormService) completed(ctx context.Context, section, sessionID string) {
	if s.metrics != nil {
		s.metrics.ObserveAutosave(section, true)
	}
	if sessionID == "" {
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, sessionID)
	}
	entry := &models.SessionHistoryEntry{
		SessionID:  sessionID,
		ChangeType: section,
		ChangedAt:  models.NewInstant(s.clock()),
	}
	if err := s.sessions.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("history append failed",
			zap.String("session_id", sessionID),
			zap.String("change_type", section),
			zap.Error(err))
		return
	}
	s.mutate(func(st *FormState) {
		st.History = append(st.History, *entry)
	})
}

// failed surfaces a persist failure on the snapshot without rolling back
// the in-memory edit.
func (s *FormService) failed(section string, err error) {
	s.logger.Warn("autosave failed", zap.String("section", section), zap.Error(err))
	if s.metrics != nil {
		s.metrics.ObserveAutosave(section, false)
	}
	s.mutate(func(st *FormState) {
		st.Error = fmt.Sprintf("%s: %v", section, err)
	})
}
