package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
	appErrors "github.com/noah-isme/ficha-clinica-api/pkg/errors"
	"github.com/noah-isme/ficha-clinica-api/pkg/export"
	"github.com/noah-isme/ficha-clinica-api/pkg/jobs"
	"github.com/noah-isme/ficha-clinica-api/pkg/storage"
)

type exportSessionRepository interface {
	GetSessionAggregate(ctx context.Context, sessionID string) (*models.SessionAggregate, error)
}

type aggregateCache interface {
	GetAggregate(ctx context.Context, sessionID string) (*models.SessionAggregate, error)
	SetAggregate(ctx context.Context, aggregate *models.SessionAggregate) error
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	RenderDocument(doc export.Document) ([]byte, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportServiceConfig tunes export behaviour.
type ExportServiceConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	Workers         int
}

// ExportService renders session records to PDF or CSV through a
// background job queue and serves the results via signed URLs.
type ExportService struct {
	sessions exportSessionRepository
	cache    aggregateCache
	storage  exportStorage
	pdf      documentRenderer
	csv      datasetRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportServiceConfig
	clock    func() time.Time
	newID    func() string

	queue *jobs.Queue

	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
}

// NewExportService constructs an ExportService. Cache is optional.
func NewExportService(sessions exportSessionRepository, cache aggregateCache, store exportStorage, signer *storage.SignedURLSigner, cfg ExportServiceConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	s := &ExportService{
		sessions: sessions,
		cache:    cache,
		storage:  store,
		pdf:      export.NewPDFExporter(),
		csv:      export.NewCSVExporter(),
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		clock:    time.Now,
		newID:    func() string { return uuid.NewString() },
		jobs:     make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the worker pool and the result cleanup loop.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.cleanupLoop(ctx)
}

// Stop drains the worker pool.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Request registers an export job and queues it for rendering.
func (s *ExportService) Request(ctx context.Context, sessionID string, format models.ExportFormat) (*models.ExportJob, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	now := models.NewInstant(s.clock())
	job := &models.ExportJob{
		ID:        s.newID(),
		SessionID: sessionID,
		Format:    format,
		Status:    models.ExportStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: "export:" + string(format)}); err != nil {
		s.fail(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	return s.Get(job.ID)
}

// Get returns a copy of the job with the given id.
func (s *ExportService) Get(jobID string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	copied := *job
	return &copied, nil
}

// Open resolves a signed token to the stored result file.
func (s *ExportService) Open(token string) (*os.File, *models.ExportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export token")
	}
	job, err := s.Get(jobID)
	if err != nil {
		return nil, nil, err
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open export")
	}
	return file, job, nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	s.transition(job.ID, models.ExportStatusProcessing, nil)
	pending, err := s.Get(job.ID)
	if err != nil {
		return err
	}

	aggregate, err := s.loadAggregate(ctx, pending.SessionID)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	var payload []byte
	switch pending.Format {
	case models.ExportFormatPDF:
		payload, err = s.pdf.RenderDocument(buildSessionDocument(aggregate))
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(buildEvolutionDataset(aggregate))
	default:
		err = fmt.Errorf("unsupported format %s", pending.Format)
	}
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	filename := fmt.Sprintf("%s/%s.%s", pending.SessionID, pending.ID, pending.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}
	token, expiresAt, err := s.signer.Generate(pending.ID, relPath)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	expiry := models.NewInstant(expiresAt)
	s.transition(job.ID, models.ExportStatusCompleted, func(j *models.ExportJob) {
		j.RelativePath = relPath
		j.Token = token
		j.URL = fmt.Sprintf("%s/exports/download/%s", prefix, token)
		j.ExpiresAt = &expiry
		j.Error = ""
	})
	return nil
}

func (s *ExportService) loadAggregate(ctx context.Context, sessionID string) (*models.SessionAggregate, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetAggregate(ctx, sessionID); err == nil && cached != nil {
			return cached, nil
		}
	}
	aggregate, err := s.sessions.GetSessionAggregate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if aggregate == nil {
		return nil, appErrors.ErrSessionNotFound
	}
	if s.cache != nil {
		if err := s.cache.SetAggregate(ctx, aggregate); err != nil {
			s.logger.Warn("aggregate cache write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return aggregate, nil
}

func (s *ExportService) transition(jobID, status string, apply func(*models.ExportJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	job.Status = status
	job.UpdatedAt = models.NewInstant(s.clock())
	if apply != nil {
		apply(job)
	}
}

func (s *ExportService) fail(jobID string, err error) {
	s.transition(jobID, models.ExportStatusFailed, func(j *models.ExportJob) {
		j.Error = err.Error()
	})
}

func (s *ExportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
		}
	}
}

func buildSessionDocument(agg *models.SessionAggregate) export.Document {
	doc := export.Document{Title: "Ficha clínica"}
	if agg.Patient != nil {
		doc.Subtitle = agg.Patient.DisplayName
	}
	doc.Subtitle = strings.TrimSpace(fmt.Sprintf("%s · Ficha %d", doc.Subtitle, agg.Session.SessionCode))

	if agg.Patient != nil {
		doc.Sections = append(doc.Sections, export.Section{Title: "Paciente", Fields: fields(
			field("Nombre", &agg.Patient.DisplayName),
			field("Nombres", agg.Patient.FirstName),
			field("Apellidos", agg.Patient.LastName),
			field("DNI", agg.Patient.DNI),
			field("Género", agg.Patient.Gender),
			field("Fecha de nacimiento", agg.Patient.BirthDate),
			field("Edad", ageField(agg.Patient)),
			field("Teléfono", agg.Patient.Phone),
			field("Dirección", agg.Patient.Address),
		)})
	}
	doc.Sections = append(doc.Sections, export.Section{Title: "Ficha", Fields: fields(
		field("Fecha de sesión", agg.Session.SessionDate),
		field("Primera atención", agg.Session.FirstAttentionDate),
		field("Motivo principal", agg.Session.MotivoPrincipal),
		field("Otros motivos", agg.Session.OtrosMotivos),
		field("Notas familiares", agg.Session.FamilyNotes),
	)})

	if agg.ProblemGoals != nil {
		doc.Sections = append(doc.Sections, export.Section{Title: "Metas", Fields: fields(
			field("Metas", agg.ProblemGoals.Metas),
		)})
	}
	if p := agg.Psychometrics; p != nil {
		doc.Sections = append(doc.Sections, export.Section{Title: "Datos psicométricos", Fields: fields(
			field("BSL-23", p.Bsl23),
			field("DERS", p.Ders),
			field("BDI-II", p.Bdi2),
			field("STAI estado", p.StaiEstado),
			field("STAI rasgo", p.StaiRasgo),
			field("IPDE screening", p.IpdeScreening),
			field("Otros", p.Otros),
			field("Observaciones", p.Observaciones),
		)})
	}
	if d := agg.Dysregulation; d != nil {
		applied := "No"
		if bool(d.Bsl23Aplicado) {
			applied = "Sí"
		}
		doc.Sections = append(doc.Sections, export.Section{Title: "Áreas de desregulación", Fields: fields(
			field("Emocional", d.Emocional),
			field("Conductual", d.Conductual),
			field("Interpersonal", d.Interpersonal),
			field("Del yo", d.DelYo),
			field("Cognitiva", d.Cognitiva),
			field("Resumen", d.Resumen),
			field("BSL-23 aplicado", &applied),
		)})
	}
	if b := agg.Biosocial; b != nil {
		doc.Sections = append(doc.Sections, export.Section{Title: "Modelo biosocial", Fields: fields(
			field("Vulnerabilidad emocional", b.VulnerabilidadEmocional),
			field("Sensibilidad", b.Sensibilidad),
			field("Intensidad", b.Intensidad),
			field("Retorno lento a la calma", b.RetornoLentoCalma),
			field("Ambiente invalidante", b.AmbienteInvalidante),
			field("Consecuencias de la invalidación", b.ConsecuenciasInvalidacion),
			field("Resumen", b.Resumen),
		)})
	}
	for _, chain := range agg.ProblemChains {
		doc.Sections = append(doc.Sections, export.Section{Title: "Cadena conductual " + chain.Label, Fields: fields(
			field("Vulnerabilidades", chain.Vulnerabilidades),
			field("Evento desencadenante", chain.EventoDesencadenante),
			field("Eslabones", chain.Eslabones),
			field("Problemas de conducta", chain.ProblemasConducta),
			field("Consecuentes", chain.Consecuentes),
		)})
	}
	if len(agg.TreatmentObjectives) > 0 {
		objectives := make([]export.Field, 0, len(agg.TreatmentObjectives))
		for _, o := range SortedObjectives(agg.TreatmentObjectives) {
			if o.Value == nil || *o.Value == "" {
				continue
			}
			objectives = append(objectives, export.Field{
				Label: fmt.Sprintf("%s / %s", o.Stage, o.Field),
				Value: *o.Value,
			})
		}
		doc.Sections = append(doc.Sections, export.Section{Title: "Objetivos de tratamiento", Fields: objectives})
	}
	for _, a := range agg.ProblemAnalyses {
		doc.Sections = append(doc.Sections, export.Section{Title: fmt.Sprintf("Análisis del problema %d", a.ProblemNumber), Fields: fields(
			field("Conducta problema", a.ConductaProblema),
			field("Análisis de solución", a.AnalisisSolucion),
			field("Vulnerabilidades", a.Vulnerabilidades),
			field("Evento precipitante", a.EventoPrecipitante),
			field("Eslabones", a.Eslabones),
			field("Consecuencias", a.Consecuencias),
			field("Metas clínicas", a.MetasClinicas),
			field("Objetivos de tratamiento", a.ObjetivosTratamiento),
			field("Procedimientos", a.Procedimientos),
			field("Apuntes", a.Apuntes),
			field("Tareas", a.Tareas),
		)})
	}
	for _, n := range agg.EvolutionNotes {
		doc.Sections = append(doc.Sections, export.Section{Title: "Nota de evolución: " + n.Titulo, Fields: fields(
			field("Fecha", n.NotaFecha),
			field("Comportamiento trabajado", n.ComportamientoTrabajado),
			field("Apuntes", n.Apuntes),
			field("Tareas", n.Tareas),
		)})
	}
	if agg.Tasks != nil {
		doc.Sections = append(doc.Sections, export.Section{Title: "Tareas", Fields: fields(
			field("Descripción", agg.Tasks.Descripcion),
		)})
	}
	if len(agg.Attachments) > 0 {
		files := make([]export.Field, 0, len(agg.Attachments))
		for _, att := range agg.Attachments {
			value := att.StoredName
			if att.SizeBytes != nil {
				value = fmt.Sprintf("%s (%d bytes)", value, *att.SizeBytes)
			}
			files = append(files, export.Field{Label: att.DisplayName, Value: value})
		}
		doc.Sections = append(doc.Sections, export.Section{Title: "Adjuntos", Fields: files})
	}
	return doc
}

func buildEvolutionDataset(agg *models.SessionAggregate) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"id", "titulo", "fecha", "comportamiento_trabajado", "apuntes", "tareas"},
	}
	for _, n := range agg.EvolutionNotes {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":                       strconv.FormatInt(n.ID, 10),
			"titulo":                   n.Titulo,
			"fecha":                    deref(n.NotaFecha),
			"comportamiento_trabajado": deref(n.ComportamientoTrabajado),
			"apuntes":                  deref(n.Apuntes),
			"tareas":                   deref(n.Tareas),
		})
	}
	return dataset
}

func field(label string, value *string) export.Field {
	return export.Field{Label: label, Value: deref(value)}
}

// fields drops empty values so rendered sections stay compact.
func fields(in ...export.Field) []export.Field {
	out := make([]export.Field, 0, len(in))
	for _, f := range in {
		if f.Value == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func ageField(p *models.Patient) *string {
	age := p.Age(time.Now())
	if age == nil {
		return nil
	}
	s := strconv.Itoa(*age)
	return &s
}
