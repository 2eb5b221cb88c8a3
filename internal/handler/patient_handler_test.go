package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
	"github.com/noah-isme/ficha-clinica-api/internal/service"
	"github.com/noah-isme/ficha-clinica-api/pkg/response"
	"github.com/noah-isme/ficha-clinica-api/pkg/storage"
)

type patientRepoStub struct {
	patients map[string]models.Patient
}

func (m *patientRepoStub) Upsert(ctx context.Context, patient *models.Patient) error {
	if m.patients == nil {
		m.patients = make(map[string]models.Patient)
	}
	m.patients[patient.ID] = *patient
	return nil
}

func (m *patientRepoStub) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	if p, ok := m.patients[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *patientRepoStub) GetAll(ctx context.Context) ([]models.Patient, error) {
	out := make([]models.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, nil
}

func (m *patientRepoStub) FindByDisplayName(ctx context.Context, name string) (*models.Patient, error) {
	return nil, nil
}

func (m *patientRepoStub) Delete(ctx context.Context, id string) error {
	delete(m.patients, id)
	return nil
}

func (m *patientRepoStub) ObserveAll(ctx context.Context) (<-chan []models.Patient, error) {
	ch := make(chan []models.Patient)
	close(ch)
	return ch, nil
}

type sessionRepoStub struct{}

func (sessionRepoStub) CreateSession(ctx context.Context, patientID string) (*models.Session, error) {
	return &models.Session{ID: "s-1", PatientID: patientID, SessionCode: 1}, nil
}

func (sessionRepoStub) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return nil, nil
}

func (sessionRepoStub) ListSessions(ctx context.Context, patientID string) ([]models.Session, error) {
	return nil, nil
}

func (sessionRepoStub) DeleteSession(ctx context.Context, id string) error { return nil }

func (sessionRepoStub) ObserveSessions(ctx context.Context, patientID string) (<-chan []models.Session, error) {
	ch := make(chan []models.Session)
	close(ch)
	return ch, nil
}

func (sessionRepoStub) GetHistory(ctx context.Context, sessionID string) ([]models.SessionHistoryEntry, error) {
	return nil, nil
}

func (sessionRepoStub) GetSessionAggregate(ctx context.Context, sessionID string) (*models.SessionAggregate, error) {
	return nil, nil
}

func (sessionRepoStub) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, repo *patientRepoStub) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	patientSvc := service.NewPatientService(repo, validator.New(), zap.NewNop())
	sessionSvc := service.NewSessionService(sessionRepoStub{}, nil, store, signer, zap.NewNop())
	exportSvc := service.NewExportService(sessionRepoStub{}, nil, store, signer, service.ExportServiceConfig{}, zap.NewNop())
	forms := service.NewFormManager(service.FormServiceConfig{})
	t.Cleanup(forms.CloseAll)

	r := gin.New()
	RegisterRoutes(r, "/api/v1", Handlers{
		Patients: NewPatientHandler(patientSvc),
		Forms:    NewFormHandler(forms),
		Sessions: NewSessionHandler(sessionSvc, "/api/v1"),
		Exports:  NewExportHandler(exportSvc),
	})
	return r
}

func TestPatientRoutesList(t *testing.T) {
	repo := &patientRepoStub{patients: map[string]models.Patient{
		"p-1": {ID: "p-1", DisplayName: "Ana"},
	}}
	r := newTestRouter(t, repo)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Data)
}

func TestPatientRoutesGetNotFound(t *testing.T) {
	r := newTestRouter(t, &patientRepoStub{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/patients/missing", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatientRoutesCreate(t *testing.T) {
	repo := &patientRepoStub{}
	r := newTestRouter(t, repo)

	body, _ := json.Marshal(map[string]string{"display_name": "Ana Torres"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/patients", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, repo.patients, 1)
}

func TestPatientRoutesCreateInvalid(t *testing.T) {
	r := newTestRouter(t, &patientRepoStub{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/patients", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFormRoutesRequireOpenForm(t *testing.T) {
	r := newTestRouter(t, &patientRepoStub{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/patients/p-1/form", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportRoutesRejectBadPayload(t *testing.T) {
	r := newTestRouter(t, &patientRepoStub{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/exports", bytes.NewReader([]byte(`{"format":"pdf"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
