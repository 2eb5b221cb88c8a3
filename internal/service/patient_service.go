package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
	appErrors "github.com/noah-isme/ficha-clinica-api/pkg/errors"
)

type patientRepository interface {
	Upsert(ctx context.Context, patient *models.Patient) error
	GetByID(ctx context.Context, id string) (*models.Patient, error)
	GetAll(ctx context.Context) ([]models.Patient, error)
	FindByDisplayName(ctx context.Context, name string) (*models.Patient, error)
	Delete(ctx context.Context, id string) error
	ObserveAll(ctx context.Context) (<-chan []models.Patient, error)
}

// CreatePatientRequest holds payload for creating patients.
type CreatePatientRequest struct {
	DisplayName string  `json:"display_name" validate:"required"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DNI         *string `json:"dni" validate:"omitempty,alphanum,min=7,max=10"`
	Gender      *string `json:"gender"`
	BirthDate   *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
}

// UpdatePatientRequest holds payload for updating patients.
type UpdatePatientRequest struct {
	DisplayName string  `json:"display_name" validate:"required"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DNI         *string `json:"dni" validate:"omitempty,alphanum,min=7,max=10"`
	Gender      *string `json:"gender"`
	BirthDate   *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
}

// PatientService handles patient use-cases outside an open form.
type PatientService struct {
	repo      patientRepository
	validator *validator.Validate
	logger    *zap.Logger
	clock     func() time.Time
	newID     func() string
}

// NewPatientService constructs the patient service.
func NewPatientService(repo patientRepository, validate *validator.Validate, logger *zap.Logger) *PatientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		clock:     time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// List returns every patient ordered by display name.
func (s *PatientService) List(ctx context.Context) ([]models.Patient, error) {
	patients, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patients")
	}
	return patients, nil
}

// Get returns one patient by id.
func (s *PatientService) Get(ctx context.Context, id string) (*models.Patient, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	if patient == nil {
		return nil, appErrors.ErrPatientNotFound
	}
	return patient, nil
}

// Create validates and stores a new patient.
func (s *PatientService) Create(ctx context.Context, req CreatePatientRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	now := models.NewInstant(s.clock())
	patient := &models.Patient{
		ID:          s.newID(),
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DNI:         req.DNI,
		Gender:      req.Gender,
		BirthDate:   req.BirthDate,
		Phone:       req.Phone,
		Address:     req.Address,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create patient")
	}
	return patient, nil
}

// Update validates and replaces a patient's demographic fields.
func (s *PatientService) Update(ctx context.Context, id string, req UpdatePatientRequest) (*models.Patient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	if patient == nil {
		return nil, appErrors.ErrPatientNotFound
	}
	patient.DisplayName = req.DisplayName
	patient.FirstName = req.FirstName
	patient.LastName = req.LastName
	patient.DNI = req.DNI
	patient.Gender = req.Gender
	patient.BirthDate = req.BirthDate
	patient.Phone = req.Phone
	patient.Address = req.Address
	patient.UpdatedAt = models.NewInstant(s.clock())
	if err := s.repo.Upsert(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update patient")
	}
	return patient, nil
}

// Delete removes a patient. Sessions and their sub-sections go with it
// through the schema's cascading foreign keys.
func (s *PatientService) Delete(ctx context.Context, id string) error {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	if patient == nil {
		return appErrors.ErrPatientNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete patient")
	}
	return nil
}

// Observe streams the full patient list on every change. The channel
// closes when ctx is done.
func (s *PatientService) Observe(ctx context.Context) (<-chan []models.Patient, error) {
	stream, err := s.repo.ObserveAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to observe patients")
	}
	return stream, nil
}
