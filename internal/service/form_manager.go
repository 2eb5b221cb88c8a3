package service

import (
	"sync"

	"go.uber.org/zap"
)

// FormManager owns at most one live form per patient. Handlers open a
// form, drive its mutators and close it when the record is done.
type FormManager struct {
	deps   FormServiceConfig
	logger *zap.Logger

	mu    sync.Mutex
	forms map[string]*FormService
}

// NewFormManager constructs the registry. The config is used as a
// template for every form it opens.
func NewFormManager(deps FormServiceConfig) *FormManager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormManager{deps: deps, logger: logger, forms: make(map[string]*FormService)}
}

// Open returns the live form for the patient, bootstrapping one when none
// is open yet.
func (m *FormManager) Open(patientID string) *FormService {
	m.mu.Lock()
	defer m.mu.Unlock()
	if form, ok := m.forms[patientID]; ok {
		return form
	}
	form := NewFormService(m.deps)
	form.LoadPatientByID(patientID)
	m.forms[patientID] = form
	m.logger.Debug("form opened", zap.String("patient_id", patientID))
	return form
}

// Get returns the live form for the patient, or nil when none is open.
func (m *FormManager) Get(patientID string) *FormService {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forms[patientID]
}

// Close disposes and forgets the patient's form. Closing an unopened
// form is a no-op.
func (m *FormManager) Close(patientID string) {
	m.mu.Lock()
	form := m.forms[patientID]
	delete(m.forms, patientID)
	m.mu.Unlock()
	if form != nil {
		form.Dispose()
		m.logger.Debug("form closed", zap.String("patient_id", patientID))
	}
}

// CloseAll disposes every live form; called on shutdown.
func (m *FormManager) CloseAll() {
	m.mu.Lock()
	forms := make([]*FormService, 0, len(m.forms))
	for _, form := range m.forms {
		forms = append(forms, form)
	}
	m.forms = make(map[string]*FormService)
	m.mu.Unlock()
	for _, form := range forms {
		form.Dispose()
	}
}
