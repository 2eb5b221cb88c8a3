package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ficha-clinica-api/internal/service"
	appErrors "github.com/noah-isme/ficha-clinica-api/pkg/errors"
	"github.com/noah-isme/ficha-clinica-api/pkg/response"
)

// PatientHandler exposes patient endpoints.
type PatientHandler struct {
	patients *service.PatientService
}

// NewPatientHandler constructs PatientHandler.
func NewPatientHandler(patients *service.PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

// List returns every patient.
func (h *PatientHandler) List(c *gin.Context) {
	patients, err := h.patients.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patients)
}

// Get returns one patient.
func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.patients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient)
}

// Create registers a patient.
func (h *PatientHandler) Create(c *gin.Context) {
	var req service.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	patient, err := h.patients.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, patient)
}

// Update replaces a patient's demographic fields.
func (h *PatientHandler) Update(c *gin.Context) {
	var req service.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	patient, err := h.patients.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient)
}

// Delete removes a patient and everything under it.
func (h *PatientHandler) Delete(c *gin.Context) {
	if err := h.patients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Watch streams the patient list as server-sent events until the client
// disconnects.
func (h *PatientHandler) Watch(c *gin.Context) {
	stream, err := h.patients.Observe(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Stream(func(w io.Writer) bool {
		patients, ok := <-stream
		if !ok {
			return false
		}
		c.SSEvent("patients", patients)
		return true
	})
}
