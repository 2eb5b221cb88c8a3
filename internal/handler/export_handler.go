package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ficha-clinica-api/internal/dto"
	"github.com/noah-isme/ficha-clinica-api/internal/models"
	"github.com/noah-isme/ficha-clinica-api/internal/service"
	appErrors "github.com/noah-isme/ficha-clinica-api/pkg/errors"
	"github.com/noah-isme/ficha-clinica-api/pkg/response"
)

// ExportHandler exposes export job endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Request queues an export job for a session record.
func (h *ExportHandler) Request(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.exports.Request(c.Request.Context(), req.SessionID, req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status returns the state of one export job.
func (h *ExportHandler) Status(c *gin.Context) {
	job, err := h.exports.Get(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// Download serves the rendered file behind a signed token.
func (h *ExportHandler) Download(c *gin.Context) {
	file, job, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := "application/octet-stream"
	filename := job.ID + "." + string(job.Format)
	switch job.Format {
	case models.ExportFormatPDF:
		contentType = "application/pdf"
	case models.ExportFormatCSV:
		contentType = "text/csv"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		c.Abort()
	}
}
