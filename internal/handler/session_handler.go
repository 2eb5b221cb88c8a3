package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ficha-clinica-api/internal/dto"
	"github.com/noah-isme/ficha-clinica-api/internal/service"
	"github.com/noah-isme/ficha-clinica-api/pkg/response"
)

// SessionHandler exposes session reads and lifecycle endpoints.
type SessionHandler struct {
	sessions  *service.SessionService
	apiPrefix string
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *service.SessionService, apiPrefix string) *SessionHandler {
	return &SessionHandler{sessions: sessions, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// Create opens a new session for the patient.
func (h *SessionHandler) Create(c *gin.Context) {
	session, err := h.sessions.Create(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// ListByPatient returns the patient's sessions ordered by code.
func (h *SessionHandler) ListByPatient(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions)
}

// Get returns one session row.
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Delete removes a session and its sub-sections.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("sessionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Aggregate returns the full session record.
func (h *SessionHandler) Aggregate(c *gin.Context) {
	aggregate, err := h.sessions.Aggregate(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aggregate)
}

// History returns the session's change log.
func (h *SessionHandler) History(c *gin.Context) {
	entries, err := h.sessions.History(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// Watch streams the patient's session list as server-sent events.
func (h *SessionHandler) Watch(c *gin.Context) {
	stream, err := h.sessions.Observe(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Stream(func(w io.Writer) bool {
		sessions, ok := <-stream
		if !ok {
			return false
		}
		c.SSEvent("sessions", sessions)
		return true
	})
}

// AttachmentLink issues a signed download link for an attachment.
func (h *SessionHandler) AttachmentLink(c *gin.Context) {
	attachmentID := c.Param("attachmentId")
	token, err := h.sessions.AttachmentURL(c.Request.Context(), attachmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.AttachmentLinkResponse{
		AttachmentID: attachmentID,
		Token:        token,
		URL:          h.apiPrefix + "/attachments/download/" + token,
	})
}

// DownloadAttachment serves the stored file behind a signed token.
func (h *SessionHandler) DownloadAttachment(c *gin.Context) {
	file, attachment, err := h.sessions.OpenAttachment(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := "application/octet-stream"
	if attachment.MimeType != nil && *attachment.MimeType != "" {
		contentType = *attachment.MimeType
	}
	c.Header("Content-Disposition", `attachment; filename="`+attachment.DisplayName+`"`)
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		c.Abort()
	}
}
