package dto

import "github.com/noah-isme/ficha-clinica-api/internal/models"

// ExportRequest asks for a rendered session record.
type ExportRequest struct {
	SessionID string              `json:"session_id" binding:"required"`
	Format    models.ExportFormat `json:"format" binding:"required"`
}

// AttachmentLinkResponse carries a signed download token.
type AttachmentLinkResponse struct {
	AttachmentID string `json:"attachment_id"`
	Token        string `json:"token"`
	URL          string `json:"url"`
}
