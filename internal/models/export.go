package models

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatPDF ExportFormat = "pdf"
	ExportFormatCSV ExportFormat = "csv"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatPDF || f == ExportFormatCSV
}

// Export job lifecycle states.
const (
	ExportStatusPending    = "pending"
	ExportStatusProcessing = "processing"
	ExportStatusCompleted  = "completed"
	ExportStatusFailed     = "failed"
)

// ExportJob tracks one requested session-record export from request to
// downloadable file.
type ExportJob struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"session_id"`
	Format       ExportFormat `json:"format"`
	Status       string       `json:"status"`
	RelativePath string       `json:"-"`
	Token        string       `json:"token,omitempty"`
	URL          string       `json:"url,omitempty"`
	ExpiresAt    *Instant     `json:"expires_at,omitempty"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    Instant      `json:"created_at"`
	UpdatedAt    Instant      `json:"updated_at"`
}
