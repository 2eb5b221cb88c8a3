package models

// Attachment is a file linked to a session. Records are created only by
// the ingestion pipeline and never mutated afterwards.
type Attachment struct {
	ID          string  `db:"id" json:"id"`
	SessionID   string  `db:"session_id" json:"session_id"`
	DisplayName string  `db:"display_name" json:"display_name"`
	StoredName  string  `db:"stored_name" json:"stored_name"`
	MimeType    *string `db:"mime_type" json:"mime_type,omitempty"`
	SizeBytes   *int64  `db:"size_bytes" json:"size_bytes,omitempty"`
	Sha256      *string `db:"sha256" json:"sha256,omitempty"`
	CreatedAt   Instant `db:"created_at" json:"created_at"`
}
