package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
)

type attachmentStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Stat(filename string) (os.FileInfo, error)
	Open(filename string) (*os.File, error)
}

// AttachmentService copies source files into per-patient, per-session
// storage, hashing content on the way in. It never touches the database;
// the caller persists the returned records.
type AttachmentService struct {
	storage attachmentStorage
	logger  *zap.Logger
	maxSize int64
	clock   func() models.Instant
	newID   func() string
}

// NewAttachmentService constructs the ingestion pipeline. maxSize of zero
// disables the size limit.
func NewAttachmentService(storage attachmentStorage, maxSize int64, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{
		storage: storage,
		logger:  logger,
		maxSize: maxSize,
		clock:   func() models.Instant { return models.NewInstant(time.Now()) },
		newID:   func() string { return uuid.NewString() },
	}
}

// Ingest processes each source path in order. Files that are missing,
// unreadable or over the size limit are skipped; the returned list holds
// one record per stored file. Stored names are `{uuid}_{originalName}`
// under `{patientID}/{sessionID}/`.
func (s *AttachmentService) Ingest(ctx context.Context, patientID, sessionID string, sources []string) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(sources))
	for _, source := range sources {
		select {
		case <-ctx.Done():
			return attachments, ctx.Err()
		default:
		}
		attachment, ok := s.ingestOne(patientID, sessionID, source)
		if !ok {
			continue
		}
		attachments = append(attachments, *attachment)
	}
	return attachments, nil
}

func (s *AttachmentService) ingestOne(patientID, sessionID, source string) (*models.Attachment, bool) {
	file, err := os.Open(source)
	if err != nil {
		s.logger.Warn("skipping attachment source", zap.String("source", source), zap.Error(err))
		return nil, false
	}
	defer file.Close() //nolint:errcheck

	if s.maxSize > 0 {
		if info, err := file.Stat(); err == nil && info.Size() > s.maxSize {
			s.logger.Warn("skipping oversized attachment",
				zap.String("source", source),
				zap.Int64("size_bytes", info.Size()))
			return nil, false
		}
	}

	displayName := filepath.Base(source)
	storedName := s.newID() + "_" + displayName
	target := filepath.Join(patientID, sessionID, storedName)

	hash := sha256.New()
	if _, err := s.storage.SaveStream(target, io.TeeReader(file, hash)); err != nil {
		s.logger.Warn("skipping attachment, store failed", zap.String("source", source), zap.Error(err))
		return nil, false
	}

	attachment := &models.Attachment{
		ID:          s.newID(),
		SessionID:   sessionID,
		DisplayName: displayName,
		StoredName:  storedName,
		CreatedAt:   s.clock(),
	}

	digest := hex.EncodeToString(hash.Sum(nil))
	attachment.Sha256 = &digest

	if info, err := s.storage.Stat(target); err == nil {
		size := info.Size()
		attachment.SizeBytes = &size
	}
	attachment.MimeType = s.detectMime(target, displayName)
	return attachment, true
}

// detectMime tries the filename extension first, then sniffs the stored
// content. Nil when neither yields a type.
func (s *AttachmentService) detectMime(target, displayName string) *string {
	if ext := filepath.Ext(displayName); ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return &mt
		}
	}
	file, err := s.storage.Open(target)
	if err != nil {
		return nil
	}
	defer file.Close() //nolint:errcheck
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if n == 0 || (err != nil && err != io.EOF) {
		return nil
	}
	mt := http.DetectContentType(buf[:n])
	if mt == "" {
		return nil
	}
	return &mt
}
