package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
	appErrors "github.com/noah-isme/ficha-clinica-api/pkg/errors"
	"github.com/noah-isme/ficha-clinica-api/pkg/storage"
)

type sessionRepository interface {
	CreateSession(ctx context.Context, patientID string) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, patientID string) ([]models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	ObserveSessions(ctx context.Context, patientID string) (<-chan []models.Session, error)
	GetHistory(ctx context.Context, sessionID string) ([]models.SessionHistoryEntry, error)
	GetSessionAggregate(ctx context.Context, sessionID string) (*models.SessionAggregate, error)
	GetAttachment(ctx context.Context, id string) (*models.Attachment, error)
}

type sessionCache interface {
	aggregateCache
	Invalidate(ctx context.Context, sessionID string)
}

type attachmentOpener interface {
	Open(filename string) (*os.File, error)
}

// SessionService serves session reads and lifecycle operations outside an
// open form.
type SessionService struct {
	repo        sessionRepository
	cache       sessionCache
	attachments attachmentOpener
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
}

// NewSessionService constructs the session service. Cache and signer are
// optional; without a signer attachment download links are disabled.
func NewSessionService(repo sessionRepository, cache sessionCache, attachments attachmentOpener, signer *storage.SignedURLSigner, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, cache: cache, attachments: attachments, signer: signer, logger: logger}
}

// Create opens a new session for the patient with the next code.
func (s *SessionService) Create(ctx context.Context, patientID string) (*models.Session, error) {
	session, err := s.repo.CreateSession(ctx, patientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create session")
	}
	return session, nil
}

// List returns the patient's sessions ordered by code.
func (s *SessionService) List(ctx context.Context, patientID string) ([]models.Session, error) {
	sessions, err := s.repo.ListSessions(ctx, patientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Get returns one session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil, appErrors.ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session and drops its cached aggregate.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return appErrors.ErrSessionNotFound
	}
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete session")
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}

// Aggregate returns the full session record, served from cache when warm.
func (s *SessionService) Aggregate(ctx context.Context, id string) (*models.SessionAggregate, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetAggregate(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}
	aggregate, err := s.repo.GetSessionAggregate(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session record")
	}
	if aggregate == nil {
		return nil, appErrors.ErrSessionNotFound
	}
	if s.cache != nil {
		if err := s.cache.SetAggregate(ctx, aggregate); err != nil {
			s.logger.Warn("aggregate cache write failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	return aggregate, nil
}

// History returns the session's append-only change log.
func (s *SessionService) History(ctx context.Context, sessionID string) ([]models.SessionHistoryEntry, error) {
	entries, err := s.repo.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session history")
	}
	return entries, nil
}

// Observe streams a patient's session list on every change.
func (s *SessionService) Observe(ctx context.Context, patientID string) (<-chan []models.Session, error) {
	stream, err := s.repo.ObserveSessions(ctx, patientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to observe sessions")
	}
	return stream, nil
}

// AttachmentURL issues a signed download token for a stored attachment.
func (s *SessionService) AttachmentURL(ctx context.Context, attachmentID string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "attachment downloads are not configured")
	}
	attachment, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachment")
	}
	if attachment == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	session, err := s.repo.GetSession(ctx, attachment.SessionID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return "", appErrors.ErrSessionNotFound
	}
	relPath := filepath.Join(session.PatientID, session.ID, attachment.StoredName)
	token, _, err := s.signer.Generate(attachment.ID, relPath)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign attachment link")
	}
	return token, nil
}

// OpenAttachment resolves a signed token to the stored file and its
// metadata record.
func (s *SessionService) OpenAttachment(ctx context.Context, token string) (*os.File, *models.Attachment, error) {
	if s.signer == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "attachment downloads are not configured")
	}
	attachmentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attachment token")
	}
	attachment, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachment")
	}
	if attachment == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	file, err := s.attachments.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "stored file is missing")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open stored file")
	}
	return file, attachment, nil
}
