package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
)

// SessionRepository manages persistence for sessions and every
// sub-section of the clinical record.
type SessionRepository struct {
	db       *sqlx.DB
	notifier *Notifier
	clock    Clock
	newID    IDGenerator
}

// Clock supplies the current instant for createdAt/updatedAt stamping.
type Clock func() models.Instant

// DefaultClock stamps wall-clock time in UTC.
func DefaultClock() models.Instant {
	return models.NewInstant(time.Now())
}

// IDGenerator supplies globally unique string identifiers.
type IDGenerator func() string

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB, notifier *Notifier, clock Clock, newID IDGenerator) *SessionRepository {
	if notifier == nil {
		notifier = NewNotifier()
	}
	if clock == nil {
		clock = DefaultClock
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &SessionRepository{db: db, notifier: notifier, clock: clock, newID: newID}
}

const sessionColumns = `id, patient_id, session_code, session_date, first_attention_date, motivo_principal, otros_motivos, family_notes, created_at, updated_at`

// CreateSession inserts a new empty session for the patient, assigning
// session_code = max(existing)+1, and returns the freshly read row so
// repository and caller agree on the stored representation.
func (r *SessionRepository) CreateSession(ctx context.Context, patientID string) (*models.Session, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create session: %w", err)
	}

	var code int
	const nextCodeQuery = `SELECT COALESCE(MAX(session_code), 0) + 1 FROM sessions WHERE patient_id = $1`
	if err := tx.GetContext(ctx, &code, nextCodeQuery, patientID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("compute next session code: %w", err)
	}

	now := r.clock()
	session := models.Session{
		ID:          r.newID(),
		PatientID:   patientID,
		SessionCode: code,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	const insertQuery = `INSERT INTO sessions (id, patient_id, session_code, created_at, updated_at)
        VALUES (:id, :patient_id, :session_code, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, session); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("insert session: %w", err)
	}

	var stored models.Session
	readBack := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	if err := tx.GetContext(ctx, &stored, readBack, session.ID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("read back session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create session: %w", err)
	}
	r.notifier.Publish(topicSessions(patientID))
	return &stored, nil
}

// GetSession fetches a session, returning nil when no row matches.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

// ListSessions returns the patient's sessions ordered by session code.
func (r *SessionRepository) ListSessions(ctx context.Context, patientID string) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE patient_id = $1 ORDER BY session_code ASC`, sessionColumns)
	sessions := []models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, patientID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSession replaces the full session row keyed by id. The caller is
// responsible for stamping updatedAt.
func (r *SessionRepository) UpdateSession(ctx context.Context, session *models.Session) error {
	const query = `UPDATE sessions SET session_date = :session_date, first_attention_date = :first_attention_date,
        motivo_principal = :motivo_principal, otros_motivos = :otros_motivos, family_notes = :family_notes,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	r.notifier.Publish(topicSessions(session.PatientID))
	return nil
}

// DeleteSession removes the session row; sub-section rows go with it via
// the schema's referential actions.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	session, err := r.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if session != nil {
		r.notifier.Publish(topicSessions(session.PatientID))
	}
	return nil
}

// ObserveSessions emits the patient's session list immediately and after
// every session write for that patient. The channel closes when ctx is done.
func (r *SessionRepository) ObserveSessions(ctx context.Context, patientID string) (<-chan []models.Session, error) {
	initial, err := r.ListSessions(ctx, patientID)
	if err != nil {
		return nil, err
	}

	out := make(chan []models.Session, 1)
	out <- initial
	topic := topicSessions(patientID)
	id, tick := r.notifier.Subscribe(topic)

	go func() {
		defer close(out)
		defer r.notifier.Unsubscribe(topic, id)
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				list, err := r.ListSessions(ctx, patientID)
				if err != nil {
					continue
				}
				select {
				case out <- list:
				default:
					select {
					case <-out:
					default:
					}
					out <- list
				}
			}
		}
	}()

	return out, nil
}

// AddAttachment inserts an attachment record. The id is caller-supplied;
// records are immutable after creation.
func (r *SessionRepository) AddAttachment(ctx context.Context, attachment *models.Attachment) error {
	const query = `INSERT INTO attachments (id, session_id, display_name, stored_name, mime_type, size_bytes, sha256, created_at)
        VALUES (:id, :session_id, :display_name, :stored_name, :mime_type, :size_bytes, :sha256, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attachment); err != nil {
		return fmt.Errorf("add attachment: %w", err)
	}
	return nil
}

// GetAttachments lists a session's attachments oldest first.
func (r *SessionRepository) GetAttachments(ctx context.Context, sessionID string) ([]models.Attachment, error) {
	const query = `SELECT id, session_id, display_name, stored_name, mime_type, size_bytes, sha256, created_at
        FROM attachments WHERE session_id = $1 ORDER BY created_at ASC`
	attachments := []models.Attachment{}
	if err := r.db.SelectContext(ctx, &attachments, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

// GetAttachment fetches a single attachment, nil when absent.
func (r *SessionRepository) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	const query = `SELECT id, session_id, display_name, stored_name, mime_type, size_bytes, sha256, created_at
        FROM attachments WHERE id = $1`
	var attachment models.Attachment
	if err := r.db.GetContext(ctx, &attachment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &attachment, nil
}

// RemoveAttachment deletes an attachment record by id.
func (r *SessionRepository) RemoveAttachment(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

// AppendHistory inserts an append-only audit entry. No update or delete
// operation exists for history.
func (r *SessionRepository) AppendHistory(ctx context.Context, entry *models.SessionHistoryEntry) error {
	const query = `INSERT INTO session_history (session_id, change_type, changed_at, payload)
        VALUES (:session_id, :change_type, :changed_at, :payload)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// GetHistory lists a session's audit entries oldest first.
func (r *SessionRepository) GetHistory(ctx context.Context, sessionID string) ([]models.SessionHistoryEntry, error) {
	const query = `SELECT id, session_id, change_type, changed_at, payload
        FROM session_history WHERE session_id = $1 ORDER BY id ASC`
	entries := []models.SessionHistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, sessionID); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// GetSessionAggregate pulls the full clinical record for one session,
// for export and aggregate read consumers.
func (r *SessionRepository) GetSessionAggregate(ctx context.Context, sessionID string) (*models.SessionAggregate, error) {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	aggregate := &models.SessionAggregate{Session: *session}

	var patient models.Patient
	patientQuery := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientColumns)
	if err := r.db.GetContext(ctx, &patient, patientQuery, session.PatientID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get aggregate patient: %w", err)
		}
	} else {
		aggregate.Patient = &patient
	}

	if aggregate.ProblemChains, err = r.GetProblemChains(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.ProblemGoals, err = r.GetProblemGoals(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.Psychometrics, err = r.GetPsychometrics(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.Dysregulation, err = r.GetDysregulation(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.Biosocial, err = r.GetBiosocial(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.TreatmentObjectives, err = r.GetTreatmentObjectives(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.ProblemAnalyses, err = r.GetProblemAnalyses(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.EvolutionNotes, err = r.GetEvolutionNotes(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.Tasks, err = r.GetTasks(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.Attachments, err = r.GetAttachments(ctx, sessionID); err != nil {
		return nil, err
	}
	if aggregate.History, err = r.GetHistory(ctx, sessionID); err != nil {
		return nil, err
	}
	return aggregate, nil
}
