package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
)

// PatientRepository manages persistence for patient records.
type PatientRepository struct {
	db       *sqlx.DB
	notifier *Notifier
}

// NewPatientRepository constructs a PatientRepository.
func NewPatientRepository(db *sqlx.DB, notifier *Notifier) *PatientRepository {
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &PatientRepository{db: db, notifier: notifier}
}

const patientColumns = `id, display_name, first_name, last_name, dni, gender, birth_date, phone, address, created_at, updated_at`

// Upsert inserts or fully replaces a patient keyed by id.
func (r *PatientRepository) Upsert(ctx context.Context, patient *models.Patient) error {
	const query = `INSERT INTO patients (id, display_name, first_name, last_name, dni, gender, birth_date, phone, address, created_at, updated_at)
        VALUES (:id, :display_name, :first_name, :last_name, :dni, :gender, :birth_date, :phone, :address, :created_at, :updated_at)
        ON CONFLICT (id) DO UPDATE SET
            display_name = EXCLUDED.display_name,
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            dni = EXCLUDED.dni,
            gender = EXCLUDED.gender,
            birth_date = EXCLUDED.birth_date,
            phone = EXCLUDED.phone,
            address = EXCLUDED.address,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("upsert patient: %w", err)
	}
	r.notifier.Publish(topicPatients)
	return nil
}

// GetByID fetches a patient, returning nil when no row matches.
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &patient, nil
}

// GetAll returns every patient ordered by display name.
func (r *PatientRepository) GetAll(ctx context.Context) ([]models.Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients ORDER BY display_name ASC`, patientColumns)
	patients := []models.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

// FindByDisplayName returns the first patient with the exact display name,
// or nil when none matches.
func (r *PatientRepository) FindByDisplayName(ctx context.Context, name string) (*models.Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE display_name = $1 ORDER BY created_at ASC LIMIT 1`, patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find patient by name: %w", err)
	}
	return &patient, nil
}

// Delete removes a patient row. Session data is removed by the caller
// through explicit session repository calls before this is invoked.
func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	r.notifier.Publish(topicPatients)
	return nil
}

// ObserveAll emits the full patient list immediately and again after every
// write that could change it. The channel closes when ctx is done. Slow
// consumers see the latest snapshot, not every intermediate one.
func (r *PatientRepository) ObserveAll(ctx context.Context) (<-chan []models.Patient, error) {
	initial, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []models.Patient, 1)
	out <- initial
	id, tick := r.notifier.Subscribe(topicPatients)

	go func() {
		defer close(out)
		defer r.notifier.Unsubscribe(topicPatients, id)
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				list, err := r.GetAll(ctx)
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
