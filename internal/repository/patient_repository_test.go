package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
)

func newPatientMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPatientRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newPatientMock(t)
	defer cleanup()
	repo := NewPatientRepository(db, nil)

	mock.ExpectExec("INSERT INTO patients").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := models.NewInstant(time.Now())
	err := repo.Upsert(context.Background(), &models.Patient{
		ID:          "p-1",
		DisplayName: "Ada",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepositoryGetByIDRoundTrip(t *testing.T) {
	db, mock, cleanup := newPatientMock(t)
	defer cleanup()
	repo := NewPatientRepository(db, nil)

	columns := []string{"id", "display_name", "first_name", "last_name", "dni", "gender", "birth_date", "phone", "address", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT (.+) FROM patients WHERE id = \\$1").
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("p-1", "Ada", "Ada", "Lovelace", nil, "F", nil, nil, nil,
				"2024-05-12T09:30:00Z", "2024-05-12T09:30:00Z"))

	patient, err := repo.GetByID(context.Background(), "p-1")
	require.NoError(t, err)
	require.NotNil(t, patient)
	assert.Equal(t, "Ada", patient.DisplayName)
	assert.Equal(t, "Lovelace", *patient.LastName)
	// No birth date means unknown age, never a default value.
	assert.Nil(t, patient.BirthDate)
	assert.Equal(t, 2024, patient.CreatedAt.Year())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepositoryGetByIDMissing(t *testing.T) {
	db, mock, cleanup := newPatientMock(t)
	defer cleanup()
	repo := NewPatientRepository(db, nil)

	mock.ExpectQuery("SELECT (.+) FROM patients WHERE id = \\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	patient, err := repo.GetByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, patient)
}

func TestPatientRepositoryObserveAll(t *testing.T) {
	db, mock, cleanup := newPatientMock(t)
	defer cleanup()
	notifier := NewNotifier()
	repo := NewPatientRepository(db, notifier)

	columns := []string{"id", "display_name", "first_name", "last_name", "dni", "gender", "birth_date", "phone", "address", "created_at", "updated_at"}
	listRows := func(names ...string) *sqlmock.Rows {
		rows := sqlmock.NewRows(columns)
		for _, name := range names {
			rows.AddRow(name, name, nil, nil, nil, nil, nil, nil, nil,
				"2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z")
		}
		return rows
	}

	mock.ExpectQuery("SELECT (.+) FROM patients ORDER BY display_name ASC").WillReturnRows(listRows("Ada"))
	mock.ExpectQuery("SELECT (.+) FROM patients ORDER BY display_name ASC").WillReturnRows(listRows("Ada", "Grace"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := repo.ObserveAll(ctx)
	require.NoError(t, err)

	first := <-stream
	require.Len(t, first, 1)

	notifier.Publish(topicPatients)

	select {
	case second := <-stream:
		assert.Len(t, second, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a refreshed patient list")
	}

	cancel()
	for range stream {
	}
}
