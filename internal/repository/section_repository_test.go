package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
)

func TestUpsertProblemChainsReplacesAllInOneTransaction(t *testing.T) {
	repo, mock, cleanup := newSessionMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM problem_chain_entries WHERE session_id = \\$1").
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO problem_chain_entries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO problem_chain_entries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entries := []models.ProblemChainEntry{
		{SessionID: "s-1", Label: models.ChainLabelP1},
		{SessionID: "s-1", Label: models.ChainLabelP2},
	}
	require.NoError(t, repo.UpsertProblemChains(context.Background(), entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEmptyListIsANoOp(t *testing.T) {
	repo, mock, cleanup := newSessionMock(t)
	defer cleanup()

	// No database expectations: an empty list must not touch storage.
	require.NoError(t, repo.UpsertProblemChains(context.Background(), nil))
	require.NoError(t, repo.UpsertTreatmentObjectives(context.Background(), nil))
	require.NoError(t, repo.UpsertProblemAnalyses(context.Background(), nil))
	require.NoError(t, repo.UpsertEvolutionNotes(context.Background(), []models.EvolutionNote{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	repo, mock, cleanup := newSessionMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM problem_analyses WHERE session_id = \\$1").
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO problem_analyses").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.UpsertProblemAnalyses(context.Background(), []models.ProblemAnalysis{
		{SessionID: "s-1", ProblemNumber: 1},
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDysregulationBooleanRoundTrip(t *testing.T) {
	repo, mock, cleanup := newSessionMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO dysregulation_areas").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertDysregulation(context.Background(), &models.DysregulationAreas{
		SessionID:     "s-1",
		Bsl23Aplicado: true,
	}))

	// Stored as the integer 1 and decoded back to true.
	mock.ExpectQuery("SELECT (.+) FROM dysregulation_areas WHERE session_id = \\$1").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "emocional", "conductual", "interpersonal", "del_yo", "cognitiva", "resumen", "bsl23_aplicado"}).
			AddRow("s-1", nil, nil, nil, nil, nil, nil, int64(1)))

	areas, err := repo.GetDysregulation(context.Background(), "s-1")
	require.NoError(t, err)
	require.NotNil(t, areas)
	assert.True(t, bool(areas.Bsl23Aplicado))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneToOneSectionsReturnNilWhenUnset(t *testing.T) {
	repo, mock, cleanup := newSessionMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT session_id, metas FROM problem_goals WHERE session_id = \\$1").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "metas"}))

	goals, err := repo.GetProblemGoals(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Nil(t, goals)
}

func TestTreatmentObjectivesRoundTrip(t *testing.T) {
	repo, mock, cleanup := newSessionMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM treatment_objectives WHERE session_id = \\$1").
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO treatment_objectives").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	value := "reducir autolesiones"
	require.NoError(t, repo.UpsertTreatmentObjectives(context.Background(), []models.TreatmentObjective{
		{SessionID: "s-1", Stage: models.StageEtapa1, Field: "conductasAtentanVida", Value: &value},
	}))

	// The enum is stored by exact member name.
	mock.ExpectQuery("SELECT (.+) FROM treatment_objectives WHERE session_id = \\$1").
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "stage", "field", "value"}).
			AddRow("s-1", "ETAPA_1", "conductasAtentanVida", value))

	objectives, err := repo.GetTreatmentObjectives(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, objectives, 1)
	assert.Equal(t, models.StageEtapa1, objectives[0].Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
