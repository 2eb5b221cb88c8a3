package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ficha-clinica-api/internal/models"
)

// One-to-one sections use a single insert-or-replace keyed by session_id.
// List-valued sections use replace-all semantics: the existing rows for
// the session are deleted and the incoming list inserted inside one
// transaction. An empty incoming list is a strict no-op so that a
// partially initialised caller can never wipe stored rows.

// UpsertProblemGoals stores the goals section.
func (r *SessionRepository) UpsertProblemGoals(ctx context.Context, goals *models.ProblemGoals) error {
	const query = `INSERT INTO problem_goals (session_id, metas) VALUES (:session_id, :metas)
        ON CONFLICT (session_id) DO UPDATE SET metas = EXCLUDED.metas`
	if _, err := r.db.NamedExecContext(ctx, query, goals); err != nil {
		return fmt.Errorf("upsert problem goals: %w", err)
	}
	return nil
}

// GetProblemGoals fetches the goals section, nil when absent.
func (r *SessionRepository) GetProblemGoals(ctx context.Context, sessionID string) (*models.ProblemGoals, error) {
	var goals models.ProblemGoals
	if err := r.db.GetContext(ctx, &goals, `SELECT session_id, metas FROM problem_goals WHERE session_id = $1`, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get problem goals: %w", err)
	}
	return &goals, nil
}

// UpsertPsychometrics stores the psychometric data section.
func (r *SessionRepository) UpsertPsychometrics(ctx context.Context, data *models.PsychometricData) error {
	const query = `INSERT INTO psychometric_data (session_id, bsl23, ders, bdi2, stai_estado, stai_rasgo, ipde_screening, otros, observaciones)
        VALUES (:session_id, :bsl23, :ders, :bdi2, :stai_estado, :stai_rasgo, :ipde_screening, :otros, :observaciones)
        ON CONFLICT (session_id) DO UPDATE SET
            bsl23 = EXCLUDED.bsl23, ders = EXCLUDED.ders, bdi2 = EXCLUDED.bdi2,
            stai_estado = EXCLUDED.stai_estado, stai_rasgo = EXCLUDED.stai_rasgo,
            ipde_screening = EXCLUDED.ipde_screening, otros = EXCLUDED.otros,
            observaciones = EXCLUDED.observaciones`
	if _, err := r.db.NamedExecContext(ctx, query, data); err != nil {
		return fmt.Errorf("upsert psychometrics: %w", err)
	}
	return nil
}

// GetPsychometrics fetches the psychometric data section, nil when absent.
func (r *SessionRepository) GetPsychometrics(ctx context.Context, sessionID string) (*models.PsychometricData, error) {
	const query = `SELECT session_id, bsl23, ders, bdi2, stai_estado, stai_rasgo, ipde_screening, otros, observaciones
        FROM psychometric_data WHERE session_id = $1`
	var data models.PsychometricData
	if err := r.db.GetContext(ctx, &data, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get psychometrics: %w", err)
	}
	return &data, nil
}

// UpsertDysregulation stores the dysregulation areas section.
func (r *SessionRepository) UpsertDysregulation(ctx context.Context, areas *models.DysregulationAreas) error {
	const query = `INSERT INTO dysregulation_areas (session_id, emocional, conductual, interpersonal, del_yo, cognitiva, resumen, bsl23_aplicado)
        VALUES (:session_id, :emocional, :conductual, :interpersonal, :del_yo, :cognitiva, :resumen, :bsl23_aplicado)
        ON CONFLICT (session_id) DO UPDATE SET
            emocional = EXCLUDED.emocional, conductual = EXCLUDED.conductual,
            interpersonal = EXCLUDED.interpersonal, del_yo = EXCLUDED.del_yo,
            cognitiva = EXCLUDED.cognitiva, resumen = EXCLUDED.resumen,
            bsl23_aplicado = EXCLUDED.bsl23_aplicado`
	if _, err := r.db.NamedExecContext(ctx, query, areas); err != nil {
		return fmt.Errorf("upsert dysregulation: %w", err)
	}
	return nil
}

// GetDysregulation fetches the dysregulation areas section, nil when absent.
func (r *SessionRepository) GetDysregulation(ctx context.Context, sessionID string) (*models.DysregulationAreas, error) {
	const query = `SELECT session_id, emocional, conductual, interpersonal, del_yo, cognitiva, resumen, bsl23_aplicado
        FROM dysregulation_areas WHERE session_id = $1`
	var areas models.DysregulationAreas
	if err := r.db.GetContext(ctx, &areas, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dysregulation: %w", err)
	}
	return &areas, nil
}

// UpsertBiosocial stores the biosocial model section.
func (r *SessionRepository) UpsertBiosocial(ctx context.Context, model *models.BiosocialModel) error {
	const query = `INSERT INTO biosocial_model (session_id, vulnerabilidad_emocional, sensibilidad, intensidad, retorno_lento_calma, ambiente_invalidante, consecuencias_invalidacion, resumen)
        VALUES (:session_id, :vulnerabilidad_emocional, :sensibilidad, :intensidad, :retorno_lento_calma, :ambiente_invalidante, :consecuencias_invalidacion, :resumen)
        ON CONFLICT (session_id) DO UPDATE SET
            vulnerabilidad_emocional = EXCLUDED.vulnerabilidad_emocional,
            sensibilidad = EXCLUDED.sensibilidad, intensidad = EXCLUDED.intensidad,
            retorno_lento_calma = EXCLUDED.retorno_lento_calma,
            ambiente_invalidante = EXCLUDED.ambiente_invalidante,
            consecuencias_invalidacion = EXCLUDED.consecuencias_invalidacion,
            resumen = EXCLUDED.resumen`
	if _, err := r.db.NamedExecContext(ctx, query, model); err != nil {
		return fmt.Errorf("upsert biosocial: %w", err)
	}
	return nil
}

// GetBiosocial fetches the biosocial model section, nil when absent.
func (r *SessionRepository) GetBiosocial(ctx context.Context, sessionID string) (*models.BiosocialModel, error) {
	const query = `SELECT session_id, vulnerabilidad_emocional, sensibilidad, intensidad, retorno_lento_calma, ambiente_invalidante, consecuencias_invalidacion, resumen
        FROM biosocial_model WHERE session_id = $1`
	var model models.BiosocialModel
	if err := r.db.GetContext(ctx, &model, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get biosocial: %w", err)
	}
	return &model, nil
}

// UpsertTasks stores the task description section.
func (r *SessionRepository) UpsertTasks(ctx context.Context, tasks *models.SessionTasks) error {
	const query = `INSERT INTO session_tasks (session_id, descripcion) VALUES (:session_id, :descripcion)
        ON CONFLICT (session_id) DO UPDATE SET descripcion = EXCLUDED.descripcion`
	if _, err := r.db.NamedExecContext(ctx, query, tasks); err != nil {
		return fmt.Errorf("upsert tasks: %w", err)
	}
	return nil
}

// GetTasks fetches the task description section, nil when absent.
func (r *SessionRepository) GetTasks(ctx context.Context, sessionID string) (*models.SessionTasks, error) {
	var tasks models.SessionTasks
	if err := r.db.GetContext(ctx, &tasks, `SELECT session_id, descripcion FROM session_tasks WHERE session_id = $1`, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	return &tasks, nil
}

// UpsertProblemChains replaces the session's problem chain entries.
func (r *SessionRepository) UpsertProblemChains(ctx context.Context, entries []models.ProblemChainEntry) error {
	if len(entries) == 0 {
		return nil
	}
	sessionID := entries[0].SessionID
	const insertQuery = `INSERT INTO problem_chain_entries (session_id, label, vulnerabilidades, evento_desencadenante, eslabones, problemas_conducta, consecuentes)
        VALUES (:session_id, :label, :vulnerabilidades, :evento_desencadenante, :eslabones, :problemas_conducta, :consecuentes)`
	return r.replaceAll(ctx, "problem chains", `DELETE FROM problem_chain_entries WHERE session_id = $1`, sessionID, func(tx *sqlx.Tx) error {
		for i := range entries {
			entries[i].SessionID = sessionID
			if _, err := tx.NamedExecContext(ctx, insertQuery, entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetProblemChains lists the session's chain entries in label order.
func (r *SessionRepository) GetProblemChains(ctx context.Context, sessionID string) ([]models.ProblemChainEntry, error) {
	const query = `SELECT session_id, label, vulnerabilidades, evento_desencadenante, eslabones, problemas_conducta, consecuentes
        FROM problem_chain_entries WHERE session_id = $1 ORDER BY label ASC`
	entries := []models.ProblemChainEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, sessionID); err != nil {
		return nil, fmt.Errorf("list problem chains: %w", err)
	}
	return entries, nil
}

// UpsertTreatmentObjectives replaces the session's staged objectives.
func (r *SessionRepository) UpsertTreatmentObjectives(ctx context.Context, objectives []models.TreatmentObjective) error {
	if len(objectives) == 0 {
		return nil
	}
	sessionID := objectives[0].SessionID
	const insertQuery = `INSERT INTO treatment_objectives (session_id, stage, field, value)
        VALUES (:session_id, :stage, :field, :value)`
	return r.replaceAll(ctx, "treatment objectives", `DELETE FROM treatment_objectives WHERE session_id = $1`, sessionID, func(tx *sqlx.Tx) error {
		for i := range objectives {
			objectives[i].SessionID = sessionID
			if _, err := tx.NamedExecContext(ctx, insertQuery, objectives[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTreatmentObjectives lists the session's objectives by stage then field.
func (r *SessionRepository) GetTreatmentObjectives(ctx context.Context, sessionID string) ([]models.TreatmentObjective, error) {
	const query = `SELECT session_id, stage, field, value
        FROM treatment_objectives WHERE session_id = $1 ORDER BY stage ASC, field ASC`
	objectives := []models.TreatmentObjective{}
	if err := r.db.SelectContext(ctx, &objectives, query, sessionID); err != nil {
		return nil, fmt.Errorf("list treatment objectives: %w", err)
	}
	return objectives, nil
}

// UpsertProblemAnalyses replaces the session's problem analyses.
func (r *SessionRepository) UpsertProblemAnalyses(ctx context.Context, analyses []models.ProblemAnalysis) error {
	if len(analyses) == 0 {
		return nil
	}
	sessionID := analyses[0].SessionID
	const insertQuery = `INSERT INTO problem_analyses (session_id, problem_number, conducta_problema, analisis_solucion, vulnerabilidades, evento_precipitante, eslabones, consecuencias, metas_clinicas, objetivos_tratamiento, procedimientos, apuntes, tareas)
        VALUES (:session_id, :problem_number, :conducta_problema, :analisis_solucion, :vulnerabilidades, :evento_precipitante, :eslabones, :consecuencias, :metas_clinicas, :objetivos_tratamiento, :procedimientos, :apuntes, :tareas)`
	return r.replaceAll(ctx, "problem analyses", `DELETE FROM problem_analyses WHERE session_id = $1`, sessionID, func(tx *sqlx.Tx) error {
		for i := range analyses {
			analyses[i].SessionID = sessionID
			if _, err := tx.NamedExecContext(ctx, insertQuery, analyses[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetProblemAnalyses lists the session's analyses by problem number.
func (r *SessionRepository) GetProblemAnalyses(ctx context.Context, sessionID string) ([]models.ProblemAnalysis, error) {
	const query = `SELECT session_id, problem_number, conducta_problema, analisis_solucion, vulnerabilidades, evento_precipitante, eslabones, consecuencias, metas_clinicas, objetivos_tratamiento, procedimientos, apuntes, tareas
        FROM problem_analyses WHERE session_id = $1 ORDER BY problem_number ASC`
	analyses := []models.ProblemAnalysis{}
	if err := r.db.SelectContext(ctx, &analyses, query, sessionID); err != nil {
		return nil, fmt.Errorf("list problem analyses: %w", err)
	}
	return analyses, nil
}

// UpsertEvolutionNotes replaces the session's evolution notes.
func (r *SessionRepository) UpsertEvolutionNotes(ctx context.Context, notes []models.EvolutionNote) error {
	if len(notes) == 0 {
		return nil
	}
	sessionID := notes[0].SessionID
	const insertQuery = `INSERT INTO evolution_notes (id, session_id, titulo, nota_fecha, comportamiento_trabajado, apuntes, tareas)
        VALUES (:id, :session_id, :titulo, :nota_fecha, :comportamiento_trabajado, :apuntes, :tareas)`
	return r.replaceAll(ctx, "evolution notes", `DELETE FROM evolution_notes WHERE session_id = $1`, sessionID, func(tx *sqlx.Tx) error {
		for i := range notes {
			notes[i].SessionID = sessionID
			if _, err := tx.NamedExecContext(ctx, insertQuery, notes[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetEvolutionNotes lists the session's notes by id.
func (r *SessionRepository) GetEvolutionNotes(ctx context.Context, sessionID string) ([]models.EvolutionNote, error) {
	const query = `SELECT id, session_id, titulo, nota_fecha, comportamiento_trabajado, apuntes, tareas
        FROM evolution_notes WHERE session_id = $1 ORDER BY id ASC`
	notes := []models.EvolutionNote{}
	if err := r.db.SelectContext(ctx, &notes, query, sessionID); err != nil {
		return nil, fmt.Errorf("list evolution notes: %w", err)
	}
	return notes, nil
}

// replaceAll runs delete-then-insert for one list section inside a single
// transaction so a crash mid-operation cannot leave the session emptied.
func (r *SessionRepository) replaceAll(ctx context.Context, section, deleteQuery, sessionID string, insert func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", section, err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, sessionID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear %s: %w", section, err)
	}
	if err := insert(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert %s: %w", section, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", section, err)
	}
	return nil
}
