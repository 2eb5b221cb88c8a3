package dto

import "github.com/noah-isme/ficha-clinica-api/internal/models"

// PatientPatch carries field-level edits to the patient row. Nil fields
// are left untouched.
type PatientPatch struct {
	DisplayName *string `json:"display_name"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DNI         *string `json:"dni"`
	Gender      *string `json:"gender"`
	BirthDate   *string `json:"birth_date"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
}

// Apply copies the non-nil fields onto the patient.
func (p PatientPatch) Apply(target *models.Patient) {
	if p.DisplayName != nil && *p.DisplayName != "" {
		target.DisplayName = *p.DisplayName
	}
	if p.FirstName != nil {
		target.FirstName = p.FirstName
	}
	if p.LastName != nil {
		target.LastName = p.LastName
	}
	if p.DNI != nil {
		target.DNI = p.DNI
	}
	if p.Gender != nil {
		target.Gender = p.Gender
	}
	if p.BirthDate != nil {
		target.BirthDate = p.BirthDate
	}
	if p.Phone != nil {
		target.Phone = p.Phone
	}
	if p.Address != nil {
		target.Address = p.Address
	}
}

// SessionPatch carries field-level edits to the session row.
type SessionPatch struct {
	SessionDate        *string `json:"session_date"`
	FirstAttentionDate *string `json:"first_attention_date"`
	MotivoPrincipal    *string `json:"motivo_principal"`
	OtrosMotivos       *string `json:"otros_motivos"`
	FamilyNotes        *string `json:"family_notes"`
}

// Apply copies the non-nil fields onto the session.
func (p SessionPatch) Apply(target *models.Session) {
	if p.SessionDate != nil {
		target.SessionDate = p.SessionDate
	}
	if p.FirstAttentionDate != nil {
		target.FirstAttentionDate = p.FirstAttentionDate
	}
	if p.MotivoPrincipal != nil {
		target.MotivoPrincipal = p.MotivoPrincipal
	}
	if p.OtrosMotivos != nil {
		target.OtrosMotivos = p.OtrosMotivos
	}
	if p.FamilyNotes != nil {
		target.FamilyNotes = p.FamilyNotes
	}
}

// ProblemGoalsPatch edits the goals section.
type ProblemGoalsPatch struct {
	Metas *string `json:"metas"`
}

// Apply copies the non-nil fields onto the section.
func (p ProblemGoalsPatch) Apply(target *models.ProblemGoals) {
	if p.Metas != nil {
		target.Metas = p.Metas
	}
}

// PsychometricsPatch edits the psychometric scores section.
type PsychometricsPatch struct {
	Bsl23         *string `json:"bsl23"`
	Ders          *string `json:"ders"`
	Bdi2          *string `json:"bdi2"`
	StaiEstado    *string `json:"stai_estado"`
	StaiRasgo     *string `json:"stai_rasgo"`
	IpdeScreening *string `json:"ipde_screening"`
	Otros         *string `json:"otros"`
	Observaciones *string `json:"observaciones"`
}

// Apply copies the non-nil fields onto the section.
func (p PsychometricsPatch) Apply(target *models.PsychometricData) {
	if p.Bsl23 != nil {
		target.Bsl23 = p.Bsl23
	}
	if p.Ders != nil {
		target.Ders = p.Ders
	}
	if p.Bdi2 != nil {
		target.Bdi2 = p.Bdi2
	}
	if p.StaiEstado != nil {
		target.StaiEstado = p.StaiEstado
	}
	if p.StaiRasgo != nil {
		target.StaiRasgo = p.StaiRasgo
	}
	if p.IpdeScreening != nil {
		target.IpdeScreening = p.IpdeScreening
	}
	if p.Otros != nil {
		target.Otros = p.Otros
	}
	if p.Observaciones != nil {
		target.Observaciones = p.Observaciones
	}
}

// DysregulationPatch edits the dysregulation areas section.
type DysregulationPatch struct {
	Emocional     *string `json:"emocional"`
	Conductual    *string `json:"conductual"`
	Interpersonal *string `json:"interpersonal"`
	DelYo         *string `json:"del_yo"`
	Cognitiva     *string `json:"cognitiva"`
	Resumen       *string `json:"resumen"`
	Bsl23Aplicado *bool   `json:"bsl23_aplicado"`
}

// Apply copies the non-nil fields onto the section.
func (p DysregulationPatch) Apply(target *models.DysregulationAreas) {
	if p.Emocional != nil {
		target.Emocional = p.Emocional
	}
	if p.Conductual != nil {
		target.Conductual = p.Conductual
	}
	if p.Interpersonal != nil {
		target.Interpersonal = p.Interpersonal
	}
	if p.DelYo != nil {
		target.DelYo = p.DelYo
	}
	if p.Cognitiva != nil {
		target.Cognitiva = p.Cognitiva
	}
	if p.Resumen != nil {
		target.Resumen = p.Resumen
	}
	if p.Bsl23Aplicado != nil {
		target.Bsl23Aplicado = models.IntBool(*p.Bsl23Aplicado)
	}
}

// BiosocialPatch edits the biosocial model section.
type BiosocialPatch struct {
	VulnerabilidadEmocional   *string `json:"vulnerabilidad_emocional"`
	Sensibilidad              *string `json:"sensibilidad"`
	Intensidad                *string `json:"intensidad"`
	RetornoLentoCalma         *string `json:"retorno_lento_calma"`
	AmbienteInvalidante       *string `json:"ambiente_invalidante"`
	ConsecuenciasInvalidacion *string `json:"consecuencias_invalidacion"`
	Resumen                   *string `json:"resumen"`
}

// Apply copies the non-nil fields onto the section.
func (p BiosocialPatch) Apply(target *models.BiosocialModel) {
	if p.VulnerabilidadEmocional != nil {
		target.VulnerabilidadEmocional = p.VulnerabilidadEmocional
	}
	if p.Sensibilidad != nil {
		target.Sensibilidad = p.Sensibilidad
	}
	if p.Intensidad != nil {
		target.Intensidad = p.Intensidad
	}
	if p.RetornoLentoCalma != nil {
		target.RetornoLentoCalma = p.RetornoLentoCalma
	}
	if p.AmbienteInvalidante != nil {
		target.AmbienteInvalidante = p.AmbienteInvalidante
	}
	if p.ConsecuenciasInvalidacion != nil {
		target.ConsecuenciasInvalidacion = p.ConsecuenciasInvalidacion
	}
	if p.Resumen != nil {
		target.Resumen = p.Resumen
	}
}

// TasksPatch edits the free-text tasks section.
type TasksPatch struct {
	Descripcion *string `json:"descripcion"`
}

// Apply copies the non-nil fields onto the section.
func (p TasksPatch) Apply(target *models.SessionTasks) {
	if p.Descripcion != nil {
		target.Descripcion = p.Descripcion
	}
}

// ProblemChainPatch edits one chain entry identified by its label.
type ProblemChainPatch struct {
	Label                string  `json:"label" binding:"required"`
	Vulnerabilidades     *string `json:"vulnerabilidades"`
	EventoDesencadenante *string `json:"evento_desencadenante"`
	Eslabones            *string `json:"eslabones"`
	ProblemasConducta    *string `json:"problemas_conducta"`
	Consecuentes         *string `json:"consecuentes"`
}

// Apply copies the non-nil fields onto the entry.
func (p ProblemChainPatch) Apply(target *models.ProblemChainEntry) {
	if p.Vulnerabilidades != nil {
		target.Vulnerabilidades = p.Vulnerabilidades
	}
	if p.EventoDesencadenante != nil {
		target.EventoDesencadenante = p.EventoDesencadenante
	}
	if p.Eslabones != nil {
		target.Eslabones = p.Eslabones
	}
	if p.ProblemasConducta != nil {
		target.ProblemasConducta = p.ProblemasConducta
	}
	if p.Consecuentes != nil {
		target.Consecuentes = p.Consecuentes
	}
}

// TreatmentObjectiveSet records one value in the staged objective grid.
type TreatmentObjectiveSet struct {
	Stage models.ObjectiveStage `json:"stage" binding:"required"`
	Field string                `json:"field" binding:"required"`
	Value *string               `json:"value"`
}

// ProblemAnalysisPatch edits one analysis identified by its number.
type ProblemAnalysisPatch struct {
	ProblemNumber        int     `json:"problem_number" binding:"required"`
	ConductaProblema     *string `json:"conducta_problema"`
	AnalisisSolucion     *string `json:"analisis_solucion"`
	Vulnerabilidades     *string `json:"vulnerabilidades"`
	EventoPrecipitante   *string `json:"evento_precipitante"`
	Eslabones            *string `json:"eslabones"`
	Consecuencias        *string `json:"consecuencias"`
	MetasClinicas        *string `json:"metas_clinicas"`
	ObjetivosTratamiento *string `json:"objetivos_tratamiento"`
	Procedimientos       *string `json:"procedimientos"`
	Apuntes              *string `json:"apuntes"`
	Tareas               *string `json:"tareas"`
}

// Apply copies the non-nil fields onto the analysis.
func (p ProblemAnalysisPatch) Apply(target *models.ProblemAnalysis) {
	if p.ConductaProblema != nil {
		target.ConductaProblema = p.ConductaProblema
	}
	if p.AnalisisSolucion != nil {
		target.AnalisisSolucion = p.AnalisisSolucion
	}
	if p.Vulnerabilidades != nil {
		target.Vulnerabilidades = p.Vulnerabilidades
	}
	if p.EventoPrecipitante != nil {
		target.EventoPrecipitante = p.EventoPrecipitante
	}
	if p.Eslabones != nil {
		target.Eslabones = p.Eslabones
	}
	if p.Consecuencias != nil {
		target.Consecuencias = p.Consecuencias
	}
	if p.MetasClinicas != nil {
		target.MetasClinicas = p.MetasClinicas
	}
	if p.ObjetivosTratamiento != nil {
		target.ObjetivosTratamiento = p.ObjetivosTratamiento
	}
	if p.Procedimientos != nil {
		target.Procedimientos = p.Procedimientos
	}
	if p.Apuntes != nil {
		target.Apuntes = p.Apuntes
	}
	if p.Tareas != nil {
		target.Tareas = p.Tareas
	}
}

// EvolutionNoteCreate opens a new note with the given title.
type EvolutionNoteCreate struct {
	Titulo string `json:"titulo" binding:"required"`
}

// EvolutionNotePatch edits one note identified by its id.
type EvolutionNotePatch struct {
	ID                      int64   `json:"id" binding:"required"`
	Titulo                  *string `json:"titulo"`
	NotaFecha               *string `json:"nota_fecha"`
	ComportamientoTrabajado *string `json:"comportamiento_trabajado"`
	Apuntes                 *string `json:"apuntes"`
	Tareas                  *string `json:"tareas"`
}

// Apply copies the non-nil fields onto the note.
func (p EvolutionNotePatch) Apply(target *models.EvolutionNote) {
	if p.Titulo != nil && *p.Titulo != "" {
		target.Titulo = *p.Titulo
	}
	if p.NotaFecha != nil {
		target.NotaFecha = p.NotaFecha
	}
	if p.ComportamientoTrabajado != nil {
		target.ComportamientoTrabajado = p.ComportamientoTrabajado
	}
	if p.Apuntes != nil {
		target.Apuntes = p.Apuntes
	}
	if p.Tareas != nil {
		target.Tareas = p.Tareas
	}
}

// AttachRequest submits local file paths for ingestion.
type AttachRequest struct {
	Sources []string `json:"sources" binding:"required,min=1"`
}
