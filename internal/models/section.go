package models

// ProblemGoals is the one-to-one goals section of a session.
type ProblemGoals struct {
	SessionID string  `db:"session_id" json:"session_id"`
	Metas     *string `db:"metas" json:"metas,omitempty"`
}

// PsychometricData collects applied instrument scores for a session.
type PsychometricData struct {
	SessionID     string  `db:"session_id" json:"session_id"`
	Bsl23         *string `db:"bsl23" json:"bsl23,omitempty"`
	Ders          *string `db:"ders" json:"ders,omitempty"`
	Bdi2          *string `db:"bdi2" json:"bdi2,omitempty"`
	StaiEstado    *string `db:"stai_estado" json:"stai_estado,omitempty"`
	StaiRasgo     *string `db:"stai_rasgo" json:"stai_rasgo,omitempty"`
	IpdeScreening *string `db:"ipde_screening" json:"ipde_screening,omitempty"`
	Otros         *string `db:"otros" json:"otros,omitempty"`
	Observaciones *string `db:"observaciones" json:"observaciones,omitempty"`
}

// DysregulationAreas records the assessed dysregulation areas plus the
// BSL-23 applied flag.
type DysregulationAreas struct {
	SessionID     string  `db:"session_id" json:"session_id"`
	Emocional     *string `db:"emocional" json:"emocional,omitempty"`
	Conductual    *string `db:"conductual" json:"conductual,omitempty"`
	Interpersonal *string `db:"interpersonal" json:"interpersonal,omitempty"`
	DelYo         *string `db:"del_yo" json:"del_yo,omitempty"`
	Cognitiva     *string `db:"cognitiva" json:"cognitiva,omitempty"`
	Resumen       *string `db:"resumen" json:"resumen,omitempty"`
	Bsl23Aplicado IntBool `db:"bsl23_aplicado" json:"bsl23_aplicado"`
}

// BiosocialModel captures the biosocial formulation of a session.
type BiosocialModel struct {
	SessionID                 string  `db:"session_id" json:"session_id"`
	VulnerabilidadEmocional   *string `db:"vulnerabilidad_emocional" json:"vulnerabilidad_emocional,omitempty"`
	Sensibilidad              *string `db:"sensibilidad" json:"sensibilidad,omitempty"`
	Intensidad                *string `db:"intensidad" json:"intensidad,omitempty"`
	RetornoLentoCalma         *string `db:"retorno_lento_calma" json:"retorno_lento_calma,omitempty"`
	AmbienteInvalidante       *string `db:"ambiente_invalidante" json:"ambiente_invalidante,omitempty"`
	ConsecuenciasInvalidacion *string `db:"consecuencias_invalidacion" json:"consecuencias_invalidacion,omitempty"`
	Resumen                   *string `db:"resumen" json:"resumen,omitempty"`
}

// SessionTasks holds the free-text task description of a session. The text
// may embed inline attachment reference tokens of the form [displayName].
type SessionTasks struct {
	SessionID   string  `db:"session_id" json:"session_id"`
	Descripcion *string `db:"descripcion" json:"descripcion,omitempty"`
}
