package models

// ProblemAnalysis is a detailed functional analysis (DFI) of one numbered
// problem behavior. ProblemNumber is user-managed and positive; entries
// are addable and removable per session.
type ProblemAnalysis struct {
	SessionID            string  `db:"session_id" json:"session_id"`
	ProblemNumber        int     `db:"problem_number" json:"problem_number"`
	ConductaProblema     *string `db:"conducta_problema" json:"conducta_problema,omitempty"`
	AnalisisSolucion     *string `db:"analisis_solucion" json:"analisis_solucion,omitempty"`
	Vulnerabilidades     *string `db:"vulnerabilidades" json:"vulnerabilidades,omitempty"`
	EventoPrecipitante   *string `db:"evento_precipitante" json:"evento_precipitante,omitempty"`
	Eslabones            *string `db:"eslabones" json:"eslabones,omitempty"`
	Consecuencias        *string `db:"consecuencias" json:"consecuencias,omitempty"`
	MetasClinicas        *string `db:"metas_clinicas" json:"metas_clinicas,omitempty"`
	ObjetivosTratamiento *string `db:"objetivos_tratamiento" json:"objetivos_tratamiento,omitempty"`
	Procedimientos       *string `db:"procedimientos" json:"procedimientos,omitempty"`
	Apuntes              *string `db:"apuntes" json:"apuntes,omitempty"`
	Tareas               *string `db:"tareas" json:"tareas,omitempty"`
}
