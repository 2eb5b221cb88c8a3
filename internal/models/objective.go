package models

// ObjectiveStage is one of the four fixed treatment phases. It is encoded
// by exact member name in storage.
type ObjectiveStage string

const (
	StageEtapa1      ObjectiveStage = "ETAPA_1"
	StageEtapa2      ObjectiveStage = "ETAPA_2"
	StageEtapa3      ObjectiveStage = "ETAPA_3"
	StageSecundarios ObjectiveStage = "SECUNDARIOS"
)

// ObjectiveStages lists the treatment phases in clinical order.
var ObjectiveStages = []ObjectiveStage{StageEtapa1, StageEtapa2, StageEtapa3, StageSecundarios}

// Valid reports whether the stage belongs to the closed enum.
func (s ObjectiveStage) Valid() bool {
	switch s {
	case StageEtapa1, StageEtapa2, StageEtapa3, StageSecundarios:
		return true
	}
	return false
}

// ObjectiveFieldCatalog maps each stage to its fixed catalog of named
// objective fields. The catalog is metadata, not user-extensible.
var ObjectiveFieldCatalog = map[ObjectiveStage][]string{
	StageEtapa1: {
		"conductasAtentanVida",
		"conductasInterfierenTerapia",
		"conductasInterfierenCalidadVida",
		"deficitHabilidades",
	},
	StageEtapa2: {
		"experimentarEmociones",
		"evitacionExperiencial",
		"estresPostraumatico",
	},
	StageEtapa3: {
		"autorespeto",
		"metasIndividuales",
		"problemasVida",
	},
	StageSecundarios: {
		"vulnerabilidadEmocional",
		"autoinvalidacion",
		"crisisImplacables",
		"duelosInhibidos",
		"pasividadActiva",
		"competenciaAparente",
		"otros",
	},
}

// ValidObjectiveField reports whether the field belongs to the stage's
// catalog.
func ValidObjectiveField(stage ObjectiveStage, field string) bool {
	for _, f := range ObjectiveFieldCatalog[stage] {
		if f == field {
			return true
		}
	}
	return false
}

// TreatmentObjective is a staged treatment objective value keyed by
// (session, stage, field).
type TreatmentObjective struct {
	SessionID string         `db:"session_id" json:"session_id"`
	Stage     ObjectiveStage `db:"stage" json:"stage"`
	Field     string         `db:"field" json:"field"`
	Value     *string        `db:"value" json:"value,omitempty"`
}
