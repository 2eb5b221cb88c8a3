package models

// EvolutionNote is a per-visit progress note. IDs are surrogate integers
// assigned by the form layer (max+1 over the loaded list).
type EvolutionNote struct {
	ID                      int64   `db:"id" json:"id"`
	SessionID               string  `db:"session_id" json:"session_id"`
	Titulo                  string  `db:"titulo" json:"titulo"`
	NotaFecha               *string `db:"nota_fecha" json:"nota_fecha,omitempty"`
	ComportamientoTrabajado *string `db:"comportamiento_trabajado" json:"comportamiento_trabajado,omitempty"`
	Apuntes                 *string `db:"apuntes" json:"apuntes,omitempty"`
	Tareas                  *string `db:"tareas" json:"tareas,omitempty"`
}
