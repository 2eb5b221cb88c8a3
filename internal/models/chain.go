package models

// Problem chain labels form a fixed set; a session carries at most one
// chain entry per label.
const (
	ChainLabelP1 = "P1"
	ChainLabelP2 = "P2"
	ChainLabelP3 = "P3"
	ChainLabelP4 = "P4"
)

// ChainLabels lists the allowed problem chain labels in display order.
var ChainLabels = []string{ChainLabelP1, ChainLabelP2, ChainLabelP3, ChainLabelP4}

// ValidChainLabel reports whether the label belongs to the fixed set.
func ValidChainLabel(label string) bool {
	for _, l := range ChainLabels {
		if l == label {
			return true
		}
	}
	return false
}

// ProblemChainEntry is a DBT behavioral chain analysis keyed by
// (session, label).
type ProblemChainEntry struct {
	SessionID            string  `db:"session_id" json:"session_id"`
	Label                string  `db:"label" json:"label"`
	Vulnerabilidades     *string `db:"vulnerabilidades" json:"vulnerabilidades,omitempty"`
	EventoDesencadenante *string `db:"evento_desencadenante" json:"evento_desencadenante,omitempty"`
	Eslabones            *string `db:"eslabones" json:"eslabones,omitempty"`
	ProblemasConducta    *string `db:"problemas_conducta" json:"problemas_conducta,omitempty"`
	Consecuentes         *string `db:"consecuentes" json:"consecuentes,omitempty"`
}
