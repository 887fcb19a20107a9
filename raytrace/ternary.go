package raytrace

// Ternary is a three-valued result used where a callback may defer a
// decision to a later step instead of committing to a definite
// yes/no.
type Ternary uint8

const (
	NO Ternary = iota
	YES
	MAYBE
)

func (t Ternary) String() string {
	switch t {
	case YES:
		return "yes"
	case MAYBE:
		return "maybe"
	default:
		return "no"
	}
}
