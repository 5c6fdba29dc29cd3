package value

import "fmt"

// Tuple is a fixed-arity, ordered record of column Values. Arity and
// per-column Kind are fixed by the owning collection's Schema at
// construction time; Tuple itself does not enforce that — callers go
// through collection.Collection.Merge, which validates against Schema.
type Tuple []Value

// Equal reports whether two tuples have the same arity and every column
// compares Canonical-equal, the same notion of equality TupleSet uses for
// set-containment dedup.
func (t Tuple) Equal(other Tuple) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if string(t[i].Canonical()) != string(other[i].Canonical()) {
			return false
		}
	}
	return true
}

// String renders a tuple for debug output and stdout sinks: a bare string
// for single-column string tuples, otherwise a comma-joined textual form.
func (t Tuple) String() string {
	if len(t) == 1 {
		if s, ok := t[0].(String); ok {
			return string(s)
		}
	}
	out := ""
	for i, v := range t {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%v", renderValue(v))
	}
	return out
}

func renderValue(v Value) any {
	switch x := v.(type) {
	case Bool:
		return bool(x)
	case Int64:
		return int64(x)
	case Uint64:
		return uint64(x)
	case Float64:
		return float64(x)
	case String:
		return string(x)
	case Bytes:
		return []byte(x)
	default:
		return v
	}
}
