package value

import "fmt"

// Column is one named, typed slot in a Schema.
type Column struct {
	Name string
	Kind Kind
}

// Schema is the fixed, ordered column list every collection carries: N
// column names plus N column value types, fixed at construction.
type Schema []Column

// Kinds returns the Kind of every column, in declaration order.
func (s Schema) Kinds() []Kind {
	out := make([]Kind, len(s))
	for i, c := range s {
		out[i] = c.Kind
	}
	return out
}

// Names returns the name of every column, in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// IndexOf returns the position of the named column, or -1 if absent.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Validate reports whether tuple t has exactly the arity and per-column
// kinds this schema declares.
func (s Schema) Validate(t Tuple) error {
	if len(t) != len(s) {
		return fmt.Errorf("value: arity mismatch: schema has %d columns, tuple has %d", len(s), len(t))
	}
	for i, c := range s {
		if t[i].Kind() != c.Kind {
			return fmt.Errorf("value: column %d (%s): expected %s, got %s", i, c.Name, c.Kind, t[i].Kind())
		}
	}
	return nil
}

// NewSchema builds a Schema from parallel name/kind slices, the shape the
// builder's Table/Scratch/Channel declarations pass through.
func NewSchema(names []string, kinds []Kind) (Schema, error) {
	if len(names) != len(kinds) {
		return nil, fmt.Errorf("value: NewSchema: %d names but %d kinds", len(names), len(kinds))
	}
	s := make(Schema, len(names))
	for i := range names {
		s[i] = Column{Name: names[i], Kind: kinds[i]}
	}
	return s, nil
}
