package value

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// FromCUE compiles a CUE struct literal such as:
//
//	{x: int, y: string, z: float}
//
// into a Schema, in declaration order. This is sugar over the
// programmatic builder declarations: a program may describe a
// collection's shape data-first as CUE text instead of calling
// value.NewSchema directly.
func FromCUE(src string) (Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("value: FromCUE: %w", err)
	}
	return schemaFromCUEValue(v)
}

func schemaFromCUEValue(v cue.Value) (Schema, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, fmt.Errorf("value: FromCUE: not a struct: %w", err)
	}

	var schema Schema
	for iter.Next() {
		name := iter.Label()
		kind, err := cueFieldKind(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("value: FromCUE: field %q: %w", name, err)
		}
		schema = append(schema, Column{Name: name, Kind: kind})
	}
	return schema, nil
}

// cueFieldKind maps a CUE field's declared type to a value.Kind.
func cueFieldKind(v cue.Value) (Kind, error) {
	k := v.IncompleteKind()
	switch k {
	case cue.BoolKind:
		return KindBool, nil
	case cue.IntKind:
		return KindInt64, nil
	case cue.FloatKind, cue.NumberKind:
		return KindFloat64, nil
	case cue.StringKind:
		return KindString, nil
	case cue.BytesKind:
		return KindBytes, nil
	default:
		return 0, fmt.Errorf("unsupported CUE kind %v", k)
	}
}
