// Package wire defines the pluggable wire-serialization boundary between
// a Channel collection's tuples and the bytes a Bus actually moves.
package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/fluentlang/fluent/internal/value"
)

// Pickler serializes and deserializes a single tuple for network
// transport. Collections never call this directly — the executor does,
// between Channel.Merge (which decides a tuple must go out) and the
// Bus.Send call that actually moves bytes.
type Pickler interface {
	Pickle(t value.Tuple) ([]byte, error)
	Unpickle(data []byte, schema value.Schema) (value.Tuple, error)
}

// wireValue is the gob-friendly shape one column's value round-trips
// through: gob cannot encode the value.Value interface directly without
// every concrete type being registered, so each column travels as a kind
// tag plus a kind-appropriate concrete field.
type wireValue struct {
	Kind  value.Kind
	Bool  bool
	I64   int64
	U64   uint64
	F64   float64
	Str   string
	Bytes []byte
}

func toWireValue(v value.Value) (wireValue, error) {
	switch vv := v.(type) {
	case value.Bool:
		return wireValue{Kind: value.KindBool, Bool: bool(vv)}, nil
	case value.Int64:
		return wireValue{Kind: value.KindInt64, I64: int64(vv)}, nil
	case value.Uint64:
		return wireValue{Kind: value.KindUint64, U64: uint64(vv)}, nil
	case value.Float64:
		return wireValue{Kind: value.KindFloat64, F64: float64(vv)}, nil
	case value.String:
		return wireValue{Kind: value.KindString, Str: string(vv)}, nil
	case value.Bytes:
		return wireValue{Kind: value.KindBytes, Bytes: []byte(vv)}, nil
	default:
		return wireValue{}, fmt.Errorf("wire: unsupported value type %T", v)
	}
}

func (w wireValue) toValue() (value.Value, error) {
	switch w.Kind {
	case value.KindBool:
		return value.Bool(w.Bool), nil
	case value.KindInt64:
		return value.Int64(w.I64), nil
	case value.KindUint64:
		return value.Uint64(w.U64), nil
	case value.KindFloat64:
		return value.Float64(w.F64), nil
	case value.KindString:
		return value.String(w.Str), nil
	case value.KindBytes:
		return value.Bytes(w.Bytes), nil
	default:
		return nil, fmt.Errorf("wire: unsupported wire kind %q", w.Kind)
	}
}

// GobPickler is the reference Pickler, built on encoding/gob. Both ends
// of a connection must agree on the pickler in use; programs that need
// a cross-language wire format swap in their own implementation.
type GobPickler struct{}

// Pickle gob-encodes t column by column as wireValues.
func (GobPickler) Pickle(t value.Tuple) ([]byte, error) {
	wv := make([]wireValue, len(t))
	for i, v := range t {
		w, err := toWireValue(v)
		if err != nil {
			return nil, err
		}
		wv[i] = w
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wv); err != nil {
		return nil, fmt.Errorf("wire: pickle: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpickle decodes data into a tuple validated against schema.
func (GobPickler) Unpickle(data []byte, schema value.Schema) (value.Tuple, error) {
	var wv []wireValue
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wv); err != nil {
		return nil, fmt.Errorf("wire: unpickle: %w", err)
	}
	t := make(value.Tuple, len(wv))
	for i, w := range wv {
		v, err := w.toValue()
		if err != nil {
			return nil, err
		}
		t[i] = v
	}
	if schema != nil {
		if err := schema.Validate(t); err != nil {
			return nil, fmt.Errorf("wire: unpickle: %w", err)
		}
	}
	return t, nil
}
