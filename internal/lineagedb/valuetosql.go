package lineagedb

import (
	"fmt"

	"github.com/fluentlang/fluent/internal/value"
)

// SQLTypeOf reports the SQL column type lineage should declare for kind,
// used by AddCollection's columnSQLTypes argument.
func SQLTypeOf(kind value.Kind) (string, error) {
	switch kind {
	case value.KindBool:
		return "BOOLEAN", nil
	case value.KindInt64:
		return "INTEGER", nil
	case value.KindUint64:
		return "INTEGER", nil
	case value.KindFloat64:
		return "REAL", nil
	case value.KindString:
		return "TEXT", nil
	case value.KindBytes:
		return "BLOB", nil
	default:
		return "", fmt.Errorf("lineagedb: unsupported value kind %q", kind)
	}
}

// ValueToSQL renders v as the literal text lineage stores for a single
// column, mirroring the dispatch-by-kind shape of a SQL value compiler:
// one switch arm per concrete value.Value type.
func ValueToSQL(v value.Value) (string, error) {
	switch vv := v.(type) {
	case value.Bool:
		if bool(vv) {
			return "true", nil
		}
		return "false", nil
	case value.Int64:
		return fmt.Sprintf("%d", int64(vv)), nil
	case value.Uint64:
		return fmt.Sprintf("%d", uint64(vv)), nil
	case value.Float64:
		return fmt.Sprintf("%g", float64(vv)), nil
	case value.String:
		return string(vv), nil
	case value.Bytes:
		return fmt.Sprintf("%x", []byte(vv)), nil
	default:
		return "", fmt.Errorf("lineagedb: unsupported value type %T", v)
	}
}

// TupleToSQLValues renders every column of t via ValueToSQL, the shape
// InsertTuple/DeleteTuple's values argument expects.
func TupleToSQLValues(t value.Tuple) ([]string, error) {
	out := make([]string, len(t))
	for i, v := range t {
		s, err := ValueToSQL(v)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
