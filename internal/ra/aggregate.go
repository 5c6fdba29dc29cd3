package ra

import "github.com/fluentlang/fluent/internal/value"

// Aggregate is a pluggable fold applied to one column within a GroupBy
// partition. Zero is the fold's identity; Step combines the running
// accumulator with one member's column value.
type Aggregate interface {
	Name() string
	Zero() value.Value
	Step(acc, v value.Value) value.Value
	// OutputKind reports the result kind given the input column's kind
	// (identity for sum/min/max, always KindUint64 for count).
	OutputKind(input value.Kind) value.Kind
}

func numeric(v value.Value) float64 {
	switch n := v.(type) {
	case value.Int64:
		return float64(n)
	case value.Uint64:
		return float64(n)
	case value.Float64:
		return float64(n)
	default:
		return 0
	}
}

// reshape converts a float64 fold result back to the kind carried by
// sample, so sum/min/max preserve their input column's type.
func reshape(sample value.Value, f float64) value.Value {
	switch sample.(type) {
	case value.Int64:
		return value.Int64(int64(f))
	case value.Uint64:
		return value.Uint64(uint64(f))
	default:
		return value.Float64(f)
	}
}

// SumAgg folds a column by addition.
type SumAgg struct{}

func (SumAgg) Name() string { return "sum" }

func (SumAgg) Zero() value.Value { return value.Int64(0) }

func (SumAgg) Step(acc, v value.Value) value.Value {
	return reshape(v, numeric(acc)+numeric(v))
}

func (SumAgg) OutputKind(input value.Kind) value.Kind { return input }

// CountAgg folds a column by counting members, ignoring their value.
type CountAgg struct{}

func (CountAgg) Name() string { return "count" }

func (CountAgg) Zero() value.Value { return value.Uint64(0) }

func (CountAgg) Step(acc, _ value.Value) value.Value {
	return value.Uint64(uint64(acc.(value.Uint64)) + 1)
}

func (CountAgg) OutputKind(value.Kind) value.Kind { return value.KindUint64 }

// MinAgg folds a column by minimum. Its Zero is a sentinel only the
// first Step call ever observes.
type MinAgg struct{}

func (MinAgg) Name() string { return "min" }

func (MinAgg) Zero() value.Value { return nil }

func (MinAgg) Step(acc, v value.Value) value.Value {
	if acc == nil {
		return v
	}
	if numeric(v) < numeric(acc) {
		return v
	}
	return acc
}

func (MinAgg) OutputKind(input value.Kind) value.Kind { return input }

// MaxAgg folds a column by maximum. Its Zero is a sentinel only the
// first Step call ever observes.
type MaxAgg struct{}

func (MaxAgg) Name() string { return "max" }

func (MaxAgg) Zero() value.Value { return nil }

func (MaxAgg) Step(acc, v value.Value) value.Value {
	if acc == nil {
		return v
	}
	if numeric(v) > numeric(acc) {
		return v
	}
	return acc
}

func (MaxAgg) OutputKind(input value.Kind) value.Kind { return input }
