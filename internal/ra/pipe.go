package ra

import "github.com/fluentlang/fluent/internal/value"

// Op is a unary transform over a logical node — the free-function shape
// that models the pipe-style `source | op(...)` composition without
// Go's lacking a `|` operator of its own.
type Op func(Logical) Logical

// Pipe threads source through each op in order, the direct equivalent of
// `source | op1 | op2 | ...`.
func Pipe(source Logical, ops ...Op) Logical {
	cur := source
	for _, op := range ops {
		cur = op(cur)
	}
	return cur
}

// MapOp is `| map(fn)`: fn transforms each tuple, producing out-shaped
// output.
func MapOp(fn func(value.Tuple) value.Tuple, out value.Schema) Op {
	return func(src Logical) Logical { return Map{Source: src, Fn: fn, Out: out} }
}

// FilterOp is `| filter(pred)`.
func FilterOp(pred func(value.Tuple) bool) Op {
	return func(src Logical) Logical { return Filter{Source: src, Pred: pred} }
}

// ProjectOp is `| project<indices...>()`.
func ProjectOp(indices ...int) Op {
	return func(src Logical) Logical { return Project{Source: src, Indices: indices} }
}

// CountOp is `| count()`.
func CountOp() Op {
	return func(src Logical) Logical { return Count{Source: src} }
}

// GroupByOp is `| group_by<keyIndices..., aggIndices..., aggFns...>()`.
func GroupByOp(keyIndices, aggIndices []int, aggs []Aggregate) Op {
	return func(src Logical) Logical {
		return GroupBy{Source: src, KeyIndices: keyIndices, AggIndices: aggIndices, Aggs: aggs}
	}
}

// CrossOf is `a * b`: the Cartesian product of a and b.
func CrossOf(a, b Logical) Logical {
	return Cross{Left: a, Right: b}
}

// HashJoinOf is `hash_join<aKeys..., bKeys...>(a, b)`.
func HashJoinOf(a, b Logical, aKeys, bKeys []int) Logical {
	return HashJoin{Left: a, Right: b, LeftKeys: aKeys, RightKeys: bKeys}
}

// Of builds a CollectionRef leaf for name — the pipeline's usual
// starting point.
func Of(name string) Logical {
	return CollectionRef{Name: name}
}
