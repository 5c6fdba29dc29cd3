package ra

import (
	"fmt"

	"github.com/fluentlang/fluent/internal/value"
)

// Binder resolves a named collection to its current schema and contents
// at compile time. The executor supplies the live implementation;
// tests wire a fixed map.
type Binder interface {
	Resolve(name string) (value.Schema, TupleSource, error)
}

// TupleSource is anything a physical collection scan can range over: a
// collection's tuples, read each time the scan's ToRange is called. The
// executor's binder hands out the live tuple set, so a rule sees
// whatever earlier rules in the same pass have already merged or
// deleted.
type TupleSource interface {
	Each(func(value.Tuple))
	Len() int
}

// Logical is the sealed interface every algebra node implements. Only
// types in this package may implement it — external code builds trees
// exclusively through the constructors and Pipe/Op combinators below.
type Logical interface {
	// ColumnTypes reports the node's output schema, resolving against
	// binder where a CollectionRef leaf needs it.
	ColumnTypes(binder Binder) (value.Schema, error)
	// ToPhysical lowers this node (and its children) to a physical,
	// evaluable tree.
	ToPhysical(binder Binder) (Physical, error)
	// String renders the node's canonical textual form, used by lineage
	// to record rule text (e.g. "Count(t)").
	String() string
	logicalNode()
}

// CollectionRef is a leaf referencing a declared collection by name.
type CollectionRef struct {
	Name string
}

func (c CollectionRef) logicalNode() {}

func (c CollectionRef) ColumnTypes(binder Binder) (value.Schema, error) {
	schema, _, err := binder.Resolve(c.Name)
	return schema, err
}

func (c CollectionRef) ToPhysical(binder Binder) (Physical, error) {
	_, src, err := binder.Resolve(c.Name)
	if err != nil {
		return nil, err
	}
	return &physSource{src: src}, nil
}

func (c CollectionRef) String() string { return c.Name }

// Iterable is a leaf wrapping a fixed, already-materialized tuple set —
// used to splice literal data into an algebra tree, e.g. bootstrap seed
// values or a join's constant side.
type Iterable struct {
	Out   value.Schema
	Items []value.Tuple
}

func (i Iterable) logicalNode() {}

func (i Iterable) ColumnTypes(Binder) (value.Schema, error) { return i.Out, nil }

func (i Iterable) ToPhysical(Binder) (Physical, error) {
	return &physIterable{items: i.Items}, nil
}

func (i Iterable) String() string { return "Iterable" }

// Map applies Fn to every input tuple, producing Out-shaped tuples. Map
// is functionally pure from the executor's perspective and is never
// memoized across ticks.
type Map struct {
	Source Logical
	Fn     func(value.Tuple) value.Tuple
	Out    value.Schema
}

func (m Map) logicalNode() {}

func (m Map) ColumnTypes(Binder) (value.Schema, error) { return m.Out, nil }

func (m Map) ToPhysical(binder Binder) (Physical, error) {
	src, err := m.Source.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	return &physMap{src: src, fn: m.Fn}, nil
}

func (m Map) String() string { return fmt.Sprintf("Map(%s)", m.Source) }

// Filter keeps only tuples for which Pred returns true. Like Map, Filter
// is pure and unmemoized.
type Filter struct {
	Source Logical
	Pred   func(value.Tuple) bool
}

func (f Filter) logicalNode() {}

func (f Filter) ColumnTypes(binder Binder) (value.Schema, error) {
	return f.Source.ColumnTypes(binder)
}

func (f Filter) ToPhysical(binder Binder) (Physical, error) {
	src, err := f.Source.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	return &physFilter{src: src, pred: f.Pred}, nil
}

func (f Filter) String() string { return fmt.Sprintf("Filter(%s)", f.Source) }

// Project keeps only the columns at Indices, in that order.
type Project struct {
	Source  Logical
	Indices []int
}

func (p Project) logicalNode() {}

func (p Project) ColumnTypes(binder Binder) (value.Schema, error) {
	in, err := p.Source.ColumnTypes(binder)
	if err != nil {
		return nil, err
	}
	out := make(value.Schema, len(p.Indices))
	for i, idx := range p.Indices {
		out[i] = in[idx]
	}
	return out, nil
}

func (p Project) ToPhysical(binder Binder) (Physical, error) {
	src, err := p.Source.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	return &physProject{src: src, indices: p.Indices}, nil
}

func (p Project) String() string { return fmt.Sprintf("Project(%s)", p.Source) }

// Cross produces the Cartesian product of Left and Right; output tuples
// are Left's columns followed by Right's.
type Cross struct {
	Left  Logical
	Right Logical
}

func (c Cross) logicalNode() {}

func (c Cross) ColumnTypes(binder Binder) (value.Schema, error) {
	l, err := c.Left.ColumnTypes(binder)
	if err != nil {
		return nil, err
	}
	r, err := c.Right.ColumnTypes(binder)
	if err != nil {
		return nil, err
	}
	return append(append(value.Schema{}, l...), r...), nil
}

func (c Cross) ToPhysical(binder Binder) (Physical, error) {
	l, err := c.Left.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	r, err := c.Right.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	return &physCross{left: l, right: r}, nil
}

func (c Cross) String() string { return fmt.Sprintf("Cross(%s, %s)", c.Left, c.Right) }

// HashJoin is an equi-join on LeftKeys/RightKeys column indices. Output
// tuples concatenate the matched left and right tuple in that order.
type HashJoin struct {
	Left      Logical
	Right     Logical
	LeftKeys  []int
	RightKeys []int
}

func (h HashJoin) logicalNode() {}

func (h HashJoin) ColumnTypes(binder Binder) (value.Schema, error) {
	l, err := h.Left.ColumnTypes(binder)
	if err != nil {
		return nil, err
	}
	r, err := h.Right.ColumnTypes(binder)
	if err != nil {
		return nil, err
	}
	return append(append(value.Schema{}, l...), r...), nil
}

func (h HashJoin) ToPhysical(binder Binder) (Physical, error) {
	l, err := h.Left.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	r, err := h.Right.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	return &physHashJoin{
		left: l, right: r,
		leftKeys: h.LeftKeys, rightKeys: h.RightKeys,
	}, nil
}

func (h HashJoin) String() string {
	return fmt.Sprintf("HashJoin(%s, %s)", h.Left, h.Right)
}

// GroupBy partitions Source on KeyIndices (set semantics) and applies
// each Aggs[i] independently to column AggIndices[i]. Output tuples are
// the group's key columns followed by the aggregate results, in
// declaration order.
type GroupBy struct {
	Source     Logical
	KeyIndices []int
	AggIndices []int
	Aggs       []Aggregate
}

func (g GroupBy) logicalNode() {}

func (g GroupBy) ColumnTypes(binder Binder) (value.Schema, error) {
	in, err := g.Source.ColumnTypes(binder)
	if err != nil {
		return nil, err
	}
	out := make(value.Schema, 0, len(g.KeyIndices)+len(g.Aggs))
	for _, idx := range g.KeyIndices {
		out = append(out, in[idx])
	}
	for i, agg := range g.Aggs {
		inKind := in[g.AggIndices[i]].Kind
		out = append(out, value.Column{Name: agg.Name(), Kind: agg.OutputKind(inKind)})
	}
	return out, nil
}

func (g GroupBy) ToPhysical(binder Binder) (Physical, error) {
	src, err := g.Source.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	return &physGroupBy{
		src: src, keyIndices: g.KeyIndices,
		aggIndices: g.AggIndices, aggs: g.Aggs,
	}, nil
}

func (g GroupBy) String() string { return fmt.Sprintf("GroupBy(%s)", g.Source) }

// Count produces exactly one tuple holding the size of its input.
// Re-evaluating a single compiled instance caches the result on first
// call; a fresh Count is compiled every tick, so the cache never
// survives past the tick it was computed in.
type Count struct {
	Source Logical
}

func (c Count) logicalNode() {}

func (c Count) ColumnTypes(Binder) (value.Schema, error) {
	return value.Schema{{Name: "count", Kind: value.KindUint64}}, nil
}

func (c Count) ToPhysical(binder Binder) (Physical, error) {
	src, err := c.Source.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	return &physCount{src: src}, nil
}

func (c Count) String() string { return fmt.Sprintf("Count(%s)", c.Source) }

