package ra

import (
	"sort"

	"github.com/fluentlang/fluent/internal/value"
)

// Iterator yields tuples one at a time. Next returns (tuple, true) while
// tuples remain and (nil, false) once exhausted; it does not reset
// itself — callers that need to range again call Physical.ToRange for a
// fresh Iterator.
type Iterator interface {
	Next() (value.Tuple, bool)
}

// Physical is a lowered, evaluable algebra node. ToRange is restartable:
// each call produces an independent Iterator starting from the
// beginning, so the same Physical tree can be materialized more than
// once within an evaluation (e.g. the probe side of a hash join).
type Physical interface {
	ToRange() Iterator
}

// sliceIter is the common Iterator shape for any node that can eagerly
// produce its full output as a slice.
type sliceIter struct {
	items []value.Tuple
	pos   int
}

func (s *sliceIter) Next() (value.Tuple, bool) {
	if s.pos >= len(s.items) {
		return nil, false
	}
	t := s.items[s.pos]
	s.pos++
	return t, true
}

// physSource ranges over a copy of src's tuples taken when ToRange is
// called.
type physSource struct {
	src TupleSource
}

func (p *physSource) ToRange() Iterator {
	items := make([]value.Tuple, 0, p.src.Len())
	p.src.Each(func(t value.Tuple) { items = append(items, t) })
	return &sliceIter{items: items}
}

// physIterable ranges over a fixed literal tuple slice.
type physIterable struct {
	items []value.Tuple
}

func (p *physIterable) ToRange() Iterator {
	return &sliceIter{items: p.items}
}

// physMap lazily applies fn to each tuple drawn from src.
type physMap struct {
	src Physical
	fn  func(value.Tuple) value.Tuple
}

type mapIter struct {
	inner Iterator
	fn    func(value.Tuple) value.Tuple
}

func (m *mapIter) Next() (value.Tuple, bool) {
	t, ok := m.inner.Next()
	if !ok {
		return nil, false
	}
	return m.fn(t), true
}

func (p *physMap) ToRange() Iterator {
	return &mapIter{inner: p.src.ToRange(), fn: p.fn}
}

// physFilter lazily skips tuples failing pred.
type physFilter struct {
	src  Physical
	pred func(value.Tuple) bool
}

type filterIter struct {
	inner Iterator
	pred  func(value.Tuple) bool
}

func (f *filterIter) Next() (value.Tuple, bool) {
	for {
		t, ok := f.inner.Next()
		if !ok {
			return nil, false
		}
		if f.pred(t) {
			return t, true
		}
	}
}

func (p *physFilter) ToRange() Iterator {
	return &filterIter{inner: p.src.ToRange(), pred: p.pred}
}

// physProject lazily narrows each tuple to the given column indices.
type physProject struct {
	src     Physical
	indices []int
}

type projectIter struct {
	inner   Iterator
	indices []int
}

func (pr *projectIter) Next() (value.Tuple, bool) {
	t, ok := pr.inner.Next()
	if !ok {
		return nil, false
	}
	out := make(value.Tuple, len(pr.indices))
	for i, idx := range pr.indices {
		out[i] = t[idx]
	}
	return out, true
}

func (p *physProject) ToRange() Iterator {
	return &projectIter{inner: p.src.ToRange(), indices: p.indices}
}

// physCross materializes the right side once per left tuple advance,
// since ToRange is restartable: the nested loop re-ranges right for
// every left tuple.
type physCross struct {
	left  Physical
	right Physical
}

type crossIter struct {
	right     Physical
	leftIter  Iterator
	rightIter Iterator
	curLeft   value.Tuple
	haveLeft  bool
}

func (c *crossIter) Next() (value.Tuple, bool) {
	for {
		if !c.haveLeft {
			l, ok := c.leftIter.Next()
			if !ok {
				return nil, false
			}
			c.curLeft = l
			c.haveLeft = true
			c.rightIter = c.right.ToRange()
		}
		r, ok := c.rightIter.Next()
		if !ok {
			c.haveLeft = false
			continue
		}
		out := make(value.Tuple, 0, len(c.curLeft)+len(r))
		out = append(out, c.curLeft...)
		out = append(out, r...)
		return out, true
	}
}

func (p *physCross) ToRange() Iterator {
	return &crossIter{right: p.right, leftIter: p.left.ToRange()}
}

// physHashJoin builds a hash index over whichever side has fewer rows
// materialized, then probes it with the other side.
type physHashJoin struct {
	left, right         Physical
	leftKeys, rightKeys []int
}

func keyOf(t value.Tuple, indices []int) string {
	var b []byte
	for _, idx := range indices {
		b = append(b, t[idx].Canonical()...)
		b = append(b, 0x00)
	}
	return string(b)
}

// tupleKey is keyOf over every column, the whole-tuple tie-break used
// when two rows share a join/group key.
func tupleKey(t value.Tuple) string {
	var b []byte
	for _, v := range t {
		b = append(b, v.Canonical()...)
		b = append(b, 0x00)
	}
	return string(b)
}

// sortByKey orders rows by their keyed columns' canonical bytes, whole
// tuple as tie-break. Collection-backed sources iterate in map order,
// so joins and groupings sort their inputs before indexing to produce
// the same output on every run.
func sortByKey(rows []value.Tuple, keys []int) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := keyOf(rows[i], keys), keyOf(rows[j], keys)
		if a != b {
			return a < b
		}
		return tupleKey(rows[i]) < tupleKey(rows[j])
	})
}

func (p *physHashJoin) ToRange() Iterator {
	leftRows := drain(p.left.ToRange())
	rightRows := drain(p.right.ToRange())
	sortByKey(leftRows, p.leftKeys)
	sortByKey(rightRows, p.rightKeys)

	// index the side with fewer rows, probe with the other.
	buildLeft := len(leftRows) <= len(rightRows)
	index := make(map[string][]value.Tuple)
	var probeKeys []int
	var probeRows []value.Tuple
	if buildLeft {
		for _, t := range leftRows {
			k := keyOf(t, p.leftKeys)
			index[k] = append(index[k], t)
		}
		probeKeys = p.rightKeys
		probeRows = rightRows
	} else {
		for _, t := range rightRows {
			k := keyOf(t, p.rightKeys)
			index[k] = append(index[k], t)
		}
		probeKeys = p.leftKeys
		probeRows = leftRows
	}

	var out []value.Tuple
	for _, probe := range probeRows {
		matches := index[keyOf(probe, probeKeys)]
		for _, m := range matches {
			var left, right value.Tuple
			if buildLeft {
				left, right = m, probe
			} else {
				left, right = probe, m
			}
			joined := make(value.Tuple, 0, len(left)+len(right))
			joined = append(joined, left...)
			joined = append(joined, right...)
			out = append(out, joined)
		}
	}
	return &sliceIter{items: out}
}

func drain(it Iterator) []value.Tuple {
	var out []value.Tuple
	for {
		t, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

// physGroupBy partitions src on keyIndices, applying each agg to column
// aggIndices[i] within the partition.
type physGroupBy struct {
	src        Physical
	keyIndices []int
	aggIndices []int
	aggs       []Aggregate
}

func (p *physGroupBy) ToRange() Iterator {
	rows := drain(p.src.ToRange())
	sortByKey(rows, p.keyIndices)

	order := []string{}
	groups := map[string][]value.Tuple{}
	keys := map[string]value.Tuple{}
	for _, t := range rows {
		k := keyOf(t, p.keyIndices)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
			keyTuple := make(value.Tuple, len(p.keyIndices))
			for i, idx := range p.keyIndices {
				keyTuple[i] = t[idx]
			}
			keys[k] = keyTuple
		}
		groups[k] = append(groups[k], t)
	}

	out := make([]value.Tuple, 0, len(order))
	for _, k := range order {
		members := groups[k]
		row := make(value.Tuple, 0, len(p.keyIndices)+len(p.aggs))
		row = append(row, keys[k]...)
		for i, agg := range p.aggs {
			col := p.aggIndices[i]
			acc := agg.Zero()
			for _, m := range members {
				acc = agg.Step(acc, m[col])
			}
			row = append(row, acc)
		}
		out = append(out, row)
	}
	return &sliceIter{items: out}
}

// physCount produces exactly one tuple: the input's length. The length
// is computed once, the first time ToRange is called on this compiled
// instance — a fresh physCount is lowered on every tick, so the result
// never outlives the tick it measured.
type physCount struct {
	src    Physical
	cached *value.Uint64
}

func (p *physCount) ToRange() Iterator {
	if p.cached == nil {
		n := uint64(len(drain(p.src.ToRange())))
		v := value.Uint64(n)
		p.cached = &v
	}
	return &sliceIter{items: []value.Tuple{{*p.cached}}}
}
