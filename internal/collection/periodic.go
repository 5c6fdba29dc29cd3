package collection

import (
	"time"

	"github.com/fluentlang/fluent/internal/value"
)

// Periodic emits a tuple (id, time) on every elapsed period. It is
// constructed with a stable id and a period duration; the executor
// consults DueAt/Emit during polling, before rule evaluation each tick.
type Periodic struct {
	base
	id       string
	period   time.Duration
	lastFire time.Time
}

// NewPeriodic constructs a Periodic collection. Schema is fixed as
// (id string, time int64-seconds-since-unix-epoch).
func NewPeriodic(name, id string, period time.Duration, fam value.Family, sink ChangeSink) *Periodic {
	schema := value.Schema{
		{Name: "id", Kind: value.KindString},
		{Name: "time", Kind: value.KindInt64},
	}
	return &Periodic{
		base:   newBase(name, KindPeriodic, schema, fam, sink),
		id:     id,
		period: period,
	}
}

// DueAt reports whether the period has elapsed as of now.
func (p *Periodic) DueAt(now time.Time) bool {
	return p.lastFire.IsZero() || now.Sub(p.lastFire) >= p.period
}

// Emit synthesizes and merges a tuple (id, now) if the period has
// elapsed, stamped with logicalTime for lineage. Returns the emitted
// tuple and true if one was emitted.
func (p *Periodic) Emit(now time.Time, logicalTime int64) (value.Tuple, bool) {
	if !p.DueAt(now) {
		return nil, false
	}
	p.lastFire = now
	t := value.Tuple{value.String(p.id), value.Int64(now.Unix())}
	if p.tuples.Add(t) && p.sink != nil {
		p.sink.Inserted(p.name, t, logicalTime)
	}
	return t, true
}

// Merge implements Collection; periodics are read-only from rules.
func (p *Periodic) Merge(tuples *TupleSet, logicalTime int64) error { return nil }

// Delete is a no-op: periodics are read-only from rules.
func (p *Periodic) Delete(tuples *TupleSet, logicalTime int64) error { return nil }

// Clear empties the currently-visible emission; the next elapsed period
// produces a fresh one.
func (p *Periodic) Clear(logicalTime int64) {
	if p.sink != nil {
		p.tuples.Each(func(t value.Tuple) {
			p.sink.Deleted(p.name, t, logicalTime)
		})
	}
	p.clear()
}
