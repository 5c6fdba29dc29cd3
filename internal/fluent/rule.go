package fluent

import (
	"fmt"

	"github.com/fluentlang/fluent/internal/ra"
)

// Op names a rule's merge discipline: the Go rendering of the rule
// language's `<=`/`+=`/`-=` infix operators (Go has no
// operator-overloading surface to repurpose those tokens onto).
type Op int

const (
	// OpDefer is `c <= r`: materialized tuples commit to c only at tick
	// end, once the fixpoint has stabilized.
	OpDefer Op = iota
	// OpMerge is `c += r`: materialized tuples merge into c immediately,
	// visible to subsequent rules within the same fixpoint pass.
	OpMerge
	// OpDelete is `c -= r`: materialized tuples are removed from c
	// immediately, visible to subsequent rules within the same pass.
	OpDelete
)

// Symbol renders the operator the way rule text should read in
// lineage's AddRule/rule-stringification.
func (o Op) Symbol() string {
	switch o {
	case OpDefer:
		return "<="
	case OpMerge:
		return "+="
	case OpDelete:
		return "-="
	default:
		return "?="
	}
}

// Rule is one declared rule: its stable id (declaration order), the
// target collection it writes to, its merge discipline, and the logical
// algebra tree materialized each tick. Bootstrap marks a rule as
// belonging to the one-time bootstrap list rather than the per-tick list.
type Rule struct {
	ID         int
	Bootstrap  bool
	Target     int
	TargetName string
	Op         Op
	Logical    ra.Logical

	deps []string
}

// String renders the rule's canonical text, e.g. "t <= Count(t)", the
// form recorded via lineagedb.Client.AddRule.
func (r Rule) String() string {
	return fmt.Sprintf("%s %s %s", r.TargetName, r.Op.Symbol(), r.Logical)
}

// Handle is the builder's per-collection reference passed into
// RegisterBootstrapRules/RegisterRules callbacks, exposing the three
// rule constructors bound to this collection.
type Handle struct {
	name  string
	index int
}

// Defer builds a `c <= expr` rule against this handle's collection.
func (h Handle) Defer(expr ra.Logical) Rule {
	return Rule{Target: h.index, TargetName: h.name, Op: OpDefer, Logical: expr}
}

// Merge builds a `c += expr` rule against this handle's collection.
func (h Handle) Merge(expr ra.Logical) Rule {
	return Rule{Target: h.index, TargetName: h.name, Op: OpMerge, Logical: expr}
}

// DeleteWhere builds a `c -= expr` rule against this handle's collection.
func (h Handle) DeleteWhere(expr ra.Logical) Rule {
	return Rule{Target: h.index, TargetName: h.name, Op: OpDelete, Logical: expr}
}

// Handles maps every declared collection's name to its Handle, passed to
// RegisterBootstrapRules/RegisterRules callbacks in place of the
// source's "references to each declared collection."
type Handles map[string]Handle
