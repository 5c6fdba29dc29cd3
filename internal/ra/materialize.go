package ra

import "github.com/fluentlang/fluent/internal/value"

// Materialize lowers logical to a physical tree against binder and drains
// it into a plain tuple slice — the `materialize(r)` step every rule
// operator (`<=`, `+=`, `-=`) performs before calling Collection.Merge or
// Collection.Delete.
func Materialize(logical Logical, binder Binder) ([]value.Tuple, error) {
	phys, err := logical.ToPhysical(binder)
	if err != nil {
		return nil, err
	}
	return drain(phys.ToRange()), nil
}
