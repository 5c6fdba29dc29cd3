// Package ra implements the relational algebra every rule body compiles
// to: a logical tree built by the caller, lowered to a physical tree of
// restartable lazy iterators at evaluation time. The split mirrors a
// query-plan/execution-plan separation — logical nodes know only their
// output schema and how to lower, physical nodes know only how to
// produce tuples.
package ra
