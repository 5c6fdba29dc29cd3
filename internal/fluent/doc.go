// Package fluent implements the per-node rule engine: a builder that
// accumulates typed collection declarations and rules in declaration
// order, and an executor that drives those rules to a fixed point once
// per logical tick, ships channel tuples to peers over a network.Bus,
// and optionally reports every insert/delete/derivation to a
// lineagedb.Client.
//
// Collections and rules are declared once, during the builder phase,
// and never mutated afterward; a single goroutine drives Tick and
// Receive — there is no intra-node concurrency over collection state.
package fluent
