// Package collection implements fluent's typed collection variants:
// Table, Scratch, Channel, Stdout, Stdin, and Periodic. Every variant
// implements Collection and stores its tuples in a TupleSet, a
// hash-deduplicated set keyed by the injected hash family — a
// content-addressed, ON-CONFLICT-DO-NOTHING idempotency pattern applied
// to an in-memory set instead of a SQL UNIQUE index.
package collection
