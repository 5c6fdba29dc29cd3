package collection

import (
	"bufio"
	"io"
	"sync"

	"github.com/fluentlang/fluent/internal/value"
)

// Stdin is a read-only source producing one (line string) tuple per line
// read asynchronously from an injected io.Reader.
// A single background goroutine scans the reader and pushes lines into a
// buffered channel; Poll drains whatever has arrived without blocking,
// merging it into the collection's visible tuple set. This is the one
// place outside Executor.Receive that crosses a goroutine boundary, kept
// deliberately narrow: one goroutine, one channel, no shared mutable
// state beyond the channel itself.
type Stdin struct {
	base
	lines chan string
	once  sync.Once
}

// NewStdin constructs a Stdin collection reading lines from r. Schema
// must be a single string column.
func NewStdin(name string, schema value.Schema, fam value.Family, sink ChangeSink, r io.Reader) *Stdin {
	s := &Stdin{base: newBase(name, KindStdin, schema, fam, sink), lines: make(chan string, 64)}
	go s.scan(r)
	return s
}

func (s *Stdin) scan(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
	close(s.lines)
}

// Poll drains any lines that have arrived since the last call, merging
// each as a one-column string tuple, stamped with logicalTime. Intended
// to be called once per tick, before rule evaluation, analogous to how
// Periodic.Emit is consulted pre-tick.
func (s *Stdin) Poll(logicalTime int64) {
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return
			}
			t := value.Tuple{value.String(line)}
			if s.tuples.Add(t) && s.sink != nil {
				s.sink.Inserted(s.name, t, logicalTime)
			}
		default:
			return
		}
	}
}

// Merge implements Collection for symmetry with the other variants, but
// is a no-op: Stdin is read-only from rules; only Poll populates it.
func (s *Stdin) Merge(tuples *TupleSet, logicalTime int64) error { return nil }

// Delete is a no-op: Stdin is read-only from rules.
func (s *Stdin) Delete(tuples *TupleSet, logicalTime int64) error { return nil }

// Clear empties the currently-visible lines; new lines keep arriving via
// the background goroutine regardless.
func (s *Stdin) Clear(logicalTime int64) {
	if s.sink != nil {
		s.tuples.Each(func(t value.Tuple) {
			s.sink.Deleted(s.name, t, logicalTime)
		})
	}
	s.clear()
}
