package collection

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/fluentlang/fluent/internal/value"
)

// Stdout is a write-only sink: every merged tuple becomes one line on an
// injected io.Writer (defaulting to os.Stdout), and the buffer is cleared
// every tick.
type Stdout struct {
	base
	w   *bufio.Writer
	raw io.Writer
}

// NewStdout constructs a Stdout collection writing to w (os.Stdout if
// nil).
func NewStdout(name string, schema value.Schema, fam value.Family, sink ChangeSink, w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{base: newBase(name, KindStdout, schema, fam, sink), w: bufio.NewWriter(w), raw: w}
}

// Merge writes each freshly merged tuple as one line: the bare string for
// single-column string tuples, otherwise a comma-joined textual form,
// each line newline-terminated.
func (s *Stdout) Merge(tuples *TupleSet, logicalTime int64) error {
	var err error
	tuples.Each(func(t value.Tuple) {
		if verr := s.schema.Validate(t); verr != nil {
			if err == nil {
				err = fmt.Errorf("collection %q: %w", s.name, verr)
			}
			return
		}
		if !s.tuples.Add(t) {
			return
		}
		if s.sink != nil {
			s.sink.Inserted(s.name, t, logicalTime)
		}
		fmt.Fprintf(s.w, "%s\n", t.String())
	})
	if err == nil {
		err = s.w.Flush()
	}
	return err
}

// Delete is a documented no-op: a sink has nothing meaningful to remove.
func (s *Stdout) Delete(tuples *TupleSet, logicalTime int64) error { return nil }

// Clear empties the buffered-tuple bookkeeping (used only for
// dedup-within-a-tick); already-written lines stay written, matching the
// rule that "a sink translates each merged tuple into a line" —
// Stdout has no memory of prior ticks' lines to unwrite.
func (s *Stdout) Clear(logicalTime int64) {
	if s.sink != nil {
		s.tuples.Each(func(t value.Tuple) {
			s.sink.Deleted(s.name, t, logicalTime)
		})
	}
	s.clear()
}
