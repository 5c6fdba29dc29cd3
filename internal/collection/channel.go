package collection

import (
	"fmt"

	"github.com/fluentlang/fluent/internal/value"
)

// SendFunc dispatches a single tuple to its destination address (column
// 0), stamped with the logical time the merge that produced it runs
// under. The executor wires this to the network bus + pickler; tests
// wire a capturing stub or leave it nil (a nil SendFunc makes Merge a
// pure local accumulation, useful for unit-testing Channel in isolation).
type SendFunc func(addr string, t value.Tuple, logicalTime int64) error

// Channel is a collection whose contents are transmitted at tick end and
// cleared locally. Column 0 must be a string destination address.
type Channel struct {
	base
	send SendFunc
}

// NewChannel constructs an empty Channel. schema's column 0 must be
// value.KindString (the destination address); this is checked by the
// builder at registration time, not here.
func NewChannel(name string, schema value.Schema, fam value.Family, sink ChangeSink, send SendFunc) *Channel {
	return &Channel{base: newBase(name, KindChannel, schema, fam, sink), send: send}
}

// Merge adds tuples to the channel's local state and, for every freshly
// added tuple, hands it to the network send path using column 0 as the
// destination endpoint. Channel itself does not clear after sending;
// the tick loop clears local state once at tick end, not once per Merge
// call (bootstrap rules and `+=` rules may both merge into the same
// channel within one tick).
func (c *Channel) Merge(tuples *TupleSet, logicalTime int64) error {
	var sendErr error
	tuples.Each(func(t value.Tuple) {
		if err := c.schema.Validate(t); err != nil {
			if sendErr == nil {
				sendErr = fmt.Errorf("collection %q: %w", c.name, err)
			}
			return
		}
		if !c.tuples.Add(t) {
			return
		}
		if c.sink != nil {
			c.sink.Inserted(c.name, t, logicalTime)
		}
		if c.send != nil {
			addr := string(t[0].(value.String))
			if err := c.send(addr, t, logicalTime); err != nil && sendErr == nil {
				sendErr = err
			}
		}
	})
	return sendErr
}

// Deliver inserts tuples that arrived off the wire into the channel's
// local state without re-entering the send path. A received tuple's
// column 0 names this node itself; pushing it back through Merge would
// send it straight back into our own inbox.
func (c *Channel) Deliver(tuples *TupleSet, logicalTime int64) error {
	return c.mergeInto(c.tuples, tuples, logicalTime)
}

// Delete implements Collection. Channels are transport, not storage, but
// Delete is still well-defined against whatever is currently locally
// buffered (e.g. a `-=` rule racing a not-yet-flushed `<=` within the
// same tick).
func (c *Channel) Delete(tuples *TupleSet, logicalTime int64) error {
	return c.deleteFrom(c.tuples, tuples, logicalTime)
}

// Clear empties the channel's local state, called by the executor after
// a successful tick-end flush.
func (c *Channel) Clear(logicalTime int64) {
	if c.sink != nil {
		c.tuples.Each(func(t value.Tuple) {
			c.sink.Deleted(c.name, t, logicalTime)
		})
	}
	c.clear()
}
