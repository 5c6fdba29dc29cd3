package fluent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fluentlang/fluent/internal/collection"
	"github.com/fluentlang/fluent/internal/lineagedb"
	"github.com/fluentlang/fluent/internal/logging"
	"github.com/fluentlang/fluent/internal/network"
	"github.com/fluentlang/fluent/internal/ra"
	"github.com/fluentlang/fluent/internal/status"
	"github.com/fluentlang/fluent/internal/value"
	"github.com/fluentlang/fluent/internal/wire"
)

// DefaultRecvTimeout bounds a single Receive call's wait for an inbound
// frame, so Run's loop keeps ticking even on a quiet network.
const DefaultRecvTimeout = 100 * time.Millisecond

// Executor drives one node's declared rules: BootstrapTick once, then
// Tick on every logical clock step, and Receive to drain inbound network
// frames into their target Channel. A single goroutine is expected to
// drive all three — none of the state below is synchronized.
type Executor struct {
	name     string
	bindAddr string

	collections []collection.Collection
	index       map[string]int

	bootstrapRules []Rule
	rules          []Rule
	bootstrapped   bool

	logicalTime int64

	clock   Clock
	fam     value.Family
	lineage lineagedb.Client
	bus     network.Bus
	pickler wire.Pickler

	maxFixpointIterations int

	logger *logrus.Entry
}

// Name returns the node's configured name.
func (e *Executor) Name() string { return e.name }

// Collection returns the named declared collection, or (nil, false) if
// no such collection was declared.
func (e *Executor) Collection(name string) (collection.Collection, bool) {
	idx, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.collections[idx], true
}

// LogicalTime reports the last committed tick number (0 before the
// first BootstrapTick/Tick call).
func (e *Executor) LogicalTime() int64 { return e.logicalTime }

// Close releases the lineage client and any other held resources.
func (e *Executor) Close() error {
	return e.lineage.Close()
}

// executorBinder implements ra.Binder against the executor's live
// collection state, so a rule compiled mid-fixpoint sees whatever has
// already merged immediately (`+=`/`-=`) earlier in the same pass.
type executorBinder struct {
	e *Executor
}

func (b executorBinder) Resolve(name string) (value.Schema, ra.TupleSource, error) {
	c, ok := b.e.Collection(name)
	if !ok {
		return nil, nil, status.New(status.SchemaError, "fluent: rule references unknown collection %q", name)
	}
	return c.Schema(), tupleSetSource{c.Get()}, nil
}

// tupleSetSource adapts *collection.TupleSet to ra.TupleSource.
type tupleSetSource struct {
	s *collection.TupleSet
}

func (t tupleSetSource) Each(fn func(value.Tuple)) { t.s.Each(fn) }
func (t tupleSetSource) Len() int                  { return t.s.Len() }

// BootstrapTick runs the bootstrap rule list exactly once, to a fixed
// point, committing at logical time 0. Calling it more than once is a
// no-op; Tick runs it first if it has not yet completed.
func (e *Executor) BootstrapTick() error {
	if e.bootstrapped {
		return nil
	}
	if err := e.runTick(e.bootstrapRules, false); err != nil {
		return err
	}
	e.bootstrapped = true
	return nil
}

// Tick advances logical time by one and runs the per-tick rule list to a
// fixed point, committing deferred (`<=`) rules' output at the new
// logical time.
func (e *Executor) Tick() error {
	if !e.bootstrapped {
		if err := e.BootstrapTick(); err != nil {
			return err
		}
	}
	return e.runTick(e.rules, true)
}

// runTick drives rules to a fixed point: every `+=`/`-=` rule's output
// merges or deletes immediately, visible to later rules in the same
// pass; every `<=` rule's output stages into its target's deferred
// buffer and is held until the pass stabilizes (no rule's firing
// changed anything), at which point all deferred buffers flush in one
// commit and every channel/scratch/stdout clears. advanceTime selects
// whether the commit stamps the new logical time (Tick) or time zero
// (BootstrapTick).
func (e *Executor) runTick(rules []Rule, advanceTime bool) error {
	commitTime := e.logicalTime
	if advanceTime {
		commitTime = e.logicalTime + 1
	}

	// The rollback point is taken before sources are polled, so a tick
	// that fails its fixpoint restores the state as of the last commit,
	// not as of "last commit plus whatever stdin/periodics injected".
	snapshots := e.snapshotAll()
	e.pollSources(commitTime)
	tickLog := logging.TickLogger(e.logger, commitTime).WithField("trace_id", uuid.NewString())

	binder := executorBinder{e: e}
	iterations := 0
	for {
		iterations++
		if iterations > e.maxFixpointIterations {
			e.restoreAll(snapshots)
			return status.New(status.FixpointError,
				"fluent: node %q exceeded %d fixpoint iterations", e.name, e.maxFixpointIterations)
		}

		before := e.stateSignature()
		for _, r := range rules {
			if err := e.fire(r, binder, commitTime, tickLog); err != nil {
				e.restoreAll(snapshots)
				return err
			}
		}
		if e.stateSignature() == before {
			tickLog.WithField("iterations", iterations).Debug("fluent: fixpoint stabilized")
			break
		}
	}

	for _, c := range e.collections {
		n := c.TakeDeferred()
		if n.Len() == 0 {
			continue
		}
		if err := c.Merge(n, commitTime); err != nil {
			e.restoreAll(snapshots)
			return err
		}
	}

	for _, c := range e.collections {
		if c.CollKind() != collection.KindTable {
			c.Clear(commitTime)
		}
	}

	if advanceTime {
		e.logicalTime = commitTime
	}
	return nil
}

// pollSources drains every Stdin's pending lines and fires every
// Periodic whose deadline has elapsed, once per tick and before rule
// evaluation begins, so the first fixpoint pass already sees them.
func (e *Executor) pollSources(logicalTime int64) {
	now := e.clock.Now()
	for _, c := range e.collections {
		switch src := c.(type) {
		case *collection.Stdin:
			src.Poll(logicalTime)
		case *collection.Periodic:
			src.Emit(now, logicalTime)
		}
	}
}

// fire materializes one rule's logical tree against the live binder and
// applies its output per its Op, recording derived lineage for every
// produced tuple against every base collection the rule read from.
func (e *Executor) fire(r Rule, binder ra.Binder, commitTime int64, tickLog *logrus.Entry) error {
	phys, err := r.Logical.ToPhysical(binder)
	if err != nil {
		return status.Wrap(status.SchemaError, err, "fluent: rule %d (%s)", r.ID, r.TargetName)
	}
	out := collection.NewTupleSet(e.fam)
	it := phys.ToRange()
	for {
		t, ok := it.Next()
		if !ok {
			break
		}
		out.Add(t)
	}

	target := e.collections[r.Target]
	switch r.Op {
	case OpDefer:
		target.DeferredMerge(out)
	case OpMerge:
		if err := target.Merge(out, commitTime); err != nil {
			return status.Wrap(status.SchemaError, err, "fluent: rule %d (%s)", r.ID, r.TargetName)
		}
	case OpDelete:
		if err := target.Delete(out, commitTime); err != nil {
			return status.Wrap(status.SchemaError, err, "fluent: rule %d (%s)", r.ID, r.TargetName)
		}
	}

	logging.RuleLogger(tickLog, r.ID, r.TargetName).
		WithField("produced", out.Len()).Trace("fluent: rule fired")

	e.recordDerivedLineage(r, out, commitTime)
	return nil
}

// recordDerivedLineage links every tuple a rule produced back to every
// base collection it read from (ra.Deps), a deliberate simplification:
// the lineage model records rule-level provenance rather than tracing
// exactly which input tuple(s) a join matched to produce each output row.
func (e *Executor) recordDerivedLineage(r Rule, out *collection.TupleSet, commitTime int64) {
	deps := r.deps
	if len(deps) == 0 || out.Len() == 0 {
		return
	}
	inserted := r.Op != OpDelete
	out.Each(func(t value.Tuple) {
		h := out.HashOf(t)
		for _, dep := range deps {
			depColl, ok := e.Collection(dep)
			if !ok {
				continue
			}
			depSet := depColl.Get()
			depSet.Each(func(dt value.Tuple) {
				depHash := depSet.HashOf(dt)
				_ = e.lineage.AddDerivedLineage(dep, depHash, r.ID, inserted, r.TargetName, h, commitTime)
			})
		}
	})
}

// snapshotAll takes a Snapshotter rollback point for every collection
// that supports it (every concrete variant, via base), so a fixpoint
// that exceeds maxFixpointIterations can be rolled back to leave no
// partial per-tick state visible.
func (e *Executor) snapshotAll() []*collection.TupleSet {
	out := make([]*collection.TupleSet, len(e.collections))
	for i, c := range e.collections {
		if s, ok := c.(collection.Snapshotter); ok {
			out[i] = s.Snapshot()
		}
	}
	return out
}

func (e *Executor) restoreAll(snapshots []*collection.TupleSet) {
	for i, c := range e.collections {
		if s, ok := c.(collection.Snapshotter); ok && snapshots[i] != nil {
			s.Restore(snapshots[i])
		}
	}
}

// stateSignature folds every collection's live and staged-deferred
// contents into one digest, used to detect a fixpoint pass that changed
// nothing. It hashes contents rather than comparing sizes: a pass that
// deletes one tuple and inserts another leaves every length unchanged
// but must not be mistaken for a fixpoint.
func (e *Executor) stateSignature() uint64 {
	var sig uint64
	for i, c := range e.collections {
		mix := uint64(i)*0x9e3779b97f4a7c15 + 1
		sig ^= c.Get().ContentSignature() * mix
		sig ^= c.DeferredSignature() * (mix << 1)
	}
	return sig
}

// recordInsert forwards a collection.ChangeSink Inserted notification to
// the lineage client, called by lineageBridge once the Executor exists.
func (e *Executor) recordInsert(coll string, t value.Tuple, logicalTime int64) {
	values, err := lineagedb.TupleToSQLValues(t)
	if err != nil {
		e.logger.WithError(err).WithField("collection", coll).Warn("fluent: lineage insert encode failed")
		return
	}
	c, ok := e.Collection(coll)
	if !ok {
		return
	}
	h := c.Get().HashOf(t)
	if err := e.lineage.InsertTuple(coll, logicalTime, h, values); err != nil {
		e.logger.WithError(err).WithField("collection", coll).Warn("fluent: lineage InsertTuple failed")
	}
}

// recordDelete mirrors recordInsert for collection.ChangeSink's Deleted
// notification.
func (e *Executor) recordDelete(coll string, t value.Tuple, logicalTime int64) {
	values, err := lineagedb.TupleToSQLValues(t)
	if err != nil {
		e.logger.WithError(err).WithField("collection", coll).Warn("fluent: lineage delete encode failed")
		return
	}
	h := e.fam.Hash(t)
	if err := e.lineage.DeleteTuple(coll, logicalTime, h, values); err != nil {
		e.logger.WithError(err).WithField("collection", coll).Warn("fluent: lineage DeleteTuple failed")
	}
}

// dispatch pickles t and sends it to addr over the bus on behalf of
// channelName, recording networked lineage on successful send. Lineage
// is recorded send-side: depNode names this node itself (the frame's
// origin), since network.Frame carries no sender identity for the
// receiving node's own executor to attribute the fact to — each node's
// lineage ledger only ever records facts about its own local state, and
// "this tuple was dispatched outbound from here" is the fact this node
// can state authoritatively.
func (e *Executor) dispatch(channelName, addr string, t value.Tuple, logicalTime int64) error {
	payload, err := e.pickler.Pickle(t)
	if err != nil {
		return status.Wrap(status.SerializationError, err, "fluent: pickle %q tuple for %s", channelName, addr)
	}
	if err := e.bus.Send(addr, network.Frame{ChannelName: channelName, Payload: payload}); err != nil {
		return status.Wrap(status.NetworkError, err, "fluent: send %q to %s", channelName, addr)
	}
	c, ok := e.Collection(channelName)
	if ok {
		h := c.Get().HashOf(t)
		if lerr := e.lineage.AddNetworkedLineage(e.name, logicalTime, channelName, h, logicalTime); lerr != nil {
			e.logger.WithError(lerr).WithField("channel", channelName).Warn("fluent: lineage AddNetworkedLineage failed")
		}
	}
	return nil
}

// Receive blocks for up to timeout waiting for one inbound frame, then
// unpickles and merges it into the named channel collection. ok is false
// (with a nil error) on timeout; a Channel for a frame naming an
// undeclared collection is a NetworkError, not silently dropped.
func (e *Executor) Receive(timeout time.Duration) (ok bool, err error) {
	frame, received, err := e.bus.Recv(timeout)
	if err != nil {
		return false, status.Wrap(status.NetworkError, err, "fluent: recv")
	}
	if !received {
		return false, nil
	}
	c, known := e.Collection(frame.ChannelName)
	if !known {
		return false, status.New(status.NetworkError, "fluent: frame for unknown channel %q", frame.ChannelName)
	}
	t, err := e.pickler.Unpickle(frame.Payload, c.Schema())
	if err != nil {
		return false, status.Wrap(status.SerializationError, err, "fluent: unpickle %q frame", frame.ChannelName)
	}
	ch, isChannel := c.(*collection.Channel)
	if !isChannel {
		return false, status.New(status.NetworkError, "fluent: frame for non-channel collection %q", frame.ChannelName)
	}
	single := collection.NewTupleSet(e.fam)
	single.Add(t)
	if err := ch.Deliver(single, e.logicalTime); err != nil {
		return false, status.Wrap(status.SchemaError, err, "fluent: merge received %q tuple", frame.ChannelName)
	}
	return true, nil
}

// Run drives BootstrapTick once, then Receive/Tick in a loop until ctx
// is canceled: every DefaultRecvTimeout without an inbound frame, a Tick
// fires; every inbound frame merges immediately and the next Tick picks
// it up.
func (e *Executor) Run(ctx context.Context) error {
	if err := e.BootstrapTick(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, err := e.Receive(DefaultRecvTimeout)
		if err != nil {
			return err
		}
		if err := e.Tick(); err != nil {
			return err
		}
	}
}

// RegisterBlackBoxLineage installs an opaque SQL lineage function pair
// linking requestColl's tuples to responseColl's, joined on joinColumn
// (present in both collections' schemas), via two Exec calls against
// the lineage client: one defining the impl function whose body the
// caller supplies, one defining the dispatch function that joins the
// two collections on joinColumn and calls the impl per matching pair.
//
// The generated statements are CREATE FUNCTION definitions, so the
// wired Client must be backed by a SQL engine that supports stored SQL
// functions. The bundled SQLite client is not — it rejects the first
// Exec with a status.LineageError naming the limitation, which this
// method returns as the registration result.
func (e *Executor) RegisterBlackBoxLineage(requestColl, responseColl, joinColumn string, body lineagedb.BlackBoxBody) error {
	req, ok := e.Collection(requestColl)
	if !ok {
		return status.New(status.SchemaError, "fluent: black-box lineage: unknown request collection %q", requestColl)
	}
	resp, ok := e.Collection(responseColl)
	if !ok {
		return status.New(status.SchemaError, "fluent: black-box lineage: unknown response collection %q", responseColl)
	}
	if req.Schema().IndexOf(joinColumn) < 0 || resp.Schema().IndexOf(joinColumn) < 0 {
		return status.New(status.SchemaError,
			"fluent: black-box lineage: join column %q missing from %q or %q", joinColumn, requestColl, responseColl)
	}
	reqTypes, err := sqlTypesOf(req.Schema())
	if err != nil {
		return status.Wrap(status.SchemaError, err, "fluent: black-box lineage: %q", requestColl)
	}
	respTypes, err := sqlTypesOf(resp.Schema())
	if err != nil {
		return status.Wrap(status.SchemaError, err, "fluent: black-box lineage: %q", responseColl)
	}
	sql := lineagedb.BuildBlackBoxSQL(lineagedb.BlackBoxSpec{
		NodeName:           e.name,
		RequestCollection:  requestColl,
		RequestColumns:     req.Schema().Names(),
		RequestTypes:       reqTypes,
		ResponseCollection: responseColl,
		ResponseColumns:    resp.Schema().Names(),
		ResponseTypes:      respTypes,
		JoinColumn:         joinColumn,
	}, body)
	if err := e.lineage.Exec(sql.Impl); err != nil {
		return status.Wrap(status.LineageError, err, "fluent: black-box lineage impl for %s", responseColl)
	}
	if err := e.lineage.Exec(sql.Dispatch); err != nil {
		return status.Wrap(status.LineageError, err, "fluent: black-box lineage dispatch for %s", responseColl)
	}
	return nil
}

func sqlTypesOf(schema value.Schema) ([]string, error) {
	out := make([]string, len(schema))
	for i, k := range schema.Kinds() {
		t, err := lineagedb.SQLTypeOf(k)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// String renders the node for diagnostic logging.
func (e *Executor) String() string {
	return fmt.Sprintf("fluent.Executor(%s @ %s, t=%d)", e.name, e.bindAddr, e.logicalTime)
}
