package fluent

import (
	"io"
	"os"
	"time"

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

// DefaultMaxFixpointIterations bounds the per-tick fixpoint loop. Rule
// sets that converge do so within a handful of passes; a set that needs
// anywhere near a thousand is diverging.
const DefaultMaxFixpointIterations = 1000

// Builder accumulates a node's collection declarations, in order, then
// its bootstrap and per-tick rules, yielding an Executor. Declaration
// order defines each collection's index and each rule's id, and is
// never mutated after RegisterRules finalizes it.
type Builder struct {
	name     string
	bindAddr string

	bus     network.Bus
	pickler wire.Pickler
	lineage lineagedb.Client
	fam     value.Family
	clock   Clock
	logger  *logrus.Entry

	maxFixpointIterations int

	collections []collection.Collection
	index       map[string]int

	bootstrapRules []Rule
	rules          []Rule
	nextRuleID     int

	lineageBr *lineageBridge
	sendBr    *sendBridge

	rulesRegistered bool
}

// Option configures a Builder at construction time.
type Option func(*Builder)

// WithFamily overrides the default SHA-256 hash family.
func WithFamily(fam value.Family) Option {
	return func(b *Builder) { b.fam = fam }
}

// WithClock overrides the default wall clock.
func WithClock(c Clock) Option {
	return func(b *Builder) { b.clock = c }
}

// WithPickler overrides the default gob-based Pickler.
func WithPickler(p wire.Pickler) Option {
	return func(b *Builder) { b.pickler = p }
}

// WithLogger overrides the default logrus.StandardLogger-backed logger.
func WithLogger(l *logrus.Logger) Option {
	return func(b *Builder) { b.logger = logging.NodeLogger(l, b.name) }
}

// WithMaxFixpointIterations overrides DefaultMaxFixpointIterations.
func WithMaxFixpointIterations(n int) Option {
	return func(b *Builder) { b.maxFixpointIterations = n }
}

// WithLineageClient overrides the lineagedb.Client NewBuilder resolved
// from connConfig, letting tests wire a lineagedb.Mock directly instead
// of going through a ConnectionConfig.
func WithLineageClient(c lineagedb.Client) Option {
	return func(b *Builder) { b.lineage = c }
}

// NewBuilder constructs a Builder for a node named name, bound to
// bindAddr on bus, with lineage reported to connConfig's resolved
// client (Noop if connConfig.Database is empty).
func NewBuilder(name, bindAddr string, bus network.Bus, connConfig lineagedb.ConnectionConfig, opts ...Option) (*Builder, error) {
	if name == "" {
		return nil, status.New(status.ConfigError, "fluent: node name must not be empty")
	}
	if err := bus.Bind(bindAddr); err != nil {
		return nil, status.Wrap(status.ConfigError, err, "fluent: bind %q", bindAddr)
	}
	lineage, err := connConfig.Open(name)
	if err != nil {
		return nil, status.Wrap(status.LineageError, err, "fluent: open lineage store")
	}

	b := &Builder{
		name:                  name,
		bindAddr:              bindAddr,
		bus:                   bus,
		pickler:               wire.GobPickler{},
		lineage:               lineage,
		fam:                   value.DefaultFamily{},
		clock:                 SystemClock{},
		maxFixpointIterations: DefaultMaxFixpointIterations,
		index:                 make(map[string]int),
		lineageBr:             &lineageBridge{},
		sendBr:                &sendBridge{},
	}
	b.logger = logging.NodeLogger(nil, name)

	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Builder) declare(name string, c collection.Collection) (*Builder, error) {
	if _, exists := b.index[name]; exists {
		return b, status.New(status.SchemaError, "fluent: duplicate collection name %q", name)
	}
	b.index[name] = len(b.collections)
	b.collections = append(b.collections, c)
	return b, nil
}

// Table declares a persistent-across-ticks collection.
func (b *Builder) Table(name string, schema value.Schema) (*Builder, error) {
	return b.declare(name, collection.NewTable(name, schema, b.fam, b.lineageBr))
}

// Scratch declares a collection cleared at the end of every tick.
func (b *Builder) Scratch(name string, schema value.Schema) (*Builder, error) {
	return b.declare(name, collection.NewScratch(name, schema, b.fam, b.lineageBr))
}

// Channel declares a collection whose contents are shipped to their
// column-0 destination address and cleared locally at tick end.
// schema's column 0 must be value.KindString.
func (b *Builder) Channel(name string, schema value.Schema) (*Builder, error) {
	if len(schema) == 0 || schema[0].Kind != value.KindString {
		return b, status.New(status.SchemaError, "fluent: channel %q column 0 must be a string destination address", name)
	}
	send := b.sendBr.sendFor(name)
	return b.declare(name, collection.NewChannel(name, schema, b.fam, b.lineageBr, send))
}

// Stdout declares a write-only sink writing one line per merged tuple to
// w (os.Stdout if nil).
func (b *Builder) Stdout(name string, schema value.Schema, w io.Writer) (*Builder, error) {
	return b.declare(name, collection.NewStdout(name, schema, b.fam, b.lineageBr, w))
}

// Stdin declares a read-only, single string-column source producing one
// tuple per line read asynchronously from r (os.Stdin if nil).
func (b *Builder) Stdin(name string, r io.Reader) (*Builder, error) {
	if r == nil {
		r = os.Stdin
	}
	schema := value.Schema{{Name: "line", Kind: value.KindString}}
	return b.declare(name, collection.NewStdin(name, schema, b.fam, b.lineageBr, r))
}

// Periodic declares a read-only source emitting (id, time) on every
// elapsed period.
func (b *Builder) Periodic(name, id string, period time.Duration) (*Builder, error) {
	return b.declare(name, collection.NewPeriodic(name, id, period, b.fam, b.lineageBr))
}

// RegisterBootstrapRules declares the rules run exactly once before
// normal ticking. Optional; call at most once, before RegisterRules.
func (b *Builder) RegisterBootstrapRules(cb func(Handles) []Rule) (*Builder, error) {
	if b.rulesRegistered {
		return b, status.New(status.SchemaError, "fluent: RegisterBootstrapRules called after RegisterRules")
	}
	rules := cb(b.handles())
	if err := b.finalizeRules(rules, true); err != nil {
		return b, err
	}
	b.bootstrapRules = rules
	return b, nil
}

// RegisterRules declares the rules run on every tick and finalizes the
// builder into an Executor. Required.
func (b *Builder) RegisterRules(cb func(Handles) []Rule) (*Executor, error) {
	rules := cb(b.handles())
	if err := b.finalizeRules(rules, false); err != nil {
		return nil, err
	}
	b.rules = rules
	b.rulesRegistered = true
	return b.build()
}

func (b *Builder) handles() Handles {
	h := make(Handles, len(b.collections))
	for name, idx := range b.index {
		h[name] = Handle{name: name, index: idx}
	}
	return h
}

// finalizeRules assigns stable, monotonically increasing ids across both
// the bootstrap and regular rule lists (so lineage's rule_number stays
// unique regardless of which list a rule belongs to) and validates each
// rule's materialized output schema against its target collection.
func (b *Builder) finalizeRules(rules []Rule, bootstrap bool) error {
	binder := schemaBinder{schemas: b.schemas()}
	for i := range rules {
		rules[i].ID = b.nextRuleID
		b.nextRuleID++
		rules[i].Bootstrap = bootstrap
		rules[i].deps = ra.Deps(rules[i].Logical)

		out, err := rules[i].Logical.ColumnTypes(binder)
		if err != nil {
			return status.Wrap(status.SchemaError, err, "fluent: rule %d (%s)", rules[i].ID, rules[i].TargetName)
		}
		target := b.collections[rules[i].Target]
		if !kindsEqual(out.Kinds(), target.Schema().Kinds()) {
			return status.New(status.SchemaError,
				"fluent: rule %d output schema %v does not match target %q schema %v",
				rules[i].ID, out.Kinds(), target.Name(), target.Schema().Kinds())
		}
	}
	return nil
}

func (b *Builder) schemas() map[string]value.Schema {
	out := make(map[string]value.Schema, len(b.collections))
	for name, idx := range b.index {
		out[name] = b.collections[idx].Schema()
	}
	return out
}

func kindsEqual(a, c []value.Kind) bool {
	if len(a) != len(c) {
		return false
	}
	for i := range a {
		if a[i] != c[i] {
			return false
		}
	}
	return true
}

// schemaBinder resolves collection names to their declared schema only,
// used during RegisterRules/RegisterBootstrapRules validation before an
// Executor (and its live collection state) exists.
type schemaBinder struct {
	schemas map[string]value.Schema
}

func (sb schemaBinder) Resolve(name string) (value.Schema, ra.TupleSource, error) {
	s, ok := sb.schemas[name]
	if !ok {
		return nil, nil, status.New(status.SchemaError, "fluent: rule references unknown collection %q", name)
	}
	return s, emptySource{}, nil
}

type emptySource struct{}

func (emptySource) Each(func(value.Tuple)) {}
func (emptySource) Len() int               { return 0 }

func (b *Builder) build() (*Executor, error) {
	if err := b.lineage.Init(); err != nil {
		return nil, status.Wrap(status.LineageError, err, "fluent: lineage Init")
	}
	for _, c := range b.collections {
		kinds := c.Schema().Kinds()
		sqlTypes := make([]string, len(kinds))
		for i, k := range kinds {
			t, err := lineagedb.SQLTypeOf(k)
			if err != nil {
				return nil, status.Wrap(status.SchemaError, err, "fluent: collection %q", c.Name())
			}
			sqlTypes[i] = t
		}
		if err := b.lineage.AddCollection(c.Name(), string(c.CollKind()), c.Schema().Names(), sqlTypes); err != nil {
			return nil, status.Wrap(status.LineageError, err, "fluent: AddCollection %q", c.Name())
		}
	}
	for _, r := range b.bootstrapRules {
		if err := b.lineage.AddRule(r.ID, true, r.String()); err != nil {
			return nil, status.Wrap(status.LineageError, err, "fluent: AddRule %d", r.ID)
		}
	}
	for _, r := range b.rules {
		if err := b.lineage.AddRule(r.ID, false, r.String()); err != nil {
			return nil, status.Wrap(status.LineageError, err, "fluent: AddRule %d", r.ID)
		}
	}

	e := &Executor{
		name:                  b.name,
		bindAddr:              b.bindAddr,
		collections:           b.collections,
		index:                 b.index,
		bootstrapRules:        b.bootstrapRules,
		rules:                 b.rules,
		clock:                 b.clock,
		fam:                   b.fam,
		lineage:               b.lineage,
		bus:                   b.bus,
		pickler:               b.pickler,
		maxFixpointIterations: b.maxFixpointIterations,
		logger:                b.logger,
	}
	b.lineageBr.exec = e
	b.sendBr.exec = e
	return e, nil
}

// lineageBridge implements collection.ChangeSink, deferring to the
// owning Executor. Collections are constructed before the Executor that
// will own them exists, so this bridge is created empty and wired once
// Builder.build allocates the Executor.
type lineageBridge struct {
	exec *Executor
}

func (br *lineageBridge) Inserted(coll string, t value.Tuple, logicalTime int64) {
	if br.exec != nil {
		br.exec.recordInsert(coll, t, logicalTime)
	}
}

func (br *lineageBridge) Deleted(coll string, t value.Tuple, logicalTime int64) {
	if br.exec != nil {
		br.exec.recordDelete(coll, t, logicalTime)
	}
}

// sendBridge plays the same deferred-wiring role for Channel's SendFunc,
// binding a channel's outgoing tuples to the Executor's pickler and bus
// once it exists.
type sendBridge struct {
	exec *Executor
}

func (br *sendBridge) sendFor(channelName string) collection.SendFunc {
	return func(addr string, t value.Tuple, logicalTime int64) error {
		if br.exec == nil {
			return nil
		}
		return br.exec.dispatch(channelName, addr, t, logicalTime)
	}
}
