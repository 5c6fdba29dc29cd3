package fluent

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentlang/fluent/internal/collection"
	"github.com/fluentlang/fluent/internal/lineagedb"
	"github.com/fluentlang/fluent/internal/network"
	"github.com/fluentlang/fluent/internal/ra"
	"github.com/fluentlang/fluent/internal/status"
	"github.com/fluentlang/fluent/internal/value"
)

func newCountingExecutor(t *testing.T) *Executor {
	t.Helper()
	b, err := NewBuilder("counter-node", "inproc://counter-node",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{}, WithLineageClient(lineagedb.NewMock()))
	require.NoError(t, err)

	b, err = b.Table("t", value.Schema{{Name: "n", Kind: value.KindUint64}})
	require.NoError(t, err)

	exec, err := b.RegisterRules(func(h Handles) []Rule {
		return []Rule{
			h["t"].Defer(ra.Pipe(ra.Of("t"), ra.CountOp())),
		}
	})
	require.NoError(t, err)
	return exec
}

// TestCountTickReproducesSuccessiveFixpoints exercises `t <= t|count()`
// across two ticks: tick one commits {(0)} (the count of an empty t),
// tick two commits {(0),(1)} (the count of a one-row t). Each tick's
// deferred output is computed against the state t held at the start of
// that tick, never the output the same tick's own `<=` rule is about to
// commit.
func TestCountTickReproducesSuccessiveFixpoints(t *testing.T) {
	exec := newCountingExecutor(t)

	require.NoError(t, exec.Tick())
	tbl, ok := exec.Collection("t")
	require.True(t, ok)
	require.Equal(t, 1, tbl.Get().Len())
	assert.True(t, tbl.Get().Contains(value.Tuple{value.Uint64(0)}))

	require.NoError(t, exec.Tick())
	require.Equal(t, 2, tbl.Get().Len())
	assert.True(t, tbl.Get().Contains(value.Tuple{value.Uint64(0)}))
	assert.True(t, tbl.Get().Contains(value.Tuple{value.Uint64(1)}))
}

func TestBootstrapTickRunsOnlyOnce(t *testing.T) {
	b, err := NewBuilder("boot-node", "inproc://boot-node",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{}, WithLineageClient(lineagedb.NewMock()))
	require.NoError(t, err)

	b, err = b.Table("seen", value.Schema{{Name: "x", Kind: value.KindString}})
	require.NoError(t, err)

	b, err = b.RegisterBootstrapRules(func(h Handles) []Rule {
		return []Rule{
			h["seen"].Merge(ra.Iterable{
				Out:   value.Schema{{Name: "x", Kind: value.KindString}},
				Items: []value.Tuple{{value.String("once")}},
			}),
		}
	})
	require.NoError(t, err)

	exec, err := b.RegisterRules(func(h Handles) []Rule { return nil })
	require.NoError(t, err)

	require.NoError(t, exec.BootstrapTick())
	require.NoError(t, exec.BootstrapTick())

	seen, _ := exec.Collection("seen")
	assert.Equal(t, 1, seen.Get().Len())
}

// TestBootstrapSeedsTablesButScratchesClear seeds a table and a scratch
// from the same literal iterable during bootstrap: the table keeps the
// seed, the scratch is cleared by bootstrap's own tick-end Clear pass.
func TestBootstrapSeedsTablesButScratchesClear(t *testing.T) {
	b, err := NewBuilder("seed-node", "inproc://seed-node",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{}, WithLineageClient(lineagedb.NewMock()))
	require.NoError(t, err)

	schema := value.Schema{{Name: "x", Kind: value.KindInt64}}
	b, err = b.Table("t", schema)
	require.NoError(t, err)
	b, err = b.Scratch("s", schema)
	require.NoError(t, err)

	seed := ra.Iterable{Out: schema, Items: []value.Tuple{
		{value.Int64(1)}, {value.Int64(2)}, {value.Int64(3)}, {value.Int64(4)}, {value.Int64(5)},
	}}
	b, err = b.RegisterBootstrapRules(func(h Handles) []Rule {
		return []Rule{h["t"].Defer(seed), h["s"].Defer(seed)}
	})
	require.NoError(t, err)

	exec, err := b.RegisterRules(func(h Handles) []Rule { return nil })
	require.NoError(t, err)

	require.NoError(t, exec.BootstrapTick())

	tbl, _ := exec.Collection("t")
	scr, _ := exec.Collection("s")
	assert.Equal(t, 5, tbl.Get().Len())
	assert.Equal(t, 0, scr.Get().Len())
}

// TestStdoutSinkPrintsAcrossTicks builds `t <= t|count()`,
// `s += t|count()`, `stdout += s|map(...)` and checks the cumulative
// printed output over two ticks: the immediate rules chain within each
// fixpoint pass (count lands in s, s's line lands on stdout), while the
// deferred count only grows t at tick end.
func TestStdoutSinkPrintsAcrossTicks(t *testing.T) {
	var buf bytes.Buffer
	b, err := NewBuilder("print-node", "inproc://print-node",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{}, WithLineageClient(lineagedb.NewMock()))
	require.NoError(t, err)

	countSchema := value.Schema{{Name: "n", Kind: value.KindUint64}}
	lineSchema := value.Schema{{Name: "line", Kind: value.KindString}}
	b, err = b.Table("t", countSchema)
	require.NoError(t, err)
	b, err = b.Scratch("s", countSchema)
	require.NoError(t, err)
	b, err = b.Stdout("stdout", lineSchema, &buf)
	require.NoError(t, err)

	toLine := ra.MapOp(func(tup value.Tuple) value.Tuple {
		return value.Tuple{value.String(fmt.Sprintf("%d", uint64(tup[0].(value.Uint64))))}
	}, lineSchema)

	exec, err := b.RegisterRules(func(h Handles) []Rule {
		return []Rule{
			h["t"].Defer(ra.Pipe(ra.Of("t"), ra.CountOp())),
			h["s"].Merge(ra.Pipe(ra.Of("t"), ra.CountOp())),
			h["stdout"].Merge(ra.Pipe(ra.Of("s"), toLine)),
		}
	})
	require.NoError(t, err)

	// Tick 1: t is empty throughout the fixpoint (its <= only commits at
	// tick end), so s += count(t) puts (0) in s and stdout prints "0".
	require.NoError(t, exec.Tick())
	assert.Equal(t, "0\n", buf.String())

	// Tick 2: t now holds {(0)}, so the count is 1; the scratch and
	// stdout buffer were cleared between ticks, so exactly one new line
	// appends to the cumulative capture.
	require.NoError(t, exec.Tick())
	assert.Equal(t, "0\n1\n", buf.String())

	tbl, _ := exec.Collection("t")
	assert.Equal(t, 2, tbl.Get().Len())
}

// TestImmediateRuleSeesEarlierRuleWithinSamePass demonstrates `+=`
// visibility: a scratch populated by one rule is visible to a later rule
// in the very same fixpoint pass, unlike `<=` output which only commits
// once the whole pass has stabilized.
func TestImmediateRuleSeesEarlierRuleWithinSamePass(t *testing.T) {
	b, err := NewBuilder("relay-node", "inproc://relay-node",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{}, WithLineageClient(lineagedb.NewMock()))
	require.NoError(t, err)

	schema := value.Schema{{Name: "x", Kind: value.KindString}}
	b, err = b.Scratch("s", schema)
	require.NoError(t, err)
	b, err = b.Table("out", schema)
	require.NoError(t, err)

	exec, err := b.RegisterRules(func(h Handles) []Rule {
		return []Rule{
			h["s"].Merge(ra.Iterable{Out: schema, Items: []value.Tuple{{value.String("relayed")}}}),
			h["out"].Merge(ra.Of("s")),
		}
	})
	require.NoError(t, err)

	require.NoError(t, exec.Tick())

	out, _ := exec.Collection("out")
	require.Equal(t, 1, out.Get().Len())
	assert.True(t, out.Get().Contains(value.Tuple{value.String("relayed")}))
}

// TestScratchClearEmitsPairedDeleteLineage checks that a scratch tuple
// produces both an InsertTuple record when a rule merges it and a
// DeleteTuple record when the tick-end Clear pass empties the scratch,
// both stamped with the same logical time.
func TestScratchClearEmitsPairedDeleteLineage(t *testing.T) {
	mock := lineagedb.NewMock()
	b, err := NewBuilder("lineage-node", "inproc://lineage-node",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{}, WithLineageClient(mock))
	require.NoError(t, err)

	schema := value.Schema{{Name: "x", Kind: value.KindInt64}}
	b, err = b.Scratch("s", schema)
	require.NoError(t, err)

	exec, err := b.RegisterRules(func(h Handles) []Rule {
		return []Rule{
			h["s"].Merge(ra.Iterable{Out: schema, Items: []value.Tuple{{value.Int64(9)}}}),
		}
	})
	require.NoError(t, err)

	require.NoError(t, exec.Tick())

	require.Len(t, mock.InsertTupleCalls, 1)
	require.Len(t, mock.DeleteTupleCalls, 1)
	assert.Equal(t, "s", mock.InsertTupleCalls[0].Collection)
	assert.Equal(t, "s", mock.DeleteTupleCalls[0].Collection)
	assert.Equal(t, mock.InsertTupleCalls[0].Time, mock.DeleteTupleCalls[0].Time)
	assert.Equal(t, mock.InsertTupleCalls[0].Hash, mock.DeleteTupleCalls[0].Hash)
}

// TestTickRollsBackOnFixpointOverflow constructs a rule that strictly
// grows its own scratch every iteration (no fixpoint exists within the
// iteration ceiling), and asserts the collection is restored to its
// pre-tick contents rather than left partially mutated.
func TestTickRollsBackOnFixpointOverflow(t *testing.T) {
	b, err := NewBuilder("diverge-node", "inproc://diverge-node",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{}, WithLineageClient(lineagedb.NewMock()),
		WithMaxFixpointIterations(3))
	require.NoError(t, err)

	schema := value.Schema{{Name: "n", Kind: value.KindUint64}}
	b, err = b.Scratch("counter", schema)
	require.NoError(t, err)

	exec, err := b.RegisterRules(func(h Handles) []Rule {
		return []Rule{
			h["counter"].Merge(ra.Pipe(ra.Of("counter"), ra.MapOp(func(t value.Tuple) value.Tuple {
				n := uint64(t[0].(value.Uint64))
				return value.Tuple{value.Uint64(n + 1)}
			}, schema))),
		}
	})
	require.NoError(t, err)

	// Run the (empty, rule-less) bootstrap tick first, since it would
	// otherwise clear the scratch seeded below as part of its own
	// tick-end Clear pass.
	require.NoError(t, exec.BootstrapTick())

	counter, _ := exec.Collection("counter")
	seed := collection.NewTupleSet(value.DefaultFamily{})
	seed.Add(value.Tuple{value.Uint64(0)})
	require.NoError(t, counter.Merge(seed, 0))

	err = exec.Tick()
	require.Error(t, err)
	assert.True(t, status.Is(err, status.FixpointError))

	assert.Equal(t, 1, counter.Get().Len())
	assert.True(t, counter.Get().Contains(value.Tuple{value.Uint64(0)}))
}

// TestChannelDispatchDeliversAcrossExecutors exercises a two-node
// network exchange over a shared network.InprocContext: node a merges a
// tuple into a channel addressed at node b, and node b's Receive picks
// the resulting frame up and merges it into its own same-named channel.
func TestChannelDispatchDeliversAcrossExecutors(t *testing.T) {
	ctx := network.NewInprocContext()
	schema := value.Schema{
		{Name: "addr", Kind: value.KindString},
		{Name: "payload", Kind: value.KindUint64},
	}

	aBuilder, err := NewBuilder("a", "inproc://a", network.NewInprocBus(ctx),
		lineagedb.ConnectionConfig{}, WithLineageClient(lineagedb.NewMock()))
	require.NoError(t, err)
	aBuilder, err = aBuilder.Channel("out", schema)
	require.NoError(t, err)
	a, err := aBuilder.RegisterRules(func(h Handles) []Rule {
		return []Rule{
			h["out"].Merge(ra.Iterable{
				Out:   schema,
				Items: []value.Tuple{{value.String("inproc://b"), value.Uint64(42)}},
			}),
		}
	})
	require.NoError(t, err)

	bBuilder, err := NewBuilder("b", "inproc://b", network.NewInprocBus(ctx),
		lineagedb.ConnectionConfig{}, WithLineageClient(lineagedb.NewMock()))
	require.NoError(t, err)
	bBuilder, err = bBuilder.Channel("out", schema)
	require.NoError(t, err)
	b, err := bBuilder.RegisterRules(func(h Handles) []Rule { return nil })
	require.NoError(t, err)

	require.NoError(t, a.Tick())

	ok, err := b.Receive(time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	bOut, _ := b.Collection("out")
	assert.True(t, bOut.Get().Contains(value.Tuple{value.String("inproc://b"), value.Uint64(42)}))

	// Receiving must not re-enter the send path: the delivered tuple's
	// destination column names node b itself, so a second Receive would
	// observe a self-addressed echo if delivery went through Merge.
	ok, err = b.Receive(50 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterBlackBoxLineageIssuesTwoExecCalls(t *testing.T) {
	mock := lineagedb.NewMock()
	b, err := NewBuilder("svc-node", "inproc://svc-node",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{}, WithLineageClient(mock))
	require.NoError(t, err)

	reqSchema := value.Schema{
		{Name: "addr", Kind: value.KindString},
		{Name: "req_id", Kind: value.KindUint64},
	}
	respSchema := value.Schema{
		{Name: "addr", Kind: value.KindString},
		{Name: "req_id", Kind: value.KindUint64},
	}
	b, err = b.Channel("request", reqSchema)
	require.NoError(t, err)
	b, err = b.Channel("response", respSchema)
	require.NoError(t, err)

	exec, err := b.RegisterRules(func(h Handles) []Rule { return nil })
	require.NoError(t, err)

	err = exec.RegisterBlackBoxLineage("request", "response", "req_id",
		func(timeInserted string, reqCols, respCols []string) string {
			return "SELECT 'response', 0, " + timeInserted
		})
	require.NoError(t, err)

	require.Len(t, mock.ExecCalls, 2)
	assert.Contains(t, mock.ExecCalls[0], "svc-node_response_lineage_impl")
	assert.Contains(t, mock.ExecCalls[0], "SELECT 'response', 0, time_inserted")
	assert.Contains(t, mock.ExecCalls[1], "svc-node_response_lineage(id bigint)")
}

// TestSQLiteLineageEndToEnd drives a real SQLite-backed lineage store
// through the builder and one tick, then checks the node-prefixed
// tables hold the declared collection, the registered rule, and the
// inserted tuple — and that black-box registration fails immediately
// with a typed error instead of a driver syntax error, since SQLite has
// no CREATE FUNCTION.
func TestSQLiteLineageEndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lineage.db")
	b, err := NewBuilder("sq-node", "inproc://sq-node",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{Database: dbPath})
	require.NoError(t, err)

	b, err = b.Table("t", value.Schema{{Name: "n", Kind: value.KindUint64}})
	require.NoError(t, err)
	reqSchema := value.Schema{
		{Name: "addr", Kind: value.KindString},
		{Name: "id", Kind: value.KindUint64},
	}
	b, err = b.Channel("req", reqSchema)
	require.NoError(t, err)
	b, err = b.Channel("resp", reqSchema)
	require.NoError(t, err)

	exec, err := b.RegisterRules(func(h Handles) []Rule {
		return []Rule{h["t"].Defer(ra.Pipe(ra.Of("t"), ra.CountOp()))}
	})
	require.NoError(t, err)
	defer exec.Close()

	require.NoError(t, exec.Tick())

	err = exec.RegisterBlackBoxLineage("req", "resp", "id",
		func(timeInserted string, reqCols, respCols []string) string {
			return "SELECT 'resp', 0, " + timeInserted
		})
	require.Error(t, err)
	assert.True(t, status.Is(err, status.LineageError))
	assert.Contains(t, err.Error(), "CREATE FUNCTION")

	store, err := lineagedb.OpenSQLite(dbPath, "sq-node")
	require.NoError(t, err)
	defer store.Close()

	var kind string
	require.NoError(t, store.DB().QueryRow(
		`SELECT kind FROM "sq-node_collections" WHERE name = 't'`).Scan(&kind))
	assert.Equal(t, "Table", kind)

	var n, timeInserted int64
	require.NoError(t, store.DB().QueryRow(
		`SELECT n, time_inserted FROM "sq-node_t" WHERE time_deleted IS NULL`).Scan(&n, &timeInserted))
	assert.Equal(t, int64(0), n)
	assert.Equal(t, int64(1), timeInserted)

	var ruleText string
	require.NoError(t, store.DB().QueryRow(
		`SELECT rule_text FROM "sq-node_rules" WHERE rule_number = 0`).Scan(&ruleText))
	assert.Equal(t, "t <= Count(t)", ruleText)
}

func TestRegisterBlackBoxLineageRejectsMissingJoinColumn(t *testing.T) {
	b, err := NewBuilder("svc-node", "inproc://svc-node2",
		network.NewInprocBus(network.NewInprocContext()),
		lineagedb.ConnectionConfig{}, WithLineageClient(lineagedb.NewMock()))
	require.NoError(t, err)

	schema := value.Schema{{Name: "addr", Kind: value.KindString}}
	b, err = b.Channel("request", schema)
	require.NoError(t, err)
	b, err = b.Channel("response", schema)
	require.NoError(t, err)

	exec, err := b.RegisterRules(func(h Handles) []Rule { return nil })
	require.NoError(t, err)

	err = exec.RegisterBlackBoxLineage("request", "response", "req_id",
		func(string, []string, []string) string { return "" })
	require.Error(t, err)
	assert.True(t, status.Is(err, status.SchemaError))
}
