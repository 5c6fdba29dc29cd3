package lineagedb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentlang/fluent/internal/status"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	c, err := OpenSQLite(filepath.Join(t.TempDir(), "lineage.db"), "node1")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Init())
	return c
}

func TestSQLiteCreatesNodePrefixedTables(t *testing.T) {
	c := openTestSQLite(t)
	require.NoError(t, c.AddCollection("t", "Table", []string{"x", "y"}, []string{"INTEGER", "TEXT"}))

	for _, table := range []string{"node1_collections", "node1_rules", "node1_lineage", "node1_t"} {
		var n int
		row := c.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		require.NoError(t, row.Scan(&n))
		assert.Equal(t, 1, n, "missing table %s", table)
	}

	var kind, names, types string
	row := c.db.QueryRow(`SELECT kind, column_names, column_sql_types FROM node1_collections WHERE name = 't'`)
	require.NoError(t, row.Scan(&kind, &names, &types))
	assert.Equal(t, "Table", kind)
	assert.Equal(t, "x,y", names)
	assert.Equal(t, "INTEGER,TEXT", types)
}

func TestSQLiteInsertAndDeleteTupleRoundTrip(t *testing.T) {
	c := openTestSQLite(t)
	require.NoError(t, c.AddCollection("t", "Table", []string{"x"}, []string{"INTEGER"}))
	require.NoError(t, c.InsertTuple("t", 3, 42, []string{"7"}))

	var x, hash, timeInserted int64
	row := c.db.QueryRow(`SELECT x, hash, time_inserted FROM node1_t WHERE time_deleted IS NULL`)
	require.NoError(t, row.Scan(&x, &hash, &timeInserted))
	assert.Equal(t, int64(7), x)
	assert.Equal(t, int64(42), hash)
	assert.Equal(t, int64(3), timeInserted)

	require.NoError(t, c.DeleteTuple("t", 5, 42, []string{"7"}))

	// The row survives deletion with its delete time stamped; only its
	// liveness changes.
	var timeDeleted int64
	row = c.db.QueryRow(`SELECT time_deleted FROM node1_t WHERE hash = 42`)
	require.NoError(t, row.Scan(&timeDeleted))
	assert.Equal(t, int64(5), timeDeleted)

	var live int
	require.NoError(t, c.db.QueryRow(`SELECT count(*) FROM node1_t WHERE time_deleted IS NULL`).Scan(&live))
	assert.Equal(t, 0, live)
}

func TestSQLiteInsertTupleRequiresDeclaredCollection(t *testing.T) {
	c := openTestSQLite(t)
	err := c.InsertTuple("ghost", 1, 1, []string{"x"})
	require.Error(t, err)
	assert.True(t, status.Is(err, status.LineageError))
}

func TestSQLiteRecordsRulesAndLineage(t *testing.T) {
	c := openTestSQLite(t)
	require.NoError(t, c.AddRule(0, true, "t <= xs"))
	require.NoError(t, c.AddRule(1, false, "t <= Count(t)"))
	require.NoError(t, c.AddDerivedLineage("s", 11, 1, true, "t", 22, 4))
	require.NoError(t, c.AddNetworkedLineage("peer-node", 3, "c", 33, 4))

	var bootstrap bool
	var text string
	row := c.db.QueryRow(`SELECT is_bootstrap, rule_text FROM node1_rules WHERE rule_number = 0`)
	require.NoError(t, row.Scan(&bootstrap, &text))
	assert.True(t, bootstrap)
	assert.Equal(t, "t <= xs", text)

	var derived, networked int
	require.NoError(t, c.db.QueryRow(
		`SELECT count(*) FROM node1_lineage WHERE dep_collection_name = 's' AND rule_number = 1`).Scan(&derived))
	require.NoError(t, c.db.QueryRow(
		`SELECT count(*) FROM node1_lineage WHERE dep_node = 'peer-node' AND dep_time = 3`).Scan(&networked))
	assert.Equal(t, 1, derived)
	assert.Equal(t, 1, networked)
}

func TestSQLiteExecRejectsCreateFunction(t *testing.T) {
	c := openTestSQLite(t)
	err := c.Exec("CREATE FUNCTION node1_resp_lineage_impl(time_inserted integer) RETURNS TABLE(x text) AS $$ SELECT 1 $$ LANGUAGE SQL;")
	require.Error(t, err)
	assert.True(t, status.Is(err, status.LineageError))
	assert.Contains(t, err.Error(), "CREATE FUNCTION")
}
