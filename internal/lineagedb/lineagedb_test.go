package lineagedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentlang/fluent/internal/value"
)

func TestMockRecordsCallsInOrder(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.Init())
	assert.True(t, m.Initialized)

	require.NoError(t, m.AddCollection("t", "Table", []string{"x"}, []string{"INTEGER"}))
	require.NoError(t, m.AddCollection("s", "Scratch", []string{"x"}, []string{"INTEGER"}))
	require.NoError(t, m.AddCollection("c", "Channel", []string{"addr"}, []string{"TEXT"}))
	require.NoError(t, m.AddRule(0, false, "t <= Count(t)"))
	require.NoError(t, m.AddRule(1, false, "t <= Count(s)"))
	require.NoError(t, m.AddRule(2, false, "s <= Count(c)"))

	require.Len(t, m.AddCollectionCalls, 3)
	assert.Equal(t, []string{"t", "s", "c"}, []string{
		m.AddCollectionCalls[0].Name,
		m.AddCollectionCalls[1].Name,
		m.AddCollectionCalls[2].Name,
	})
	assert.Equal(t, "Channel", m.AddCollectionCalls[2].Kind)
	require.Len(t, m.AddRuleCalls, 3)
	assert.False(t, m.AddRuleCalls[0].IsBootstrap)
}

func TestMockRecordsTupleEvents(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.InsertTuple("t", 1, 42, []string{"0"}))
	require.NoError(t, m.DeleteTuple("s", 1, 42, []string{"0"}))

	require.Len(t, m.InsertTupleCalls, 1)
	assert.Equal(t, int64(1), m.InsertTupleCalls[0].Time)
	require.Len(t, m.DeleteTupleCalls, 1)
}

func TestNoopDiscardsEverything(t *testing.T) {
	var n Noop
	assert.NoError(t, n.Init())
	assert.NoError(t, n.AddCollection("t", "Table", nil, nil))
	assert.NoError(t, n.InsertTuple("t", 0, 0, nil))
	assert.NoError(t, n.Exec("whatever"))
	assert.NoError(t, n.Close())
}

func TestValueToSQLPerKind(t *testing.T) {
	cases := []struct {
		v    value.Value
		want string
	}{
		{value.Bool(true), "true"},
		{value.Int64(-7), "-7"},
		{value.Uint64(7), "7"},
		{value.String("hi"), "hi"},
	}
	for _, c := range cases {
		got, err := ValueToSQL(c.v)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestSQLTypeOfRejectsUnknownKind(t *testing.T) {
	_, err := SQLTypeOf(value.Kind(99))
	assert.Error(t, err)
}

func TestBuildBlackBoxSQLProducesTwoStatements(t *testing.T) {
	sql := BuildBlackBoxSQL(BlackBoxSpec{
		NodeName:           "node1",
		RequestCollection:  "f_request",
		RequestColumns:     []string{"dst_addr", "src_addr", "id", "x"},
		RequestTypes:       []string{"TEXT", "TEXT", "INTEGER", "INTEGER"},
		ResponseCollection: "f_response",
		ResponseColumns:    []string{"addr", "id", "y"},
		ResponseTypes:      []string{"TEXT", "INTEGER", "INTEGER"},
		JoinColumn:         "id",
	}, func(timeInserted string, reqCols, respCols []string) string {
		return "-- body using " + timeInserted + ", " + reqCols[3] + ", " + respCols[2] + " --"
	})
	assert.Contains(t, sql.Impl, "node1_f_response_lineage_impl")
	assert.Contains(t, sql.Impl, "RETURNS TABLE(collection_name text, hash bigint, time_inserted integer)")
	assert.Contains(t, sql.Impl, "-- body using time_inserted, req_x, resp_y --")
	assert.Contains(t, sql.Dispatch, "node1_f_response_lineage(id bigint)")
	assert.Contains(t, sql.Dispatch, "JOIN node1_f_response AS resp ON req.id = resp.id")
}
