package lineagedb

import (
	"fmt"
	"strings"
)

// BlackBoxSQL holds the two SQL statements RegisterBlackBoxLineage
// installs: Impl defines the caller-supplied lineage-computation
// function, Dispatch defines the join that invokes it per matching
// request/response pair.
type BlackBoxSQL struct {
	Impl     string
	Dispatch string
}

// BlackBoxBody supplies the SQL body of the impl function. It receives
// the SQL expressions naming the impl's own parameters — the response
// row's insertion time plus every request and response column — so the
// body can splice them in wherever its derivation logic needs them.
type BlackBoxBody func(timeInserted string, requestCols, responseCols []string) string

// BlackBoxSpec describes the request/response collection pair a
// black-box lineage function is registered against. Column names and
// SQL types come from each collection's declared schema; JoinColumn
// names the column both collections carry and are matched on.
type BlackBoxSpec struct {
	NodeName string

	RequestCollection string
	RequestColumns    []string
	RequestTypes      []string

	ResponseCollection string
	ResponseColumns    []string
	ResponseTypes      []string

	JoinColumn string
}

// BuildBlackBoxSQL constructs the impl/dispatch function pair for a
// black-box service call. The impl function takes the response row's
// insertion time followed by every request and response column, and
// returns the derived-lineage rows the caller's body computes. The
// dispatch function takes a single id, joins the request and response
// collections on spec.JoinColumn, and calls the impl once per matching
// pair.
//
// Both statements are CREATE FUNCTION definitions and need a SQL engine
// with stored-function support to execute; SQLite has none, and the
// bundled SQLite Client refuses them with a typed error rather than
// letting the driver fail on syntax.
func BuildBlackBoxSQL(spec BlackBoxSpec, body BlackBoxBody) BlackBoxSQL {
	implName := fmt.Sprintf("%s_%s_lineage_impl", spec.NodeName, spec.ResponseCollection)
	dispatchName := fmt.Sprintf("%s_%s_lineage", spec.NodeName, spec.ResponseCollection)
	reqTable := fmt.Sprintf("%s_%s", spec.NodeName, spec.RequestCollection)
	respTable := fmt.Sprintf("%s_%s", spec.NodeName, spec.ResponseCollection)

	reqParams := prefixAll("req_", spec.RequestColumns)
	respParams := prefixAll("resp_", spec.ResponseColumns)

	var implArgs []string
	implArgs = append(implArgs, "time_inserted integer")
	for i, p := range reqParams {
		implArgs = append(implArgs, fmt.Sprintf("%s %s", p, sqlArgType(spec.RequestTypes, i)))
	}
	for i, p := range respParams {
		implArgs = append(implArgs, fmt.Sprintf("%s %s", p, sqlArgType(spec.ResponseTypes, i)))
	}

	impl := fmt.Sprintf(
		"CREATE FUNCTION %s(%s)\n"+
			"RETURNS TABLE(collection_name text, hash bigint, time_inserted integer) AS $$\n"+
			"%s\n"+
			"$$ LANGUAGE SQL;",
		implName, strings.Join(implArgs, ", "),
		body("time_inserted", reqParams, respParams),
	)

	var callArgs []string
	callArgs = append(callArgs, "resp.time_inserted")
	for _, c := range spec.RequestColumns {
		callArgs = append(callArgs, "req."+c)
	}
	for _, c := range spec.ResponseColumns {
		callArgs = append(callArgs, "resp."+c)
	}

	dispatch := fmt.Sprintf(
		"CREATE FUNCTION %s(id bigint)\n"+
			"RETURNS TABLE(collection_name text, hash bigint, time_inserted integer) AS $$\n"+
			"SELECT (%s(%s)).*\n"+
			"FROM %s AS req JOIN %s AS resp ON req.%s = resp.%s\n"+
			"WHERE resp.%s = id\n"+
			"$$ LANGUAGE SQL;",
		dispatchName,
		implName, strings.Join(callArgs, ", "),
		reqTable, respTable, spec.JoinColumn, spec.JoinColumn,
		spec.JoinColumn,
	)

	return BlackBoxSQL{Impl: impl, Dispatch: dispatch}
}

func prefixAll(prefix string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + n
	}
	return out
}

// sqlArgType tolerates a missing type slice so text-only callers (tests,
// snapshots) can omit types and still get well-formed SQL.
func sqlArgType(types []string, i int) string {
	if i < len(types) {
		return strings.ToLower(types[i])
	}
	return "text"
}
