package lineagedb

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fluentlang/fluent/internal/status"
)

// SQLite is the concrete lineage store, built on database/sql and
// mattn/go-sqlite3. Every table it creates is prefixed with the owning
// node's name: one table per declared collection holding that
// collection's typed columns, plus <node>_collections, <node>_rules,
// and <node>_lineage bookkeeping tables, so several nodes can share one
// database file without colliding.
type SQLite struct {
	db   *sql.DB
	node string

	// columns remembers each collection's declared column names, needed
	// to build InsertTuple's column list after AddCollection ran.
	columns map[string][]string
}

// OpenSQLite creates or opens a SQLite database at path for the named
// node: WAL mode, synchronous NORMAL, a 5-second busy timeout, foreign
// keys on, and a single writer connection since SQLite allows only one
// at a time.
func OpenSQLite(path, nodeName string) (*SQLite, error) {
	if nodeName == "" {
		return nil, status.New(status.ConfigError, "lineagedb: node name must not be empty")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, status.Wrap(status.LineageError, err, "lineagedb: open %q", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, status.Wrap(status.LineageError, err, "lineagedb: ping %q", path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, status.Wrap(status.LineageError, err, "lineagedb: pragma %q", p)
		}
	}
	return &SQLite{db: db, node: nodeName, columns: make(map[string][]string)}, nil
}

// DB exposes the underlying handle so lineage consumers can query the
// node-prefixed tables directly.
func (s *SQLite) DB() *sql.DB { return s.db }

// table returns the quoted, node-prefixed table name for a collection
// or bookkeeping suffix. Quoting keeps node names that aren't bare SQL
// identifiers (hyphens, dots) valid.
func (s *SQLite) table(suffix string) string {
	return `"` + s.node + "_" + suffix + `"`
}

// Init creates the node's bookkeeping tables. The per-collection tables
// are created later, one per AddCollection call, once their declared
// columns are known.
func (s *SQLite) Init() error {
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	column_names TEXT NOT NULL,
	column_sql_types TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS %s (
	rule_number INTEGER PRIMARY KEY,
	is_bootstrap INTEGER NOT NULL,
	rule_text TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dep_node TEXT,
	dep_collection_name TEXT,
	dep_tuple_hash BIGINT,
	dep_time INTEGER,
	rule_number INTEGER,
	inserted INTEGER,
	collection_name TEXT NOT NULL,
	tuple_hash BIGINT NOT NULL,
	time_inserted INTEGER NOT NULL
);
`, s.table("collections"), s.table("rules"), s.table("lineage"))
	_, err := s.db.Exec(schema)
	return wrapExec(err, "lineagedb: apply schema for node %q", s.node)
}

// AddCollection records the collection in <node>_collections and
// creates its tuple table <node>_<collection>: the declared columns at
// their declared SQL types, plus hash, time_inserted, time_deleted, and
// physical_time_inserted. time_deleted stays NULL while the tuple is
// live; DeleteTuple stamps it instead of removing the row, keeping the
// table an append-only history rather than a snapshot.
func (s *SQLite) AddCollection(name, kind string, columnNames, columnSQLTypes []string) error {
	if len(columnNames) != len(columnSQLTypes) {
		return status.New(status.LineageError,
			"lineagedb: AddCollection %q: %d column names but %d types", name, len(columnNames), len(columnSQLTypes))
	}
	if _, err := s.db.Exec(
		fmt.Sprintf(`INSERT INTO %s (name, kind, column_names, column_sql_types) VALUES (?, ?, ?, ?)`, s.table("collections")),
		name, kind, strings.Join(columnNames, ","), strings.Join(columnSQLTypes, ","),
	); err != nil {
		return wrapExec(err, "lineagedb: AddCollection %q", name)
	}

	cols := make([]string, len(columnNames))
	for i, c := range columnNames {
		cols[i] = fmt.Sprintf("%s %s", c, columnSQLTypes[i])
	}
	create := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (%s, hash BIGINT NOT NULL, time_inserted INTEGER NOT NULL, time_deleted INTEGER, physical_time_inserted TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
		s.table(name), strings.Join(cols, ", "),
	)
	if _, err := s.db.Exec(create); err != nil {
		return wrapExec(err, "lineagedb: create tuple table for %q", name)
	}
	s.columns[name] = append([]string(nil), columnNames...)
	return nil
}

func (s *SQLite) AddRule(ruleNumber int, isBootstrap bool, ruleText string) error {
	_, err := s.db.Exec(
		fmt.Sprintf(`INSERT INTO %s (rule_number, is_bootstrap, rule_text) VALUES (?, ?, ?)`, s.table("rules")),
		ruleNumber, isBootstrap, ruleText,
	)
	return wrapExec(err, "lineagedb: AddRule %d", ruleNumber)
}

func (s *SQLite) InsertTuple(collection string, timeInserted int64, hash uint64, values []string) error {
	cols, ok := s.columns[collection]
	if !ok {
		return status.New(status.LineageError, "lineagedb: InsertTuple before AddCollection %q", collection)
	}
	if len(values) != len(cols) {
		return status.New(status.LineageError,
			"lineagedb: InsertTuple %q: %d values for %d columns", collection, len(values), len(cols))
	}
	placeholders := make([]string, 0, len(cols)+2)
	args := make([]any, 0, len(cols)+2)
	for _, v := range values {
		placeholders = append(placeholders, "?")
		args = append(args, v)
	}
	placeholders = append(placeholders, "?", "?")
	args = append(args, int64(hash), timeInserted)

	stmt := fmt.Sprintf(
		`INSERT INTO %s (%s, hash, time_inserted) VALUES (%s)`,
		s.table(collection), strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	_, err := s.db.Exec(stmt, args...)
	return wrapExec(err, "lineagedb: InsertTuple %q", collection)
}

func (s *SQLite) DeleteTuple(collection string, timeDeleted int64, hash uint64, values []string) error {
	if _, ok := s.columns[collection]; !ok {
		return status.New(status.LineageError, "lineagedb: DeleteTuple before AddCollection %q", collection)
	}
	_, err := s.db.Exec(
		fmt.Sprintf(`UPDATE %s SET time_deleted = ? WHERE hash = ? AND time_deleted IS NULL`, s.table(collection)),
		timeDeleted, int64(hash),
	)
	return wrapExec(err, "lineagedb: DeleteTuple %q", collection)
}

func (s *SQLite) AddNetworkedLineage(depNode string, depTime int64, collection string, hash uint64, time int64) error {
	_, err := s.db.Exec(
		fmt.Sprintf(`INSERT INTO %s (dep_node, dep_time, collection_name, tuple_hash, time_inserted) VALUES (?, ?, ?, ?, ?)`, s.table("lineage")),
		depNode, depTime, collection, int64(hash), time,
	)
	return wrapExec(err, "lineagedb: AddNetworkedLineage %q", collection)
}

func (s *SQLite) AddDerivedLineage(depCollection string, depHash uint64, ruleNumber int, inserted bool, collection string, hash uint64, time int64) error {
	_, err := s.db.Exec(
		fmt.Sprintf(`INSERT INTO %s (dep_collection_name, dep_tuple_hash, rule_number, inserted, collection_name, tuple_hash, time_inserted) VALUES (?, ?, ?, ?, ?, ?, ?)`, s.table("lineage")),
		depCollection, int64(depHash), ruleNumber, inserted, collection, int64(hash), time,
	)
	return wrapExec(err, "lineagedb: AddDerivedLineage %q", collection)
}

// Exec runs an opaque SQL statement, with one deliberate refusal: SQLite
// has no CREATE FUNCTION statement, so the function pair black-box
// lineage registration installs cannot work here. Rejecting it up front,
// with a typed error naming the limitation, beats surfacing a driver
// syntax error from deep inside the registration path.
func (s *SQLite) Exec(sqlText string) error {
	if isCreateFunction(sqlText) {
		return status.New(status.LineageError,
			"lineagedb: sqlite cannot execute CREATE FUNCTION; black-box lineage requires a Client backed by a SQL engine with function support")
	}
	_, err := s.db.Exec(sqlText)
	return wrapExec(err, "lineagedb: Exec")
}

func isCreateFunction(sqlText string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "CREATE FUNCTION")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// wrapExec returns nil on success and a status.LineageError only when err
// is non-nil — status.Wrap always returns a non-nil *Error, even for a
// nil cause, so callers that might succeed must guard the call
// themselves rather than unconditionally wrapping.
func wrapExec(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return status.Wrap(status.LineageError, err, format, args...)
}
