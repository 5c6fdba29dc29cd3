// Package lineagedb defines the SQL-backed provenance client every
// executor optionally reports to: a monotonic, append-only log of
// insert/delete/derived-lineage/networked-lineage facts, plus the
// schema and rule-text bookkeeping lineage queries need to make sense
// of those facts later.
package lineagedb

// Client is the pluggable lineage sink. Every method call corresponds to
// one fact appended to the log; Client implementations never need to
// support updates or deletes of their own records, only inserts.
type Client interface {
	// Init prepares the client for use (e.g. opening a connection,
	// creating tables). Called once before any other method.
	Init() error

	// AddCollection records that a collection named name, of the given
	// variant kind ("Table", "Scratch", ...), with the given column
	// names and SQL column types exists. Called once per declared
	// collection, in declaration order.
	AddCollection(name, kind string, columnNames, columnSQLTypes []string) error

	// AddRule records rule number ruleNumber's canonical text, flagging
	// whether it belongs to the one-time bootstrap list. Called once per
	// registered rule, in registration order.
	AddRule(ruleNumber int, isBootstrap bool, ruleText string) error

	// InsertTuple records that collection gained a tuple (identified by
	// hash, rendered as values for storage) at the given logical time.
	InsertTuple(collection string, timeInserted int64, hash uint64, values []string) error

	// DeleteTuple records that collection lost a tuple at the given
	// logical time.
	DeleteTuple(collection string, timeDeleted int64, hash uint64, values []string) error

	// AddNetworkedLineage records that collection's tuple (hash) crossed
	// the network at time. The executor calls it on the sending side,
	// after a successful send, with depNode set to its own node name and
	// depTime to the logical time of the merge that sent the tuple.
	AddNetworkedLineage(depNode string, depTime int64, collection string, hash uint64, time int64) error

	// AddDerivedLineage records that collection's tuple (hash) at time
	// was derived by ruleNumber from depCollection's tuple (depHash).
	// inserted distinguishes a derived insert from a derived delete.
	AddDerivedLineage(depCollection string, depHash uint64, ruleNumber int, inserted bool, collection string, hash uint64, time int64) error

	// Exec issues an opaque SQL statement against the underlying store,
	// used only by black-box lineage registration to install
	// caller-supplied SQL functions.
	Exec(sqlText string) error

	// Close releases any resources the client holds.
	Close() error
}
