package lineagedb

// Mock is a Client that records every call instead of issuing SQL:
// each method appends a record to its own slice rather than
// constructing and running a query, so tests can assert on exact call
// order and arguments.
type Mock struct {
	Initialized bool

	AddCollectionCalls []MockAddCollection
	AddRuleCalls       []MockAddRule
	InsertTupleCalls   []MockTupleEvent
	DeleteTupleCalls   []MockTupleEvent
	NetworkedCalls     []MockNetworkedLineage
	DerivedCalls       []MockDerivedLineage
	ExecCalls          []string
}

// MockAddCollection is one recorded AddCollection call.
type MockAddCollection struct {
	Name           string
	Kind           string
	ColumnNames    []string
	ColumnSQLTypes []string
}

// MockAddRule is one recorded AddRule call.
type MockAddRule struct {
	RuleNumber  int
	IsBootstrap bool
	RuleText    string
}

// MockTupleEvent is one recorded InsertTuple or DeleteTuple call.
type MockTupleEvent struct {
	Collection string
	Time       int64
	Hash       uint64
	Values     []string
}

// MockNetworkedLineage is one recorded AddNetworkedLineage call.
type MockNetworkedLineage struct {
	DepNode    string
	DepTime    int64
	Collection string
	Hash       uint64
	Time       int64
}

// MockDerivedLineage is one recorded AddDerivedLineage call.
type MockDerivedLineage struct {
	DepCollection string
	DepHash       uint64
	RuleNumber    int
	Inserted      bool
	Collection    string
	Hash          uint64
	Time          int64
}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Init() error {
	m.Initialized = true
	return nil
}

func (m *Mock) AddCollection(name, kind string, columnNames, columnSQLTypes []string) error {
	m.AddCollectionCalls = append(m.AddCollectionCalls, MockAddCollection{name, kind, columnNames, columnSQLTypes})
	return nil
}

func (m *Mock) AddRule(ruleNumber int, isBootstrap bool, ruleText string) error {
	m.AddRuleCalls = append(m.AddRuleCalls, MockAddRule{ruleNumber, isBootstrap, ruleText})
	return nil
}

func (m *Mock) InsertTuple(collection string, timeInserted int64, hash uint64, values []string) error {
	m.InsertTupleCalls = append(m.InsertTupleCalls, MockTupleEvent{collection, timeInserted, hash, values})
	return nil
}

func (m *Mock) DeleteTuple(collection string, timeDeleted int64, hash uint64, values []string) error {
	m.DeleteTupleCalls = append(m.DeleteTupleCalls, MockTupleEvent{collection, timeDeleted, hash, values})
	return nil
}

func (m *Mock) AddNetworkedLineage(depNode string, depTime int64, collection string, hash uint64, time int64) error {
	m.NetworkedCalls = append(m.NetworkedCalls, MockNetworkedLineage{depNode, depTime, collection, hash, time})
	return nil
}

func (m *Mock) AddDerivedLineage(depCollection string, depHash uint64, ruleNumber int, inserted bool, collection string, hash uint64, time int64) error {
	m.DerivedCalls = append(m.DerivedCalls, MockDerivedLineage{
		depCollection, depHash, ruleNumber, inserted, collection, hash, time,
	})
	return nil
}

func (m *Mock) Exec(sqlText string) error {
	m.ExecCalls = append(m.ExecCalls, sqlText)
	return nil
}

func (m *Mock) Close() error { return nil }
