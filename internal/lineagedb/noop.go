package lineagedb

// Noop is a Client that discards every call: the zero-overhead choice
// for a node that runs without lineage enabled.
type Noop struct{}

func (Noop) Init() error { return nil }

func (Noop) AddCollection(name, kind string, columnNames, columnSQLTypes []string) error {
	return nil
}

func (Noop) AddRule(ruleNumber int, isBootstrap bool, ruleText string) error { return nil }

func (Noop) InsertTuple(collection string, timeInserted int64, hash uint64, values []string) error {
	return nil
}

func (Noop) DeleteTuple(collection string, timeDeleted int64, hash uint64, values []string) error {
	return nil
}

func (Noop) AddNetworkedLineage(depNode string, depTime int64, collection string, hash uint64, time int64) error {
	return nil
}

func (Noop) AddDerivedLineage(depCollection string, depHash uint64, ruleNumber int, inserted bool, collection string, hash uint64, time int64) error {
	return nil
}

func (Noop) Exec(sqlText string) error { return nil }

func (Noop) Close() error { return nil }
