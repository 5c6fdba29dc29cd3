// Package logging wires structured logging for fluent nodes through
// github.com/sirupsen/logrus. Every log line carries the node field;
// per-tick and per-rule lines layer tick, rule_id, and collection on
// top, so one node's whole tick can be grepped out of interleaved
// multi-node output.
package logging

import (
	"github.com/sirupsen/logrus"
)

// NodeLogger returns a *logrus.Entry pre-populated with the "node" field,
// the way every log line in an executor's lifetime should be attributable
// to the node that emitted it.
func NodeLogger(base *logrus.Logger, nodeName string) *logrus.Entry {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return base.WithField("node", nodeName)
}

// TickLogger narrows a node logger to a specific logical tick, adding the
// "tick" field used by every per-tick log line (fixpoint progress and
// rule firings).
func TickLogger(node *logrus.Entry, tick int64) *logrus.Entry {
	return node.WithField("tick", tick)
}

// RuleLogger narrows further to a specific rule firing within a tick.
func RuleLogger(tick *logrus.Entry, ruleID int, collection string) *logrus.Entry {
	return tick.WithFields(logrus.Fields{
		"rule_id":    ruleID,
		"collection": collection,
	})
}
