package fluent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluentlang/fluent/internal/ra"
)

func TestOpSymbol(t *testing.T) {
	assert.Equal(t, "<=", OpDefer.Symbol())
	assert.Equal(t, "+=", OpMerge.Symbol())
	assert.Equal(t, "-=", OpDelete.Symbol())
}

func TestHandleConstructors(t *testing.T) {
	h := Handle{name: "t", index: 2}

	r := h.Defer(ra.Pipe(ra.Of("t"), ra.CountOp()))
	assert.Equal(t, 2, r.Target)
	assert.Equal(t, "t", r.TargetName)
	assert.Equal(t, OpDefer, r.Op)
	assert.Equal(t, "t <= Count(t)", r.String())

	m := h.Merge(ra.Of("s"))
	assert.Equal(t, OpMerge, m.Op)
	assert.Equal(t, "t += s", m.String())

	d := h.DeleteWhere(ra.Of("s"))
	assert.Equal(t, OpDelete, d.Op)
	assert.Equal(t, "t -= s", d.String())
}

func TestHandlesMap(t *testing.T) {
	handles := Handles{
		"t": {name: "t", index: 0},
		"s": {name: "s", index: 1},
	}
	assert.Equal(t, 0, handles["t"].index)
	assert.Equal(t, 1, handles["s"].index)
}
