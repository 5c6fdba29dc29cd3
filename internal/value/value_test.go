package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKindRoundTrip(t *testing.T) {
	cases := []struct {
		v    Value
		kind Kind
	}{
		{Bool(true), KindBool},
		{Int64(-5), KindInt64},
		{Uint64(5), KindUint64},
		{Float64(1.5), KindFloat64},
		{String("x"), KindString},
		{Bytes("x"), KindBytes},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, c.v.Kind())
	}
}

func TestTupleEqualIgnoresIdenticalUnicodeForms(t *testing.T) {
	// "é" as a single rune vs. "e" + combining acute accent.
	precomposed := Tuple{String("café")}
	decomposed := Tuple{String("café")}
	assert.True(t, precomposed.Equal(decomposed))
}

func TestTupleStringSingleColumn(t *testing.T) {
	assert.Equal(t, "hello", Tuple{String("hello")}.String())
}

func TestTupleStringMultiColumn(t *testing.T) {
	tup := Tuple{Int64(1), String("x")}
	assert.Equal(t, "1,x", tup.String())
}

func TestSchemaValidate(t *testing.T) {
	s, err := NewSchema([]string{"x", "y"}, []Kind{KindInt64, KindString})
	require.NoError(t, err)

	require.NoError(t, s.Validate(Tuple{Int64(1), String("a")}))
	assert.Error(t, s.Validate(Tuple{Int64(1)}))
	assert.Error(t, s.Validate(Tuple{String("a"), String("b")}))
}

func TestSchemaIndexOf(t *testing.T) {
	s, err := NewSchema([]string{"addr", "x"}, []Kind{KindString, KindInt64})
	require.NoError(t, err)
	assert.Equal(t, 0, s.IndexOf("addr"))
	assert.Equal(t, 1, s.IndexOf("x"))
	assert.Equal(t, -1, s.IndexOf("missing"))
}

func TestDefaultFamilyHashStableAndSensitive(t *testing.T) {
	fam := DefaultFamily{}
	a := Tuple{Int64(1), String("x")}
	b := Tuple{Int64(1), String("x")}
	c := Tuple{Int64(2), String("x")}

	assert.Equal(t, fam.Hash(a), fam.Hash(b))
	assert.NotEqual(t, fam.Hash(a), fam.Hash(c))
}

func TestFromCUESchema(t *testing.T) {
	schema, err := FromCUE(`{x: int, y: string, z: float}`)
	require.NoError(t, err)
	require.Len(t, schema, 3)
	assert.Equal(t, "x", schema[0].Name)
	assert.Equal(t, KindInt64, schema[0].Kind)
	assert.Equal(t, "y", schema[1].Name)
	assert.Equal(t, KindString, schema[1].Kind)
	assert.Equal(t, "z", schema[2].Name)
	assert.Equal(t, KindFloat64, schema[2].Kind)
}
