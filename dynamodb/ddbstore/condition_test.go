package ddbstore

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortCondition_Matches(t *testing.T) {
	t.Run("between boundaries", func(t *testing.T) {
		c := Between("A", "H")
		assert.True(t, c.Matches("A"))
		assert.True(t, c.Matches("H"))
		assert.False(t, c.Matches("H1"))
		assert.False(t, c.Matches("0"))
	})

	t.Run("gte boundaries", func(t *testing.T) {
		c := GreaterThanOrEqual("G")
		assert.True(t, c.Matches("G"))
		assert.False(t, c.Matches("F"))
	})

	t.Run("comparison is bytewise", func(t *testing.T) {
		assert.True(t, LessThan("a").Matches("Z"))
		assert.True(t, LessThan("10").Matches("1"))
		assert.False(t, LessThan("10").Matches("9"))
	})

	t.Run("malformed conditions match nothing", func(t *testing.T) {
		for _, c := range []*SortCondition{
			{Op: OpBetween, Value: "A"},
			{Op: OpBetween, Value: nil},
			{Op: OpBetween, Value: []string{"A"}},
			{Op: OpBetween, Value: []any{"A", 1}},
			{Op: OpEqual, Value: []string{"A"}},
			{Op: "", Value: "A"},
		} {
			assert.False(t, c.Valid())
			assert.False(t, c.Matches("A"))
			assert.True(t, c.exhausted("A"))
		}
	})
}

func TestSortCondition_Shape(t *testing.T) {
	shapes := map[string]*SortCondition{}
	for _, cond := range []*SortCondition{
		nil,
		Between("a b", "c"),
		Between("a", "b c"),
		{Op: OpBetween, Value: []string{"a b", "c"}},
		Equals("a"),
		Equals("a\x00"),
		BeginsWith("a"),
		Equals("a").On("GSI1SK"),
	} {
		shape := cond.shape()
		prev, seen := shapes[shape]
		assert.False(t, seen, "%+v and %+v share shape %q", prev, cond, shape)
		shapes[shape] = cond
	}
	assert.Equal(t, Between("a", "b c").shape(), Between("a", "b c").shape())
}

func TestParseOperator(t *testing.T) {
	for _, name := range []string{"eq", "begins_with", "between", "gt", "gte", "lt", "lte"} {
		op, err := ParseOperator(name)
		require.NoError(t, err)
		assert.Equal(t, Operator(name), op)
	}
	_, err := ParseOperator("contains")
	require.Error(t, err)
}

func TestEscapeBytes_PreservesOrder(t *testing.T) {
	values := []string{"", "\x00", "\x00\x00", "\x01", "\x01\x00", "\x02", "A", "A\x00", "A\x00B", "A\x01", "AB", "B", "\xff"}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = escapeBytes([]byte(v))
		assert.False(t, bytes.Contains(encoded[i], []byte{keySeparator}), "%q", v)
		assert.Equal(t, v, string(unescapeBytes(encoded[i])))
	}
	assert.True(t, sort.SliceIsSorted(encoded, func(i, j int) bool {
		return bytes.Compare(encoded[i], encoded[j]) < 0
	}))
}
