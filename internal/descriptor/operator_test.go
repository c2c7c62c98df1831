package descriptor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupOperator(t *testing.T) {
	testCases := []struct {
		token string
		want  CompareOperator
	}{
		{"$eq", Equal},
		{"$ne", NotEqual},
		{"$lt", LessThan},
		{"$lte", LessThanOrEqual},
		{"$gt", GreaterThan},
		{"$gte", GreaterThanOrEqual},
		{"$contains", Contains},
		{"$notContains", NotContains},
		{"$startsWith", StartsWith},
		{"$notstartsWith", NotStartsWith},
		{"$endsWith", EndsWith},
		{"$notendsWith", NotEndsWith},
		{"$in", In},
		{"$notIn", NotIn},
		{"$null", Null},
		{"$notNull", NotNull},
		{"$NOTIN", NotIn},
		{"$StartsWith", StartsWith},
	}

	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			got, ok := LookupOperator(tc.token)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := LookupOperator("$like")
	assert.False(t, ok)
	_, ok = LookupOperator("eq")
	assert.False(t, ok, "tokens keep their dollar prefix")
}

func TestOperators_Complete(t *testing.T) {
	ops := Operators()
	require.Len(t, ops, 16)
	for _, op := range ops {
		assert.NotEmpty(t, op.Token(), op.String())
		assert.NotEmpty(t, op.Group(), op.String())

		back, ok := LookupOperator(op.Token())
		require.True(t, ok)
		assert.Equal(t, op, back)
	}
}

func TestCompareOperator_Groups(t *testing.T) {
	assert.Equal(t, GroupComparison, GreaterThanOrEqual.Group())
	assert.Equal(t, GroupContain, NotEndsWith.Group())
	assert.Equal(t, GroupIn, NotIn.Group())
	assert.Equal(t, GroupNullable, NotNull.Group())
	assert.Equal(t, GroupEqual, NotEqual.Group())
}

func TestCompareOperator_Negate(t *testing.T) {
	testCases := []struct {
		op, want CompareOperator
	}{
		{Equal, NotEqual},
		{GreaterThan, LessThanOrEqual},
		{GreaterThanOrEqual, LessThan},
		{LessThan, GreaterThanOrEqual},
		{LessThanOrEqual, GreaterThan},
		{StartsWith, NotStartsWith},
		{In, NotIn},
		{Null, NotNull},
		{NotNull, Null},
	}

	for _, tc := range testCases {
		t.Run(tc.op.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.op.Negate())
			assert.Equal(t, tc.op, tc.op.Negate().Negate(), "negation is an involution")
		})
	}
}

func TestCompareOperator_Positive(t *testing.T) {
	assert.Equal(t, In, NotIn.Positive())
	assert.Equal(t, Contains, NotContains.Positive())
	assert.Equal(t, GreaterThan, GreaterThan.Positive())
	assert.True(t, NotEndsWith.Negated())
	assert.False(t, LessThan.Negated())
}

func TestCompareOperator_Text(t *testing.T) {
	data, err := json.Marshal(struct {
		Op CompareOperator `json:"op"`
	}{NotStartsWith})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"NotStartsWith"}`, string(data))

	var op CompareOperator
	require.NoError(t, op.UnmarshalText([]byte("$gte")))
	assert.Equal(t, GreaterThanOrEqual, op)
	require.NoError(t, op.UnmarshalText([]byte("notin")))
	assert.Equal(t, NotIn, op)
	assert.Error(t, op.UnmarshalText([]byte("between")))
}

func TestParseLogical(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want LogicalOperator
	}{
		{"$or", Or}, {"OR", Or}, {"$and", And}, {"and", And}, {"none", None},
	} {
		got, ok := ParseLogical(tc.in)
		require.True(t, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, ok := ParseLogical("$xor")
	assert.False(t, ok)
	assert.Equal(t, "Or", Or.String())
}
