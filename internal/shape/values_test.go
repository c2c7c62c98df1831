package shape

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	id := uuid.MustParse("6f1c2b4e-8a53-4c2e-9d63-0d3b6f2a9e11")

	testCases := []struct {
		name  string
		typ   Type
		input string
		want  any
	}{
		{"string", Scalar(KindString), " hello ", "hello"},
		{"int", Scalar(KindInt), "42", int64(42)},
		{"float", Scalar(KindFloat), "1.5", 1.5},
		{"decimal", Scalar(KindDecimal), "10.25", decimal.RequireFromString("10.25")},
		{"bool", Scalar(KindBool), "true", true},
		{"time", Scalar(KindTime), "2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"date", Scalar(KindDate), "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"time of day", Scalar(KindTimeOfDay), "10:30", 10*time.Hour + 30*time.Minute},
		{"uuid", Scalar(KindUUID), id.String(), id},
		{"enum", Enum("Active", "Archived"), "active", "Active"},
		{"nullable empty", Nullable(Scalar(KindInt)), "", nil},
		{"nullable null", Nullable(Scalar(KindInt)), "null", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.typ, tc.input)
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, got), "want %v, got %v", tc.want, got)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	testCases := []struct {
		name  string
		typ   Type
		input string
	}{
		{"int from text", Scalar(KindInt), "abc"},
		{"int empty", Scalar(KindInt), ""},
		{"bool", Scalar(KindBool), "maybe"},
		{"uuid", Scalar(KindUUID), "not-a-uuid"},
		{"enum", Enum("a", "b"), "c"},
		{"record", Object("Customer"), "x"},
		{"collection", CollectionOf(Scalar(KindInt)), "1"},
		{"nan", Scalar(KindFloat), "NaN"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.typ, tc.input)
			assert.Error(t, err)
		})
	}
}

func TestParseList(t *testing.T) {
	got, err := ParseList(Scalar(KindInt), "1, 2,,3")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, got)

	_, err = ParseList(Scalar(KindInt), "1,x")
	assert.Error(t, err)

	_, err = ParseList(Scalar(KindInt), " , ")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	v, err := Normalize(Scalar(KindInt), float64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	v, err = Normalize(Scalar(KindDecimal), json.Number("3.10"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("3.1").Equal(v.(decimal.Decimal)))

	v, err = Normalize(Scalar(KindTime), "2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), v)

	v, err = Normalize(Scalar(KindInt), nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Normalize(Scalar(KindInt), 1.5)
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	c, err := Compare(int64(1), 2.5)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare(decimal.NewFromInt(3), int64(3))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = Compare("b", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	_, err = Compare("a", int64(1))
	assert.Error(t, err)

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, int64(0)))
}

func TestToText(t *testing.T) {
	assert.Equal(t, "42", ToText(int64(42)))
	assert.Equal(t, "1.5", ToText(1.5))
	assert.Equal(t, "true", ToText(true))
	assert.Equal(t, "10:30:00", ToText(10*time.Hour+30*time.Minute))
	assert.Equal(t, "", ToText(nil))
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "", Default(Scalar(KindString)))
	assert.Equal(t, int64(0), Default(Scalar(KindInt)))
	assert.Nil(t, Default(Nullable(Scalar(KindInt))))
	assert.Nil(t, Default(Object("Customer")))
	assert.Equal(t, []any{}, Default(CollectionOf(Scalar(KindInt))))
}
