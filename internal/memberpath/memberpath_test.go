package memberpath

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		value       string
		level       int
		populateKey string
	}{
		{"root", "", "", 0, "*"},
		{"single", "Name", "name", 1, "name*"},
		{"nested", "Orders.Customer.Name", "orders.customer.name", 3, "orders.customer.name*"},
		{"trimmed", " .orders. ", "orders", 1, "orders*"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(tc.input)
			assert.Equal(t, tc.value, p.Value())
			assert.Equal(t, tc.level, p.Level())
			assert.Equal(t, tc.populateKey, p.PopulateKey())
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, New("a.b.c"), Join("a", "b.c"))
	assert.Equal(t, New("a"), Join("a", ""))
	assert.Equal(t, New("b"), Join("", "b"))
	assert.Equal(t, Root, Join("", ""))
}

func TestEqualityIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, New("Orders.Total"), New("orders.TOTAL"))

	m := map[Path]int{New("Customer.Name"): 1}
	assert.Equal(t, 1, m[New("customer.name")])
}

func TestNavigation(t *testing.T) {
	p := New("orders.items.sku")

	parent, ok := p.Parent()
	assert.True(t, ok)
	assert.Equal(t, New("orders.items"), parent)
	assert.Equal(t, "sku", p.Last())
	assert.Equal(t, []string{"orders", "items", "sku"}, p.Segments())
	assert.Equal(t, []Path{New("orders"), New("orders.items")}, p.Ancestors())
	assert.Equal(t, New("orders.items.sku.code"), p.Child("Code"))

	top, ok := New("orders").Parent()
	assert.True(t, ok)
	assert.True(t, top.IsRoot())

	_, ok = Root.Parent()
	assert.False(t, ok)
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, New("orders.items").HasPrefix(New("orders")))
	assert.True(t, New("orders").HasPrefix(New("orders")))
	assert.True(t, New("orders").HasPrefix(Root))
	assert.False(t, New("ordersarchive").HasPrefix(New("orders")))
	assert.False(t, New("orders").HasPrefix(New("orders.items")))
}

func TestLevelMatchesSegmentCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		segments := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z][A-Za-z0-9]{0,6}`), 0, 6).Draw(t, "segments")
		p := New(strings.Join(segments, "."))
		if p.Level() != len(segments) {
			t.Fatalf("level %d for %d segments", p.Level(), len(segments))
		}
		if p.PopulateKey() != p.Value()+Wildcard {
			t.Fatalf("populate key %q for %q", p.PopulateKey(), p.Value())
		}
	})
}
