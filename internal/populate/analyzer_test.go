package populate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/meta"
	"github.com/roach88/populate/internal/testutil"
)

func customerBag(t testing.TB) *meta.Bag {
	cat := testutil.NewCatalog()
	bag, err := meta.NewResolver(cat.Shapes).Bag("Customer")
	require.NoError(t, err)
	return bag
}

func names(props []meta.Property) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Field.Name
	}
	return out
}

func TestResolve(t *testing.T) {
	bag := customerBag(t)

	testCases := []struct {
		name      string
		requested []string
		want      []string
	}{
		{"root only", []string{"*"}, []string{"*"}},
		{"one level", []string{"1*"}, []string{"*", "address*", "orders*", "referrer*"}},
		{"depth below path", []string{"orders.2*"}, []string{"*", "orders*", "orders.items*", "orders.items.product*"}},
		{"relation", []string{"orders.items*"}, []string{"*", "orders*", "orders.items*"}},
		{"field implies ancestors", []string{"orders.items.sku"}, []string{"*", "orders*", "orders.items*", "orders.items.sku"}},
		{"unknown relation kept", []string{"bogus*"}, []string{"*", "bogus*"}},
		{"field selection", []string{"name", "email"}, []string{"*", "email", "name"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := New(bag, descriptor.NewKeySet(tc.requested...))
			assert.Equal(t, tc.want, a.Keys().Keys())
		})
	}
}

func TestResolve_DepthBound(t *testing.T) {
	bag := customerBag(t)
	a := New(bag, descriptor.NewKeySet("orders.2*"))

	root := memberpath.New("orders")
	for _, p := range bag.Paths() {
		if !p.HasPrefix(root) {
			continue
		}
		want := p.Level() <= root.Level()+2
		assert.Equal(t, want, a.Keys().Has(p.PopulateKey()), p.Value())
	}
	assert.False(t, a.Keys().Has("orders.items.product.category*"))
}

func TestResolve_Everything(t *testing.T) {
	bag := customerBag(t)
	a := New(bag, descriptor.NewKeySet(descriptor.KeyAll))

	assert.Equal(t, bag.Len(), a.Keys().Len())
	for _, p := range bag.Paths() {
		assert.True(t, a.Populated(p), p.Value())
	}
}

func TestResolve_EverythingOnCycle(t *testing.T) {
	cat := testutil.NewCatalog()
	bag, err := meta.NewResolver(cat.Shapes).Bag("Node")
	require.NoError(t, err)

	a := New(bag, descriptor.NewKeySet("#"))
	assert.Equal(t, 7, a.Keys().Len())
}

func TestResolve_DefaultIsRootOnly(t *testing.T) {
	bag := customerBag(t)

	assert.Equal(t, []string{descriptor.KeyRoot}, descriptor.NewQueryContext().Populate.Keys())

	a := New(bag, descriptor.DefaultKeySet())
	assert.Equal(t, []string{"*"}, a.Keys().Keys())
	assert.True(t, a.Populated(memberpath.Root))
	assert.False(t, a.Populated(memberpath.New("orders")))
	assert.False(t, a.Populated(memberpath.New("address")))

	all := New(bag, descriptor.NewKeySet(descriptor.KeyAll))
	assert.True(t, all.Populated(memberpath.New("orders")))
	assert.False(t, a.Equal(all))
}

func TestSelect_Root(t *testing.T) {
	bag := customerBag(t)

	sel := New(bag, descriptor.DefaultKeySet()).Select(memberpath.Root)
	assert.Equal(t, []string{
		"id", "name", "email", "tier", "vip", "age", "createdAt", "avatar", "nicknames", "passwordHint",
	}, names(sel.Direct))
	assert.Empty(t, sel.References)

	sel = New(bag, descriptor.NewKeySet("orders*")).Select(memberpath.Root)
	assert.Equal(t, []string{"orders"}, names(sel.References))
	assert.True(t, sel.Has("ORDERS"))
	assert.Len(t, sel.Properties(), len(sel.Direct)+1)
}

func TestSelect_FieldRestriction(t *testing.T) {
	bag := customerBag(t)
	a := New(bag, descriptor.NewKeySet("orders.items.product*", "orders.items.product.name"))

	sel := a.Select(memberpath.New("orders.items.product"))
	assert.Equal(t, []string{"name"}, names(sel.Direct))
	assert.Empty(t, sel.References)

	// Restriction applies to one node only.
	items := a.Select(memberpath.New("orders.items"))
	assert.Equal(t, []string{"sku", "quantity", "price"}, names(items.Direct))
	assert.Equal(t, []string{"product"}, names(items.References))
}

func TestSelect_RootFieldRestriction(t *testing.T) {
	bag := customerBag(t)
	sel := New(bag, descriptor.NewKeySet("email", "name", "address*")).Select(memberpath.Root)

	assert.Equal(t, []string{"name", "email"}, names(sel.Direct))
	assert.Equal(t, []string{"address"}, names(sel.References))
}

func TestSelect_NotPopulated(t *testing.T) {
	bag := customerBag(t)
	a := New(bag, descriptor.DefaultKeySet())

	assert.True(t, a.Select(memberpath.New("orders")).Empty())
	assert.False(t, a.Populated(memberpath.New("orders")))

	b := New(bag, descriptor.NewKeySet("bogus*"))
	assert.True(t, b.Select(memberpath.New("bogus")).Empty())
	assert.Empty(t, b.Select(memberpath.Root).References)
}

func TestAnalyzer_Equal(t *testing.T) {
	bag := customerBag(t)
	a := New(bag, descriptor.NewKeySet("orders*", "address*"))
	b := New(bag, descriptor.NewKeySet("Address*", "orders*"))
	c := New(bag, descriptor.NewKeySet("orders*"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestResolve_Idempotent(t *testing.T) {
	bag := customerBag(t)

	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfN(rapid.SampledFrom([]string{
			"*", "#", "1*", "2*", "orders*", "orders.1*", "orders.items.sku",
			"referrer.referrer*", "address.city", "name", "bogus*",
		}), 0, 5).Draw(t, "keys")

		once := New(bag, descriptor.NewKeySet(keys...)).Keys()
		twice := New(bag, once).Keys()
		if !once.Equal(twice) {
			t.Fatalf("expansion not idempotent: %v vs %v", once.Keys(), twice.Keys())
		}
	})
}
