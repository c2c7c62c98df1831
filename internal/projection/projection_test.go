package projection

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/populate/internal/descriptor"
	"github.com/roach88/populate/internal/expr"
	"github.com/roach88/populate/internal/mapping"
	"github.com/roach88/populate/internal/memberpath"
	"github.com/roach88/populate/internal/meta"
	"github.com/roach88/populate/internal/populate"
	"github.com/roach88/populate/internal/shape"
	"github.com/roach88/populate/internal/testutil"
)

type fixture struct {
	cat      *testutil.Catalog
	resolver *meta.Resolver
	builder  *Builder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cat := testutil.NewCatalog()
	resolver := meta.NewResolver(cat.Shapes,
		meta.WithCache(meta.NewCache()),
		meta.WithDynamic(func(owner *shape.Shape, f shape.Field) (shape.Type, bool) {
			return cat.Mappings.SourceType(cat.Shapes, owner, f)
		}),
	)
	return fixture{cat: cat, resolver: resolver, builder: NewBuilder(cat.Shapes, cat.Mappings)}
}

func (f fixture) request(t *testing.T, keys ...string) Request {
	t.Helper()
	bag, err := f.resolver.Bag("CustomerView")
	require.NoError(t, err)
	return Request{
		Source:      "Customer",
		Destination: "CustomerView",
		Analyzer:    populate.New(bag, descriptor.NewKeySet(keys...)),
	}
}

func (f fixture) build(t *testing.T, keys ...string) *Projection {
	t.Helper()
	p, err := f.builder.Build(f.request(t, keys...))
	require.NoError(t, err)
	return p
}

func fieldNames(s *shape.Shape) []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

func TestBuild_RootFields(t *testing.T) {
	f := newFixture(t)
	p := f.build(t, "*")

	assert.Equal(t,
		`CustomerView{id: p.id, name: p.name, email: p.email, tier: p.tier, vip: p.vip, age: p.age, `+
			`createdAt: p.createdAt, city: p.address.city, avatar: p.avatar, nicknames: p.nicknames.toList(), internalCode: ""}`,
		expr.Format(p.Body))

	root, ok := p.Shape(memberpath.Root)
	require.True(t, ok)
	assert.Equal(t, "CustomerView", root.Name)
	assert.NotContains(t, fieldNames(root), "address", "unpopulated references are left out")
	assert.Len(t, p.Shapes(), 1)
}

func TestBuild_NullGuard(t *testing.T) {
	f := newFixture(t)
	p := f.build(t, "address*")

	address, ok := p.Body.(*expr.Record).Field("address")
	require.True(t, ok)
	assert.Equal(t,
		`((p.address == null) ? null : AddressView@address{street: (p.address.street ?? ""), city: (p.address.city ?? "")})`,
		expr.Format(address))

	docs := testutil.Customers()
	ada, err := p.Apply(docs[0])
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"street": "12 St James's Square", "city": "London"}, ada["address"])

	charles, err := p.Apply(docs[1])
	require.NoError(t, err, "a null optional relation must not fail the projection")
	assert.Nil(t, charles["address"])
	assert.Nil(t, charles["city"])

	s, ok := p.Shape(memberpath.New("address"))
	require.True(t, ok)
	assert.Equal(t, []string{"street", "city"}, fieldNames(s))
}

func TestBuild_CollectionOfRecords(t *testing.T) {
	f := newFixture(t)
	p := f.build(t, "orders*")

	orders, ok := p.Body.(*expr.Record).Field("orders")
	require.True(t, ok)
	assert.Equal(t,
		`p.orders.map(x1 => OrderView@orders{number: x1.number, total: x1.total, placedAt: x1.placedAt, `+
			`status: x1.status, tags: x1.tags.toList(), notes: (x1.notes ?? "")}).toList()`,
		expr.Format(orders))

	out, err := p.Apply(testutil.Customers()[0])
	require.NoError(t, err)
	list, ok := out["orders"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)

	first := list[0].(map[string]any)
	assert.Equal(t, "A-100", first["number"])
	assert.True(t, decimal.RequireFromString("120.5").Equal(first["total"].(decimal.Decimal)))
	assert.Equal(t, []any{"priority", "gift"}, first["tags"])
	assert.Equal(t, "", list[1].(map[string]any)["notes"], "null notes coalesce to the destination default")
}

func TestBuild_PathBag(t *testing.T) {
	f := newFixture(t)
	p := f.build(t, "orders.items.product*", "address*")

	tests := []struct {
		path        string
		access      string
		collections []string
	}{
		{"name", "p.name", nil},
		{"city", "p.address.city", nil},
		{"address.street", "p.address.street", nil},
		{"orders", "p.orders", nil},
		{"orders.total", "x1.total", []string{"p.orders"}},
		{"orders.items.sku", "x2.sku", []string{"p.orders", "x1.items"}},
		{"orders.items.product.name", "x2.product.name", []string{"p.orders", "x1.items"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			info, ok := p.Paths.Lookup(memberpath.New(tt.path))
			require.True(t, ok)
			assert.Equal(t, tt.access, expr.Format(info.Access))

			var got []string
			for _, s := range info.Scopes {
				got = append(got, expr.Format(s.Collection))
			}
			assert.Equal(t, tt.collections, got)
		})
	}

	_, ok := p.Paths.Lookup(memberpath.New("orders.items.product.category"))
	assert.False(t, ok, "members outside the selection are not recorded")
	_, ok = p.Paths.Lookup(memberpath.New("internalCode"))
	assert.False(t, ok, "ignored members have no source access")
}

func TestBuild_DynamicPassthrough(t *testing.T) {
	f := newFixture(t)
	p := f.build(t, "referrer*", "orders.items.product*")

	s, ok := p.Shape(memberpath.New("referrer"))
	require.True(t, ok)
	assert.Equal(t, "Customer@referrer", s.Name)
	assert.Equal(t,
		[]string{"id", "name", "email", "tier", "vip", "age", "createdAt", "avatar", "nicknames", "passwordHint"},
		fieldNames(s))

	product, ok := p.Shape(memberpath.New("orders.items.product"))
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, fieldNames(product))

	charles, err := p.Apply(testutil.Customers()[1])
	require.NoError(t, err)
	referrer := charles["referrer"].(map[string]any)
	assert.Equal(t, "Ada Lovelace", referrer["name"])

	items := charles["orders"].([]any)[0].(map[string]any)["items"].([]any)
	assert.Equal(t, "Difference Gear", items[0].(map[string]any)["product"].(map[string]any)["name"])
}

func TestBuild_FieldSelection(t *testing.T) {
	f := newFixture(t)
	p := f.build(t, "orders*", "orders.number")

	s, ok := p.Shape(memberpath.New("orders"))
	require.True(t, ok)
	assert.Equal(t, []string{"number"}, fieldNames(s))

	root, _ := p.Shape(memberpath.Root)
	assert.Contains(t, fieldNames(root), "name", "a field list below the root does not restrict the root")
}

func TestBuild_Errors(t *testing.T) {
	f := newFixture(t)

	t.Run("missing mapping", func(t *testing.T) {
		req := f.request(t, "*")
		req.Source = "Order"
		_, err := f.builder.Build(req)
		require.Error(t, err)
		assert.True(t, IsMappingError(err))
		assert.False(t, IsSynthesisError(err))
		assert.Contains(t, err.Error(), "MISSING_MAPPING")
	})

	t.Run("identical shapes need no mapping", func(t *testing.T) {
		bag, err := f.resolver.Bag("Customer")
		require.NoError(t, err)
		_, err = f.builder.Build(Request{
			Source:      "Customer",
			Destination: "Customer",
			Analyzer:    populate.New(bag, descriptor.DefaultKeySet()),
		})
		assert.NoError(t, err)
	})

	t.Run("unresolvable source path", func(t *testing.T) {
		maps := mapping.NewRegistry().MustRegister(&mapping.TypeMap{
			Source:      "Customer",
			Destination: "CustomerView",
			Fields:      []mapping.FieldMap{{Destination: "city", Source: "address.country"}},
		})
		b := NewBuilder(f.cat.Shapes, maps)
		_, err := b.Build(f.request(t, "*"))
		require.Error(t, err)
		assert.True(t, IsSynthesisError(err))

		var be *BuildError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "city", be.Path.Value())
		assert.Equal(t, "resolve-source", be.Operation)
	})
}

func TestBuild_ToTextMapper(t *testing.T) {
	cat := testutil.NewCatalog()
	label := &shape.Shape{Name: "AgeLabel", Fields: []shape.Field{
		testutil.F("name", "string"),
		testutil.F("age", "string"),
	}}
	cat.Shapes.MustRegister(label)
	maps := mapping.NewRegistry().MustRegister(&mapping.TypeMap{Source: "Customer", Destination: "AgeLabel"})

	bag, err := meta.NewResolver(cat.Shapes, meta.WithCache(meta.NewCache())).Bag("AgeLabel")
	require.NoError(t, err)
	p, err := NewBuilder(cat.Shapes, maps).Build(Request{
		Source:      "Customer",
		Destination: "AgeLabel",
		Analyzer:    populate.New(bag, descriptor.DefaultKeySet()),
	})
	require.NoError(t, err)
	assert.Equal(t, "AgeLabel{name: p.name, age: p.age.toText()}", expr.Format(p.Body))

	out, err := p.Apply(testutil.Customers()[2])
	require.NoError(t, err)
	assert.Equal(t, "85", out["age"])
}

func TestBuild_Deterministic(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, "#")
	b := f.build(t, "#")

	assert.Equal(t, expr.Format(a.Body), expr.Format(b.Body))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Paths.Paths(), b.Paths.Paths())
}
