package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/populate/internal/meta"
	"github.com/roach88/populate/internal/params"
	"github.com/roach88/populate/internal/query"
	"github.com/roach88/populate/internal/testutil"
)

func loadedStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	_, err := s.Load(context.Background(), "Customer", testutil.CustomersJSON())
	require.NoError(t, err)
	return s
}

func newCompiler(t *testing.T) *query.Compiler {
	t.Helper()
	cat := testutil.NewCatalog()
	c, err := query.NewCompiler(cat.Shapes, cat.Mappings, query.Options{}, query.WithMetaCache(meta.NewCache()))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func names(items []map[string]any) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i], _ = item["name"].(string)
	}
	return out
}

func TestExecute(t *testing.T) {
	s := loadedStore(t)
	c := newCompiler(t)
	e := NewExecutor(s)

	testCases := []struct {
		name  string
		query string
		want  []string
		total int
	}{
		{"everything by default sort", "", []string{"Charles Babbage", "Grace Hopper", "Ada Lovelace"}, 3},
		{"comparison", "filter[age][$gte]=79", []string{"Charles Babbage", "Grace Hopper"}, 2},
		{"paged", "sort[0]=name&pagination[page]=2&pagination[pageSize]=2", []string{"Grace Hopper"}, 3},
		{"past the last page", "pagination[page]=9&pagination[pageSize]=2", []string{}, 3},
		{"quantified", "populate=orders&filter[orders.total][$gte]=100&sort[0]=name",
			[]string{"Ada Lovelace", "Charles Babbage"}, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := c.Compile("Customer", "CustomerView", params.Bind(params.MustParseQuery(tc.query)))
			require.NoError(t, err)

			res, err := e.Execute(context.Background(), plan)
			require.NoError(t, err)
			assert.Equal(t, tc.want, names(res.Items))
			assert.Equal(t, tc.total, res.Total)
			assert.Equal(t, plan.Paging.Page, res.Page)
			assert.Equal(t, plan.Paging.PageSize, res.PageSize)
		})
	}
}

// The SQLite executor and in-memory execution over the same documents must
// return identical pages.
func TestExecute_AgreesWithInMemory(t *testing.T) {
	s := loadedStore(t)
	c := newCompiler(t)
	e := NewExecutor(s)
	ctx := context.Background()

	docs, err := s.Documents(ctx, "Customer")
	require.NoError(t, err)

	queries := []string{
		"",
		"filter[age][$gte]=79",
		"filter[age][$lt]=79&sort[0]=age:desc",
		"filter[name][$contains]=LOVE",
		"filter[name][$notendsWith]=per",
		"filter[name][$startsWith]=gr",
		"filter[age][$contains]=8",
		"filter[age][$contains]=abc",
		"filter[tier][$ne]=gold",
		"filter[tier][$in]=gold,bronze",
		"filter[email][$null]=true",
		"filter[email][$notnull]=true",
		"filter[city][$null]=true",
		"filter[city][$eq]=London",
		"filter[vip][$eq]=false",
		"filter[createdAt][$gt]=2024-01-11T00:00:00Z",
		"filter[id][$eq]=0b7c6f3e-2d1a-4c55-9e0a-1f2b3c4d5e02",
		"filter[nicknames][$startsWith]=charl",
		"filter[nicknames][$eq]=Countess",
		"filter[age]=btw:30,80",
		"filter[age]=not:btw:30,80",
		"filter[name][$or][0][$contains]=ada&filter[name][$or][1][$contains]=grace&filter[vip][$eq]=false",
		"populate=orders&filter[orders.total][$gte]=100",
		"populate=orders&filter[orders.total][$lt]=20",
		"populate=orders&filter[orders.status][$notContains]=pa",
		"populate=orders.items*&filter[orders.items.sku][$endsWith]=-10",
		"populate=orders.items*&filter[orders.items.quantity][$gte]=10",
		"populate=orders&filter[orders.notes][$null]=true",
		"search[keyword]=love&search[fields][0]=name",
		"search[keyword]=ON&search[fields][0]=name&search[fields][1]=email",
		"sort[0]=name:desc",
		"sort[0]=vip&sort[1]=name:desc",
		"sort[0]=email",
		"sort[0]=email:desc",
		"sort[0]=id:desc",
		"sort[0]=city",
		"populate=orders&sort[0]=orders.total:desc",
		"populate=orders&sort[0]=orders.placedAt",
		"sort[0]=age&pagination[page]=2&pagination[pageSize]=1",
		"populate=*&fields=name&fields[address]=city",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			plan, err := c.Compile("Customer", "CustomerView", params.Bind(params.MustParseQuery(q)))
			require.NoError(t, err)

			want, err := plan.Execute(docs)
			require.NoError(t, err)

			got, err := e.Execute(ctx, plan)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestExecute_OtherShapesAreInvisible(t *testing.T) {
	s := loadedStore(t)
	ctx := context.Background()
	_, err := s.Load(ctx, "Order", []byte(`[{"number": "A-1", "name": "Ada Lovelace"}]`))
	require.NoError(t, err)

	plan, err := newCompiler(t).Compile("Customer", "CustomerView", params.Bind(params.MustParseQuery("")))
	require.NoError(t, err)

	res, err := NewExecutor(s).Execute(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
}

func TestStatements(t *testing.T) {
	plan, err := newCompiler(t).Compile("Customer", "CustomerView", params.Bind(params.MustParseQuery("filter[age][$gt]=1")))
	require.NoError(t, err)

	q, err := NewExecutor(createTestStore(t)).Statements(plan)
	require.NoError(t, err)
	assert.Contains(t, q.Select.SQL, "FROM documents AS d")
	assert.Contains(t, q.Select.SQL, "d.id ASC")
}
