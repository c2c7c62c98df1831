package testutil

import (
	"github.com/roach88/populate/internal/mapping"
	"github.com/roach88/populate/internal/shape"
)

// Catalog bundles the shared fixture: a small store domain with an optional
// relation, collections of records, a scalar collection, an opaque blob, a
// self-referential Node and a Category chain.
type Catalog struct {
	Shapes   *shape.Registry
	Mappings *mapping.Registry
}

// F declares a field from type syntax ("[]Order", "string?", "enum(a|b)").
func F(name, typ string) shape.Field {
	return shape.Field{Name: name, Type: shape.MustParseType(typ)}
}

// Keyword declares a searchable identifier field.
func Keyword(name, typ string) shape.Field {
	f := F(name, typ)
	f.Keyword = true
	return f
}

// Hidden declares a field excluded from metadata.
func Hidden(name, typ string) shape.Field {
	f := F(name, typ)
	f.Ignore = true
	return f
}

// NotSearch declares a text field excluded from free-text search.
func NotSearch(name, typ string) shape.Field {
	f := F(name, typ)
	f.NotSearch = true
	return f
}

// Source shapes.
var (
	Customer = &shape.Shape{Name: "Customer", Fields: []shape.Field{
		Keyword("id", "uuid"),
		F("name", "string"),
		F("email", "string?"),
		F("tier", "enum(bronze|silver|gold)"),
		F("vip", "bool"),
		F("age", "int"),
		F("createdAt", "time"),
		F("address", "Address?"),
		F("orders", "[]Order"),
		F("referrer", "Customer?"),
		F("avatar", "Blob?"),
		F("nicknames", "[]string"),
		NotSearch("passwordHint", "string"),
		Hidden("secret", "string"),
	}}

	Address = &shape.Shape{Name: "Address", Fields: []shape.Field{
		F("street", "string"),
		F("city", "string"),
		F("zip", "string"),
	}}

	Order = &shape.Shape{Name: "Order", Fields: []shape.Field{
		F("id", "uuid"),
		F("number", "string"),
		F("total", "decimal"),
		F("placedAt", "time"),
		F("status", "enum(pending|paid|shipped)"),
		F("items", "[]OrderItem"),
		F("tags", "[]string"),
		F("notes", "string?"),
	}}

	OrderItem = &shape.Shape{Name: "OrderItem", Fields: []shape.Field{
		F("sku", "string"),
		F("quantity", "int"),
		F("price", "decimal"),
		F("product", "Product"),
	}}

	Product = &shape.Shape{Name: "Product", Fields: []shape.Field{
		F("id", "uuid"),
		F("name", "string"),
		F("category", "Category?"),
	}}

	Category = &shape.Shape{Name: "Category", Fields: []shape.Field{
		F("name", "string"),
		F("parent", "Category?"),
	}}

	Blob = &shape.Shape{Name: "Blob", Fields: []shape.Field{
		F("path", "string"),
		F("size", "int"),
	}}

	Node = &shape.Shape{Name: "Node", Fields: []shape.Field{
		F("id", "int"),
		F("label", "string"),
		F("parent", "Node?"),
		F("children", "[]Node"),
	}}
)

// Destination shapes.
var (
	CustomerView = &shape.Shape{Name: "CustomerView", Fields: []shape.Field{
		F("id", "uuid"),
		F("name", "string"),
		F("email", "string?"),
		F("tier", "enum(bronze|silver|gold)"),
		F("vip", "bool"),
		F("age", "int"),
		F("createdAt", "time"),
		F("city", "string?"),
		F("address", "AddressView?"),
		F("orders", "[]OrderView"),
		F("referrer", "any?"),
		F("avatar", "Blob?"),
		F("nicknames", "[]string"),
		F("internalCode", "string"),
	}}

	AddressView = &shape.Shape{Name: "AddressView", Fields: []shape.Field{
		F("street", "string"),
		F("city", "string"),
	}}

	OrderView = &shape.Shape{Name: "OrderView", Fields: []shape.Field{
		F("number", "string"),
		F("total", "decimal"),
		F("placedAt", "time"),
		F("status", "enum(pending|paid|shipped)"),
		F("items", "[]ItemView"),
		F("tags", "[]string"),
		F("notes", "string"),
	}}

	ItemView = &shape.Shape{Name: "ItemView", Fields: []shape.Field{
		F("sku", "string"),
		F("quantity", "int"),
		F("price", "decimal"),
		F("product", "any"),
	}}
)

// Field mappings between the source and destination shapes.
var (
	CustomerToView = &mapping.TypeMap{Source: "Customer", Destination: "CustomerView", Fields: []mapping.FieldMap{
		{Destination: "city", Source: "address.city"},
		{Destination: "address", AllowNull: true},
		{Destination: "internalCode", Ignored: true},
	}}
	AddressToView = &mapping.TypeMap{Source: "Address", Destination: "AddressView"}
	OrderToView   = &mapping.TypeMap{Source: "Order", Destination: "OrderView"}
	ItemToView    = &mapping.TypeMap{Source: "OrderItem", Destination: "ItemView"}
)

// NewCatalog builds fresh registries holding the fixture.
func NewCatalog() *Catalog {
	shapes := shape.NewRegistry().MustRegister(
		Customer, Address, Order, OrderItem, Product, Category, Blob, Node,
		CustomerView, AddressView, OrderView, ItemView,
	)
	shapes.MarkOpaque("Blob")

	maps := mapping.NewRegistry().MustRegister(CustomerToView, AddressToView, OrderToView, ItemToView)
	return &Catalog{Shapes: shapes, Mappings: maps}
}
