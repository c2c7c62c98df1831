// Package meta resolves the field metadata graph of a shape.
//
// A Bag maps every reachable member path to the properties declared at that
// node: direct fields (scalars, scalar collections, opaque values) and
// references (records and collections of records). Bags are built with an
// explicit stack and a per-declaration depth guard so self-referential and
// mutually-referential shapes terminate:
//
//	Node { parent: Node?, children: []Node }
//
// yields paths "", "parent", "children", "parent.parent", "parent.children",
// "children.parent", "children.children" and stops there. A field declaration
// is expanded at the depth where it was first pushed and one level deeper,
// never beyond.
//
// Shapes never change after loading, so a Resolver caches each bag for its
// lifetime.
package meta
