// Package catalog describes the relation, column and type metadata the
// analyzer consults, and an in-memory implementation of it.
package catalog

import (
	"context"

	"github.com/nonibytes/scanhint/scanhint/types"
)

// Operators are the default ordering operators of a type. Either may be
// InvalidOid when the type has no btree ordering.
type Operators struct {
	Lt types.Oid
	Gt types.Oid
}

// Catalog answers metadata lookups. A missing column or a non-array type is
// reported through the zero value, not an error; errors are reserved for
// failures of the catalog itself.
type Catalog interface {
	// AttNum resolves a column name of rel, or InvalidAttrNumber.
	AttNum(ctx context.Context, rel types.Oid, name string) (types.AttrNumber, error)
	// AttType returns the declared type of column attno of rel, or InvalidOid.
	AttType(ctx context.Context, rel types.Oid, attno types.AttrNumber) (types.Oid, error)
	// ElementType returns the element type of an array type, or InvalidOid.
	ElementType(ctx context.Context, typ types.Oid) (types.Oid, error)
	// Operators returns the default ordering operators of typ.
	Operators(ctx context.Context, typ types.Oid) (Operators, error)
}

// BaseType unwraps an array type to its element type and returns any other
// type unchanged.
func BaseType(ctx context.Context, c Catalog, typ types.Oid) (types.Oid, error) {
	elem, err := c.ElementType(ctx, typ)
	if err != nil {
		return types.InvalidOid, err
	}
	if elem.IsValid() {
		return elem, nil
	}
	return typ, nil
}

// Snapshot is a portable copy of the metadata for a set of relations.
type Snapshot struct {
	Relations []Relation `json:"relations"`
	Types     []Type     `json:"types"`
}

// Relation is one table and its live columns.
type Relation struct {
	Oid     types.Oid `json:"oid"`
	Name    string    `json:"name"`
	Columns []Column  `json:"columns"`
}

// Column is one attribute of a relation.
type Column struct {
	Name   string           `json:"name"`
	AttNum types.AttrNumber `json:"attnum"`
	Type   types.Oid        `json:"type"`
}

// Type is one entry of the type catalog.
type Type struct {
	Oid  types.Oid `json:"oid"`
	Name string    `json:"name"`
	// Elem is the element type of an array type.
	Elem types.Oid `json:"elem,omitempty"`
	Lt   types.Oid `json:"lt,omitempty"`
	Gt   types.Oid `json:"gt,omitempty"`
}
