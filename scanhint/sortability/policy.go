// Package sortability decides whether the external engine can order results
// by a column of a given base type.
package sortability

import "github.com/nonibytes/scanhint/scanhint/types"

// Category groups base types by how the external engine indexes them.
type Category string

const (
	CategoryUnknown   Category = "unknown"
	CategoryText      Category = "text"       // analyzed free text
	CategoryTextArray Category = "text_array" // arrays of analyzed text
	CategoryBytes     Category = "bytes"      // raw byte blobs
	CategoryKeyword   Category = "keyword"    // varchar, char, name, uuid
	CategoryNumeric   Category = "numeric"
	CategoryBoolean   Category = "boolean"
	CategoryDateTime  Category = "datetime"
	CategoryJSON      Category = "json"
)

// unsortable lists the categories the engine cannot order without a full
// fallback. Everything else is sortable.
var unsortable = map[Category]bool{
	CategoryText:      true,
	CategoryTextArray: true,
	CategoryBytes:     true,
}

// IsSortable reports whether a sort on a column of category c may be pushed down.
func IsSortable(c Category) bool {
	return !unsortable[c]
}

var categories = map[types.Oid]Category{
	types.TextOID:      CategoryText,
	types.TextArrayOID: CategoryTextArray,
	types.ByteaOID:     CategoryBytes,

	types.VarcharOID: CategoryKeyword,
	types.BPCharOID:  CategoryKeyword,
	types.CharOID:    CategoryKeyword,
	types.NameOID:    CategoryKeyword,
	types.UUIDOID:    CategoryKeyword,

	types.Int2OID:    CategoryNumeric,
	types.Int4OID:    CategoryNumeric,
	types.Int8OID:    CategoryNumeric,
	types.OidOID:     CategoryNumeric,
	types.Float4OID:  CategoryNumeric,
	types.Float8OID:  CategoryNumeric,
	types.NumericOID: CategoryNumeric,

	types.BoolOID: CategoryBoolean,

	types.DateOID:        CategoryDateTime,
	types.TimeOID:        CategoryDateTime,
	types.TimestampOID:   CategoryDateTime,
	types.TimestampTZOID: CategoryDateTime,
	types.IntervalOID:    CategoryDateTime,

	types.JSONOID:  CategoryJSON,
	types.JSONBOID: CategoryJSON,
}

// CategoryOf maps a base (array-unwrapped) type to its category.
func CategoryOf(typ types.Oid) Category {
	if c, ok := categories[typ]; ok {
		return c
	}
	return CategoryUnknown
}

// IsSortableType is CategoryOf followed by IsSortable.
func IsSortableType(typ types.Oid) bool {
	return IsSortable(CategoryOf(typ))
}
