package catalog

import "github.com/nonibytes/scanhint/scanhint/types"

var builtins = []Type{
	{Oid: types.BoolOID, Name: "bool", Lt: types.BoolLtOID, Gt: types.BoolGtOID},
	{Oid: types.ByteaOID, Name: "bytea", Lt: types.ByteaLtOID, Gt: types.ByteaGtOID},
	{Oid: types.Int2OID, Name: "int2", Lt: types.Int2LtOID, Gt: types.Int2GtOID},
	{Oid: types.Int4OID, Name: "int4", Lt: types.Int4LtOID, Gt: types.Int4GtOID},
	{Oid: types.Int8OID, Name: "int8", Lt: types.Int8LtOID, Gt: types.Int8GtOID},
	{Oid: types.TextOID, Name: "text", Lt: types.TextLtOID, Gt: types.TextGtOID},
	{Oid: types.Float4OID, Name: "float4", Lt: types.Float4LtOID, Gt: types.Float4GtOID},
	{Oid: types.Float8OID, Name: "float8", Lt: types.Float8LtOID, Gt: types.Float8GtOID},
	{Oid: types.BPCharOID, Name: "bpchar", Lt: types.BPCharLtOID, Gt: types.BPCharGtOID},
	// varchar sorts with the text operators
	{Oid: types.VarcharOID, Name: "varchar", Lt: types.TextLtOID, Gt: types.TextGtOID},
	{Oid: types.DateOID, Name: "date", Lt: types.DateLtOID, Gt: types.DateGtOID},
	{Oid: types.TimestampOID, Name: "timestamp", Lt: types.TimestampLtOID, Gt: types.TimestampGtOID},
	{Oid: types.TimestampTZOID, Name: "timestamptz", Lt: types.TimestampTZLtOID, Gt: types.TimestampTZGtOID},
	{Oid: types.NumericOID, Name: "numeric", Lt: types.NumericLtOID, Gt: types.NumericGtOID},
	{Oid: types.UUIDOID, Name: "uuid", Lt: types.UUIDLtOID, Gt: types.UUIDGtOID},
	{Oid: types.JSONOID, Name: "json"},
	{Oid: types.JSONBOID, Name: "jsonb"},

	{Oid: types.BoolArrayOID, Name: "_bool", Elem: types.BoolOID},
	{Oid: types.ByteaArrayOID, Name: "_bytea", Elem: types.ByteaOID},
	{Oid: types.Int2ArrayOID, Name: "_int2", Elem: types.Int2OID},
	{Oid: types.Int4ArrayOID, Name: "_int4", Elem: types.Int4OID},
	{Oid: types.TextArrayOID, Name: "_text", Elem: types.TextOID},
	{Oid: types.BPCharArrayOID, Name: "_bpchar", Elem: types.BPCharOID},
	{Oid: types.VarcharArrayOID, Name: "_varchar", Elem: types.VarcharOID},
	{Oid: types.Int8ArrayOID, Name: "_int8", Elem: types.Int8OID},
	{Oid: types.Float4ArrayOID, Name: "_float4", Elem: types.Float4OID},
	{Oid: types.Float8ArrayOID, Name: "_float8", Elem: types.Float8OID},
	{Oid: types.TimestampArrayOID, Name: "_timestamp", Elem: types.TimestampOID},
	{Oid: types.DateArrayOID, Name: "_date", Elem: types.DateOID},
	{Oid: types.TimestampTZArrayOID, Name: "_timestamptz", Elem: types.TimestampTZOID},
	{Oid: types.NumericArrayOID, Name: "_numeric", Elem: types.NumericOID},
	{Oid: types.UUIDArrayOID, Name: "_uuid", Elem: types.UUIDOID},
	{Oid: types.JSONBArrayOID, Name: "_jsonb", Elem: types.JSONBOID},
}

// Builtins returns the built-in types every Static catalog starts with.
func Builtins() []Type {
	return append([]Type(nil), builtins...)
}
