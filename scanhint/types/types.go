package types

import "strconv"

// Oid is a host object identifier (relation, type, operator).
type Oid uint32

// InvalidOid is the zero object identifier.
const InvalidOid Oid = 0

func (o Oid) IsValid() bool { return o != InvalidOid }

func (o Oid) String() string { return strconv.FormatUint(uint64(o), 10) }

// ParseOid parses a decimal object identifier.
func ParseOid(s string) (Oid, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return InvalidOid, err
	}
	return Oid(v), nil
}

// AttrNumber is a 1-based column position within a relation or target list.
type AttrNumber int16

// InvalidAttrNumber is returned when a column cannot be resolved.
const InvalidAttrNumber AttrNumber = 0

// Index is a 1-based position in a statement's range table.
type Index uint32

// Special varno values used by upper plan nodes to reference their children's
// target lists instead of a range table entry.
const (
	InnerVar Index = 65000
	OuterVar Index = 65001
	IndexVar Index = 65002
)

// Built-in type oids.
const (
	BoolOID        Oid = 16
	ByteaOID       Oid = 17
	CharOID        Oid = 18
	NameOID        Oid = 19
	Int8OID        Oid = 20
	Int2OID        Oid = 21
	Int4OID        Oid = 23
	TextOID        Oid = 25
	OidOID         Oid = 26
	JSONOID        Oid = 114
	Float4OID      Oid = 700
	Float8OID      Oid = 701
	BPCharOID      Oid = 1042
	VarcharOID     Oid = 1043
	DateOID        Oid = 1082
	TimeOID        Oid = 1083
	TimestampOID   Oid = 1114
	TimestampTZOID Oid = 1184
	IntervalOID    Oid = 1186
	NumericOID     Oid = 1700
	UUIDOID        Oid = 2950
	TSVectorOID    Oid = 3614
	JSONBOID       Oid = 3802

	BoolArrayOID        Oid = 1000
	ByteaArrayOID       Oid = 1001
	Int2ArrayOID        Oid = 1005
	Int4ArrayOID        Oid = 1007
	TextArrayOID        Oid = 1009
	BPCharArrayOID      Oid = 1014
	VarcharArrayOID     Oid = 1015
	Int8ArrayOID        Oid = 1016
	Float4ArrayOID      Oid = 1021
	Float8ArrayOID      Oid = 1022
	TimestampArrayOID   Oid = 1115
	DateArrayOID        Oid = 1182
	TimestampTZArrayOID Oid = 1185
	NumericArrayOID     Oid = 1231
	UUIDArrayOID        Oid = 2951
	JSONBArrayOID       Oid = 3807
)

// Built-in btree comparison operator oids.
const (
	BoolLtOID        Oid = 58
	BoolGtOID        Oid = 59
	Int2LtOID        Oid = 95
	Int4LtOID        Oid = 97
	Int8LtOID        Oid = 412
	Int8GtOID        Oid = 413
	Int2GtOID        Oid = 520
	Int4GtOID        Oid = 521
	Float4LtOID      Oid = 622
	Float4GtOID      Oid = 623
	TextLtOID        Oid = 664
	TextGtOID        Oid = 666
	Float8LtOID      Oid = 672
	Float8GtOID      Oid = 674
	BPCharLtOID      Oid = 1058
	BPCharGtOID      Oid = 1060
	DateLtOID        Oid = 1095
	DateGtOID        Oid = 1097
	TimestampTZLtOID Oid = 1322
	TimestampTZGtOID Oid = 1324
	NumericLtOID     Oid = 1754
	NumericGtOID     Oid = 1756
	ByteaLtOID       Oid = 1957
	ByteaGtOID       Oid = 1959
	TimestampLtOID   Oid = 2062
	TimestampGtOID   Oid = 2064
	UUIDLtOID        Oid = 2974
	UUIDGtOID        Oid = 2975
)

var typeNames = map[Oid]string{
	BoolOID:        "bool",
	ByteaOID:       "bytea",
	CharOID:        "char",
	NameOID:        "name",
	Int8OID:        "int8",
	Int2OID:        "int2",
	Int4OID:        "int4",
	TextOID:        "text",
	OidOID:         "oid",
	JSONOID:        "json",
	Float4OID:      "float4",
	Float8OID:      "float8",
	BPCharOID:      "bpchar",
	VarcharOID:     "varchar",
	DateOID:        "date",
	TimeOID:        "time",
	TimestampOID:   "timestamp",
	TimestampTZOID: "timestamptz",
	IntervalOID:    "interval",
	NumericOID:     "numeric",
	UUIDOID:        "uuid",
	TSVectorOID:    "tsvector",
	JSONBOID:       "jsonb",

	BoolArrayOID:        "_bool",
	ByteaArrayOID:       "_bytea",
	Int2ArrayOID:        "_int2",
	Int4ArrayOID:        "_int4",
	TextArrayOID:        "_text",
	BPCharArrayOID:      "_bpchar",
	VarcharArrayOID:     "_varchar",
	Int8ArrayOID:        "_int8",
	Float4ArrayOID:      "_float4",
	Float8ArrayOID:      "_float8",
	TimestampArrayOID:   "_timestamp",
	DateArrayOID:        "_date",
	TimestampTZArrayOID: "_timestamptz",
	NumericArrayOID:     "_numeric",
	UUIDArrayOID:        "_uuid",
	JSONBArrayOID:       "_jsonb",
}

var typeAliases = map[string]Oid{
	"boolean":                     BoolOID,
	"smallint":                    Int2OID,
	"integer":                     Int4OID,
	"int":                         Int4OID,
	"bigint":                      Int8OID,
	"real":                        Float4OID,
	"double precision":            Float8OID,
	"character varying":           VarcharOID,
	"character":                   BPCharOID,
	"timestamp with time zone":    TimestampTZOID,
	"timestamp without time zone": TimestampOID,
	"text[]":                      TextArrayOID,
	"integer[]":                   Int4ArrayOID,
	"bigint[]":                    Int8ArrayOID,
	"varchar[]":                   VarcharArrayOID,
	"bytea[]":                     ByteaArrayOID,
}

// TypeName returns the built-in name of typ, or its numeric form.
func TypeName(typ Oid) string {
	if n, ok := typeNames[typ]; ok {
		return n
	}
	return typ.String()
}

// TypeByName resolves a built-in type name, SQL alias or numeric oid.
func TypeByName(name string) (Oid, bool) {
	if o, ok := typeAliases[name]; ok {
		return o, true
	}
	for o, n := range typeNames {
		if n == name {
			return o, true
		}
	}
	if v, err := strconv.ParseUint(name, 10, 32); err == nil {
		return Oid(v), true
	}
	return InvalidOid, false
}
