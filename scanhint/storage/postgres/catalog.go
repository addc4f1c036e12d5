package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/storage/sqlbuilder"
	"github.com/nonibytes/scanhint/scanhint/types"
)

// Catalog reads metadata from a live database's pg_catalog.
type Catalog struct {
	db *sql.DB
}

var _ catalog.Catalog = (*Catalog)(nil)

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) AttNum(ctx context.Context, rel types.Oid, name string) (types.AttrNumber, error) {
	var n int32
	err := c.db.QueryRowContext(ctx, sqlAttNum, uint32(rel), name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return types.InvalidAttrNumber, nil
	}
	if err != nil {
		return types.InvalidAttrNumber, scanhint.Wrap(scanhint.ErrSQL, "lookup attnum", err)
	}
	return types.AttrNumber(n), nil
}

func (c *Catalog) AttType(ctx context.Context, rel types.Oid, attno types.AttrNumber) (types.Oid, error) {
	return c.oidRow(ctx, "lookup atttypid", sqlAttType, uint32(rel), int16(attno))
}

func (c *Catalog) ElementType(ctx context.Context, typ types.Oid) (types.Oid, error) {
	return c.oidRow(ctx, "lookup typelem", sqlElementType, uint32(typ))
}

func (c *Catalog) Operators(ctx context.Context, typ types.Oid) (catalog.Operators, error) {
	var lt, gt int64
	if err := c.db.QueryRowContext(ctx, sqlOperators, uint32(typ)).Scan(&lt, &gt); err != nil {
		return catalog.Operators{}, scanhint.Wrap(scanhint.ErrSQL, "lookup ordering operators", err)
	}
	return catalog.Operators{Lt: types.Oid(lt), Gt: types.Oid(gt)}, nil
}

// RelationOid resolves a possibly schema-qualified relation name, returning
// InvalidOid when it does not exist.
func (c *Catalog) RelationOid(ctx context.Context, name string) (types.Oid, error) {
	var v sql.NullInt64
	if err := c.db.QueryRowContext(ctx, sqlRelationOid, name).Scan(&v); err != nil {
		return types.InvalidOid, scanhint.Wrap(scanhint.ErrSQL, "resolve relation "+name, err)
	}
	if !v.Valid {
		return types.InvalidOid, nil
	}
	return types.Oid(v.Int64), nil
}

func (c *Catalog) oidRow(ctx context.Context, what, query string, args ...any) (types.Oid, error) {
	var v int64
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return types.InvalidOid, nil
	}
	if err != nil {
		return types.InvalidOid, scanhint.Wrap(scanhint.ErrSQL, what, err)
	}
	return types.Oid(v), nil
}

// Snapshot exports the given relations with their live columns, and every
// type those columns use along with array element types and ordering
// operators.
func (c *Catalog) Snapshot(ctx context.Context, rels ...types.Oid) (catalog.Snapshot, error) {
	var snap catalog.Snapshot
	if len(rels) == 0 {
		return snap, nil
	}

	byOid := map[types.Oid]*catalog.Relation{}
	b := sqlbuilder.New(sqlbuilder.PlaceholderDollar)
	q := sqlRelationsIn + sqlbuilder.In(b, oids(rels)) + " ORDER BY oid"
	rows, err := c.db.QueryContext(ctx, q, b.Args()...)
	if err != nil {
		return snap, scanhint.Wrap(scanhint.ErrSQL, "list relations", err)
	}
	for rows.Next() {
		var oid int64
		var name string
		if err := rows.Scan(&oid, &name); err != nil {
			_ = rows.Close()
			return snap, scanhint.Wrap(scanhint.ErrSQL, "scan relation", err)
		}
		snap.Relations = append(snap.Relations, catalog.Relation{Oid: types.Oid(oid), Name: name})
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}
	if len(snap.Relations) != len(rels) {
		return snap, scanhint.New(scanhint.ErrCatalog,
			fmt.Sprintf("found %d of %d requested relations", len(snap.Relations), len(rels)))
	}
	for i := range snap.Relations {
		byOid[snap.Relations[i].Oid] = &snap.Relations[i]
	}

	typeSet := map[types.Oid]bool{}
	b = sqlbuilder.New(sqlbuilder.PlaceholderDollar)
	q = sqlColumnsIn + sqlbuilder.In(b, oids(rels)) + " ORDER BY attrelid, attnum"
	rows, err = c.db.QueryContext(ctx, q, b.Args()...)
	if err != nil {
		return snap, scanhint.Wrap(scanhint.ErrSQL, "list columns", err)
	}
	for rows.Next() {
		var rel, typ int64
		var name string
		var attnum int32
		if err := rows.Scan(&rel, &name, &attnum, &typ); err != nil {
			_ = rows.Close()
			return snap, scanhint.Wrap(scanhint.ErrSQL, "scan column", err)
		}
		r := byOid[types.Oid(rel)]
		r.Columns = append(r.Columns, catalog.Column{Name: name, AttNum: types.AttrNumber(attnum), Type: types.Oid(typ)})
		typeSet[types.Oid(typ)] = true
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	typs, err := c.listTypes(ctx, typeSet)
	if err != nil {
		return snap, err
	}
	// pull in element types of the arrays we found
	elems := map[types.Oid]bool{}
	for _, t := range typs {
		if t.Elem.IsValid() && !typeSet[t.Elem] {
			elems[t.Elem] = true
		}
	}
	more, err := c.listTypes(ctx, elems)
	if err != nil {
		return snap, err
	}
	typs = append(typs, more...)

	for i := range typs {
		ops, err := c.Operators(ctx, typs[i].Oid)
		if err != nil {
			return snap, err
		}
		typs[i].Lt, typs[i].Gt = ops.Lt, ops.Gt
	}
	sort.Slice(typs, func(i, j int) bool { return typs[i].Oid < typs[j].Oid })
	snap.Types = typs
	return snap, nil
}

func (c *Catalog) listTypes(ctx context.Context, set map[types.Oid]bool) ([]catalog.Type, error) {
	if len(set) == 0 {
		return nil, nil
	}
	list := make([]uint32, 0, len(set))
	for o := range set {
		list = append(list, uint32(o))
	}
	b := sqlbuilder.New(sqlbuilder.PlaceholderDollar)
	rows, err := c.db.QueryContext(ctx, sqlTypesIn+sqlbuilder.In(b, list), b.Args()...)
	if err != nil {
		return nil, scanhint.Wrap(scanhint.ErrSQL, "list types", err)
	}
	var out []catalog.Type
	for rows.Next() {
		var oid, elem int64
		var name string
		if err := rows.Scan(&oid, &name, &elem); err != nil {
			_ = rows.Close()
			return nil, scanhint.Wrap(scanhint.ErrSQL, "scan type", err)
		}
		out = append(out, catalog.Type{Oid: types.Oid(oid), Name: name, Elem: types.Oid(elem)})
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	return out, nil
}

func oids(in []types.Oid) []uint32 {
	out := make([]uint32, len(in))
	for i, o := range in {
		out[i] = uint32(o)
	}
	return out
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return scanhint.Wrap(scanhint.ErrSQL, "iterate rows", err)
	}
	return rows.Close()
}
