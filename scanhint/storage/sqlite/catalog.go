package sqlite

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/types"
)

// Catalog answers lookups from a stored snapshot. Types missing from the
// snapshot fall back to the built-in type table.
type Catalog struct {
	db       *sql.DB
	builtins *catalog.Static
}

var _ catalog.Catalog = (*Catalog)(nil)

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db, builtins: catalog.NewStatic()}
}

func (c *Catalog) AttNum(ctx context.Context, rel types.Oid, name string) (types.AttrNumber, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, sqlAttNum, int64(rel), name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return types.InvalidAttrNumber, nil
	}
	if err != nil {
		return types.InvalidAttrNumber, scanhint.Wrap(scanhint.ErrSQL, "lookup attnum", err)
	}
	return types.AttrNumber(n), nil
}

func (c *Catalog) AttType(ctx context.Context, rel types.Oid, attno types.AttrNumber) (types.Oid, error) {
	var typ int64
	err := c.db.QueryRowContext(ctx, sqlAttType, int64(rel), int64(attno)).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return types.InvalidOid, nil
	}
	if err != nil {
		return types.InvalidOid, scanhint.Wrap(scanhint.ErrSQL, "lookup column type", err)
	}
	return types.Oid(typ), nil
}

func (c *Catalog) ElementType(ctx context.Context, typ types.Oid) (types.Oid, error) {
	var elem int64
	err := c.db.QueryRowContext(ctx, sqlElementType, int64(typ)).Scan(&elem)
	if errors.Is(err, sql.ErrNoRows) {
		return c.builtins.ElementType(ctx, typ)
	}
	if err != nil {
		return types.InvalidOid, scanhint.Wrap(scanhint.ErrSQL, "lookup element type", err)
	}
	return types.Oid(elem), nil
}

func (c *Catalog) Operators(ctx context.Context, typ types.Oid) (catalog.Operators, error) {
	var lt, gt int64
	err := c.db.QueryRowContext(ctx, sqlOperators, int64(typ)).Scan(&lt, &gt)
	if errors.Is(err, sql.ErrNoRows) {
		return c.builtins.Operators(ctx, typ)
	}
	if err != nil {
		return catalog.Operators{}, scanhint.Wrap(scanhint.ErrSQL, "lookup ordering operators", err)
	}
	return catalog.Operators{Lt: types.Oid(lt), Gt: types.Oid(gt)}, nil
}

// RelationOid finds a stored relation by name, or InvalidOid.
func (c *Catalog) RelationOid(ctx context.Context, name string) (types.Oid, error) {
	var oid int64
	err := c.db.QueryRowContext(ctx, sqlRelationOid, name).Scan(&oid)
	if errors.Is(err, sql.ErrNoRows) {
		return types.InvalidOid, nil
	}
	if err != nil {
		return types.InvalidOid, scanhint.Wrap(scanhint.ErrSQL, "resolve relation "+name, err)
	}
	return types.Oid(oid), nil
}
