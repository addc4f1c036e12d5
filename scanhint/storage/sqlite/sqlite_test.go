package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/plan"
	"github.com/nonibytes/scanhint/scanhint/types"
)

const (
	docsRel   types.Oid = 16384
	ltreeOid  types.Oid = 90001
	ltreeLt   types.Oid = 90002
	ltreeGt   types.Oid = 90003
	ltreeArr  types.Oid = 90004
	savedTime           = 1700000000
)

func docsSnapshot() catalog.Snapshot {
	return catalog.Snapshot{
		Relations: []catalog.Relation{{
			Oid:  docsRel,
			Name: "docs",
			Columns: []catalog.Column{
				{Name: "id", AttNum: 1, Type: types.Int8OID},
				{Name: "price", AttNum: 2, Type: types.Int4OID},
				{Name: "tags", AttNum: 3, Type: types.TextArrayOID},
				{Name: "path", AttNum: 4, Type: ltreeOid},
			},
		}},
		Types: []catalog.Type{
			{Oid: ltreeOid, Name: "ltree", Lt: ltreeLt, Gt: ltreeGt},
			{Oid: ltreeArr, Name: "_ltree", Elem: ltreeOid},
		},
	}
}

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(context.Background(), New(path))
	require.NoError(t, err)
	s.Now = func() time.Time { return time.Unix(savedTime, 0) }
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := openStore(t)

	require.NoError(t, s.Save(ctx, docsSnapshot()))
	require.NoError(t, s.SetMeta(ctx, MetaSource, "postgres://localhost/app"))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, docsSnapshot(), got)

	require.NoError(t, s.Close())
	reopened, err := Open(ctx, New(path))
	require.NoError(t, err)
	defer reopened.Close()

	got, err = reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, docsSnapshot(), got)

	src, err := reopened.Meta(ctx, MetaSource)
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/app", src)
	saved, err := reopened.Meta(ctx, MetaSavedAt)
	require.NoError(t, err)
	require.Equal(t, time.Unix(savedTime, 0).UTC().Format(time.RFC3339), saved)
}

func TestSaveReplacesColumns(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	require.NoError(t, s.Save(ctx, docsSnapshot()))

	snap := catalog.Snapshot{Relations: []catalog.Relation{{
		Oid:     docsRel,
		Name:    "documents",
		Columns: []catalog.Column{{Name: "id", AttNum: 1, Type: types.Int8OID}},
	}}}
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Relations, 1)
	require.Equal(t, "documents", got.Relations[0].Name)
	require.Len(t, got.Relations[0].Columns, 1)
	require.Len(t, got.Types, 2)
}

func TestSaveRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	bad := docsSnapshot()
	bad.Relations[0].Columns = append(bad.Relations[0].Columns,
		catalog.Column{Name: "id", AttNum: 9, Type: types.TextOID})
	err := s.Save(ctx, bad)
	require.Error(t, err)
	require.True(t, scanhint.IsKind(err, scanhint.ErrSQL))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, got.Relations)
	require.Empty(t, got.Types)
}

func TestOpenRejectsForeignDatabase(t *testing.T) {
	ctx := context.Background()
	s, path := openStore(t)
	require.NoError(t, s.SetMeta(ctx, metaMagic, "something-else"))
	require.NoError(t, s.Close())

	_, err := Open(ctx, New(path))
	require.Error(t, err)
	require.True(t, scanhint.IsKind(err, scanhint.ErrIO))
}

func TestCatalogLookups(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	require.NoError(t, s.Save(ctx, docsSnapshot()))
	c := s.Catalog()

	n, err := c.AttNum(ctx, docsRel, "price")
	require.NoError(t, err)
	require.Equal(t, types.AttrNumber(2), n)

	n, err = c.AttNum(ctx, docsRel, "missing")
	require.NoError(t, err)
	require.Equal(t, types.InvalidAttrNumber, n)

	typ, err := c.AttType(ctx, docsRel, 3)
	require.NoError(t, err)
	require.Equal(t, types.TextArrayOID, typ)

	typ, err = c.AttType(ctx, docsRel, 42)
	require.NoError(t, err)
	require.Equal(t, types.InvalidOid, typ)

	// stored user types
	elem, err := c.ElementType(ctx, ltreeArr)
	require.NoError(t, err)
	require.Equal(t, ltreeOid, elem)
	ops, err := c.Operators(ctx, ltreeOid)
	require.NoError(t, err)
	require.Equal(t, catalog.Operators{Lt: ltreeLt, Gt: ltreeGt}, ops)

	// builtin fallback
	elem, err = c.ElementType(ctx, types.TextArrayOID)
	require.NoError(t, err)
	require.Equal(t, types.TextOID, elem)
	ops, err = c.Operators(ctx, types.Int4OID)
	require.NoError(t, err)
	require.Equal(t, catalog.Operators{Lt: types.Int4LtOID, Gt: types.Int4GtOID}, ops)

	oid, err := c.RelationOid(ctx, "docs")
	require.NoError(t, err)
	require.Equal(t, docsRel, oid)
	oid, err = c.RelationOid(ctx, "nope")
	require.NoError(t, err)
	require.Equal(t, types.InvalidOid, oid)
}

func TestPushdownOverStoredCatalog(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	require.NoError(t, s.Save(ctx, docsSnapshot()))

	id := plan.NewScanID()
	scan := &plan.IndexScan{ScanRelID: 1, Scan: id, Plan: plan.Plan{TargetList: []*plan.TargetEntry{
		{Resno: 1, Expr: &plan.Var{VarNo: 1, VarAttNo: 4, Type: ltreeOid}},
	}}}
	sort := &plan.Sort{
		Plan: plan.Plan{Left: scan, TargetList: []*plan.TargetEntry{
			{Resno: 1, Expr: &plan.Var{VarNo: types.OuterVar, VarAttNo: 1, Type: ltreeOid}},
		}},
		SortColIdx:    []types.AttrNumber{1},
		SortOperators: []types.Oid{ltreeLt},
	}
	stmt := &plan.Statement{
		Root: &plan.Limit{Plan: plan.Plan{Left: sort}, Count: &plan.Const{Type: types.Int8OID, Value: "25"}},
		RangeTable: []plan.RangeTblEntry{{
			RelID: docsRel, Alias: "docs", ColNames: []string{"id", "price", "tags", "path"},
		}},
	}

	a := scanhint.NewAnalyzer(scanhint.Options{Catalog: s.Catalog()})
	d, err := a.FindPushdown(ctx, id, stmt, docsRel)
	require.NoError(t, err)
	require.Equal(t, "limit=25 sort=path asc", d.String())
}

func TestAdapterDSN(t *testing.T) {
	require.Equal(t, "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", New("x.db").dsnParams())
	require.Equal(t, "_busy_timeout=5000&_foreign_keys=on", NewWithDriver("x.db", DriverMattn).dsnParams())
	require.Equal(t, "x.db", New("x.db").Source())
}
