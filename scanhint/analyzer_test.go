package scanhint

import (
	"context"
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/deparse"
	"github.com/nonibytes/scanhint/scanhint/plan"
	"github.com/nonibytes/scanhint/scanhint/types"
)

const docsRel types.Oid = 16384

var docsColumns = []catalog.Column{
	{Name: "id", Type: types.Int8OID},
	{Name: "description", Type: types.TextOID},
	{Name: "price", Type: types.Int4OID},
	{Name: "tags", Type: types.TextArrayOID},
	{Name: "scores", Type: types.Int4ArrayOID},
	{Name: "blob", Type: types.ByteaOID},
	{Name: "title", Type: types.VarcharOID},
	{Name: "Price", Type: types.NumericOID},
	{Name: "meta", Type: types.JSONBOID},
}

func docsCatalog() *catalog.Static {
	c := catalog.NewStatic()
	c.AddRelation(docsRel, "docs", docsColumns...)
	return c
}

func docsRangeTable() []plan.RangeTblEntry {
	names := make([]string, len(docsColumns))
	for i, c := range docsColumns {
		names[i] = c.Name
	}
	return []plan.RangeTblEntry{{RelID: docsRel, Alias: "docs", ColNames: names}}
}

func attno(name string) types.AttrNumber {
	for i, c := range docsColumns {
		if c.Name == name {
			return types.AttrNumber(i + 1)
		}
	}
	panic("no column " + name)
}

func newScan(id ScanID) *plan.IndexScan {
	s := &plan.IndexScan{ScanRelID: 1, IndexRelID: 16390, Scan: id}
	for i, c := range docsColumns {
		s.TargetList = append(s.TargetList, &plan.TargetEntry{
			Resno:   types.AttrNumber(i + 1),
			Expr:    &plan.Var{VarNo: 1, VarAttNo: types.AttrNumber(i + 1), Type: c.Type},
			ResName: c.Name,
		})
	}
	return s
}

// sortOn sorts child by one of its output columns, referenced the way the
// host does: an outer var pointing into the child's target list.
func sortOn(child plan.Node, col string, op types.Oid) *plan.Sort {
	n := attno(col)
	return &plan.Sort{
		Plan: plan.Plan{
			Left: child,
			TargetList: []*plan.TargetEntry{{
				Resno:   1,
				Expr:    &plan.Var{VarNo: types.OuterVar, VarAttNo: n, Type: docsColumns[n-1].Type},
				ResName: col,
			}},
		},
		SortColIdx:    []types.AttrNumber{1},
		SortOperators: []types.Oid{op},
		NullsFirst:    []bool{false},
	}
}

func count(n int64) *plan.Const {
	return &plan.Const{Type: types.Int8OID, Value: strconv.FormatInt(n, 10)}
}

func limitOf(child plan.Node, n int64) *plan.Limit {
	return &plan.Limit{Plan: plan.Plan{Left: child}, Count: count(n)}
}

func stmtOf(root plan.Node) *plan.Statement {
	return &plan.Statement{Root: root, RangeTable: docsRangeTable()}
}

func newAnalyzer(c catalog.Catalog) *Analyzer {
	return NewAnalyzer(Options{Catalog: c})
}

func find(t *testing.T, root plan.Node, id ScanID) *Directive {
	t.Helper()
	d, err := newAnalyzer(docsCatalog()).FindPushdown(context.Background(), id, stmtOf(root), docsRel)
	require.NoError(t, err)
	return d
}

func requireLimit(t *testing.T, d *Directive, want uint64) {
	t.Helper()
	require.NotNil(t, d)
	require.NotNil(t, d.RowLimit)
	require.Equal(t, want, *d.RowLimit)
}

func requireSort(t *testing.T, d *Directive, field string, dir SortDirection) {
	t.Helper()
	require.NotNil(t, d)
	require.NotNil(t, d.SortField)
	require.Equal(t, field, *d.SortField)
	require.Equal(t, dir, d.Direction)
	require.False(t, d.ScoreSort)
}

func TestNoLimitOrSortAboveScan(t *testing.T) {
	id := NewScanID()
	other := NewScanID()

	for name, root := range map[string]plan.Node{
		"bare scan":         newScan(id),
		"result":            &plan.Result{Plan: plan.Plan{Left: newScan(id)}},
		"limit elsewhere":   &plan.Append{Plans: []plan.Node{newScan(id), limitOf(&plan.SeqScan{ScanRelID: 1}, 10)}},
		"sort other scan":   &plan.Append{Plans: []plan.Node{newScan(id), sortOn(newScan(other), "price", types.Int4GtOID)}},
		"limit over join":   limitOf(&plan.Join{Strategy: plan.NestLoop, Plan: plan.Plan{Left: newScan(id), Right: &plan.SeqScan{}}}, 3),
		"limit over append": limitOf(&plan.Append{Plans: []plan.Node{newScan(id)}}, 3),
	} {
		t.Run(name, func(t *testing.T) {
			require.Nil(t, find(t, root, id))
		})
	}
}

func TestLimitDirectlyAboveScan(t *testing.T) {
	id := NewScanID()
	d := find(t, limitOf(newScan(id), 10), id)
	requireLimit(t, d, 10)
	require.Nil(t, d.SortField)
	require.False(t, d.Sorted())
}

func TestLimitThroughSort(t *testing.T) {
	id := NewScanID()
	d := find(t, limitOf(sortOn(newScan(id), "price", types.Int4LtOID), 25), id)
	requireLimit(t, d, 25)
	requireSort(t, d, "price", SortAsc)
}

func TestLimitThroughResultWrappedSort(t *testing.T) {
	id := NewScanID()
	root := limitOf(&plan.Result{Plan: plan.Plan{Left: sortOn(newScan(id), "price", types.Int4GtOID)}}, 7)
	d := find(t, root, id)
	requireLimit(t, d, 7)
	requireSort(t, d, "price", SortDesc)
}

func TestLimitThroughSortOverResult(t *testing.T) {
	id := NewScanID()
	// the sort does not sit directly on the scan, so only the limit binds
	root := limitOf(sortOn(&plan.Result{Plan: plan.Plan{Left: newScan(id)}}, "price", types.Int4GtOID), 4)
	d := find(t, root, id)
	requireLimit(t, d, 4)
	require.False(t, d.Sorted())
}

func TestLimitBelowResultDoesNotBindThroughOtherNodes(t *testing.T) {
	id := NewScanID()
	root := limitOf(&plan.Result{Plan: plan.Plan{Left: &plan.Generic{Name: "Material", Plan: plan.Plan{Left: newScan(id)}}}}, 4)
	require.Nil(t, find(t, root, id))

	root = limitOf(sortOn(&plan.Generic{Name: "Material", Plan: plan.Plan{Left: newScan(id)}}, "price", types.Int4GtOID), 4)
	require.Nil(t, find(t, root, id))
}

func TestLimitWithOffsetNeverBinds(t *testing.T) {
	id := NewScanID()

	withOffset := func(child plan.Node) *plan.Limit {
		l := limitOf(child, 5)
		l.Offset = count(3)
		return l
	}

	require.Nil(t, find(t, withOffset(newScan(id)), id))

	d := find(t, withOffset(sortOn(newScan(id), "price", types.Int4GtOID)), id)
	require.NotNil(t, d)
	require.Nil(t, d.RowLimit)
	requireSort(t, d, "price", SortDesc)

	// a null offset expression is still an offset
	l := limitOf(newScan(id), 5)
	l.Offset = &plan.Const{Type: types.Int8OID, IsNull: true}
	require.Nil(t, find(t, l, id))
}

func TestLimitCountMustBeLiteral(t *testing.T) {
	id := NewScanID()
	for name, cnt := range map[string]plan.Expr{
		"param":    &plan.Param{ID: 1, Type: types.Int8OID},
		"function": &plan.FuncExpr{Name: "random_limit", ResultType: types.Int8OID},
		"null":     &plan.Const{Type: types.Int8OID, IsNull: true},
		"negative": count(-1),
		"absent":   nil,
	} {
		t.Run(name, func(t *testing.T) {
			l := &plan.Limit{Plan: plan.Plan{Left: newScan(id)}, Count: cnt}
			require.Nil(t, find(t, l, id))
		})
	}
}

func TestLimitZero(t *testing.T) {
	id := NewScanID()
	requireLimit(t, find(t, limitOf(newScan(id), 0), id), 0)
}

func TestNearestLimitWins(t *testing.T) {
	id := NewScanID()
	// the outer limit does not bind; the inner one does
	d := find(t, limitOf(limitOf(newScan(id), 10), 100), id)
	requireLimit(t, d, 10)
}

func TestUnsortableTypeDropsSortKeepsLimit(t *testing.T) {
	id := NewScanID()
	for _, col := range []string{"description", "tags", "blob"} {
		t.Run(col, func(t *testing.T) {
			d := find(t, limitOf(sortOn(newScan(id), col, types.TextGtOID), 10), id)
			requireLimit(t, d, 10)
			require.Nil(t, d.SortField)
			require.False(t, d.ScoreSort)
		})
	}
}

func TestUnsortableTypeWithoutLimitIsNoDirective(t *testing.T) {
	id := NewScanID()
	require.Nil(t, find(t, sortOn(newScan(id), "description", types.TextLtOID), id))
}

func TestSortableTypes(t *testing.T) {
	id := NewScanID()
	for col, op := range map[string]types.Oid{
		"id":     types.Int8GtOID,
		"title":  types.TextGtOID,
		"scores": 0,
		"meta":   0,
	} {
		t.Run(col, func(t *testing.T) {
			d := find(t, sortOn(newScan(id), col, op), id)
			require.NotNil(t, d)
			require.Nil(t, d.RowLimit)
			require.NotNil(t, d.SortField)
			require.Equal(t, col, *d.SortField)
		})
	}
}

func TestMixedCaseColumn(t *testing.T) {
	id := NewScanID()
	d := find(t, sortOn(newScan(id), "Price", types.NumericGtOID), id)
	requireSort(t, d, "Price", SortDesc)
}

func TestDirectionFollowsGreaterThanOperator(t *testing.T) {
	id := NewScanID()
	cases := []struct {
		col  string
		op   types.Oid
		want SortDirection
	}{
		{"price", types.Int4GtOID, SortDesc},
		{"price", types.Int4LtOID, SortAsc},
		{"price", types.Int8GtOID, SortAsc},
		{"price", 99999, SortAsc},
		{"id", types.Int8GtOID, SortDesc},
		{"title", types.TextGtOID, SortDesc},
		// no ordering operators known for jsonb
		{"meta", 0, SortAsc},
	}
	for _, tc := range cases {
		d := find(t, sortOn(newScan(id), tc.col, tc.op), id)
		require.NotNil(t, d, "%s/%d", tc.col, tc.op)
		require.Equal(t, tc.want, d.Direction, "%s/%d", tc.col, tc.op)
	}
}

func scoreSort(child *plan.IndexScan, op types.Oid) *plan.Sort {
	child.TargetList = append(child.TargetList, &plan.TargetEntry{
		Resno: types.AttrNumber(len(child.TargetList) + 1),
		Expr: &plan.FuncExpr{
			Name:       ScoreColumn,
			ResultType: types.Float4OID,
			Args: []plan.Expr{
				&plan.Const{Type: types.OidOID, Value: strconv.Itoa(int(docsRel))},
				&plan.Var{VarNo: 1, VarAttNo: 0},
			},
		},
		ResName: ScoreColumn,
	})
	return &plan.Sort{
		Plan: plan.Plan{
			Left: child,
			TargetList: []*plan.TargetEntry{{
				Resno: 1,
				Expr:  &plan.Var{VarNo: types.OuterVar, VarAttNo: types.AttrNumber(len(child.TargetList)), Type: types.Float4OID},
			}},
		},
		SortColIdx:    []types.AttrNumber{1},
		SortOperators: []types.Oid{op},
	}
}

func TestScoreSortSkipsPolicy(t *testing.T) {
	id := NewScanID()
	rec := &recordingCatalog{Catalog: docsCatalog()}
	a := newAnalyzer(rec)

	d, err := a.FindPushdown(context.Background(), id, stmtOf(limitOf(scoreSort(newScan(id), types.Float4GtOID), 50)), docsRel)
	require.NoError(t, err)
	requireLimit(t, d, 50)
	require.True(t, d.ScoreSort)
	require.True(t, d.Sorted())
	require.Nil(t, d.SortField)
	require.Equal(t, SortDesc, d.Direction)
	require.Zero(t, rec.attLookups)

	d, err = a.FindPushdown(context.Background(), id, stmtOf(scoreSort(newScan(id), types.Float4LtOID)), docsRel)
	require.NoError(t, err)
	require.True(t, d.ScoreSort)
	require.Equal(t, SortAsc, d.Direction)
}

func TestOnlyFirstSortKeyUsed(t *testing.T) {
	id := NewScanID()
	s := sortOn(newScan(id), "price", types.Int4GtOID)
	s.TargetList = append(s.TargetList, &plan.TargetEntry{
		Resno: 2,
		Expr:  &plan.Var{VarNo: types.OuterVar, VarAttNo: attno("description"), Type: types.TextOID},
	})
	s.SortColIdx = append(s.SortColIdx, 2)
	s.SortOperators = append(s.SortOperators, types.TextLtOID)

	requireSort(t, find(t, s, id), "price", SortDesc)

	// secondary key first: unsortable, and the second key is not consulted
	s.SortColIdx[0], s.SortColIdx[1] = 2, 1
	s.SortOperators[0], s.SortOperators[1] = types.TextLtOID, types.Int4GtOID
	require.Nil(t, find(t, s, id))
}

func TestMalformedSortIsSoftMiss(t *testing.T) {
	id := NewScanID()

	noKeys := sortOn(newScan(id), "price", types.Int4GtOID)
	noKeys.SortColIdx, noKeys.SortOperators = nil, nil
	d := find(t, limitOf(noKeys, 9), id)
	requireLimit(t, d, 9)
	require.False(t, d.Sorted())

	noEntry := sortOn(newScan(id), "price", types.Int4GtOID)
	noEntry.SortColIdx = []types.AttrNumber{42}
	d = find(t, limitOf(noEntry, 9), id)
	requireLimit(t, d, 9)
	require.False(t, d.Sorted())
}

func TestSortKeyNotAColumn(t *testing.T) {
	id := NewScanID()
	s := sortOn(newScan(id), "title", types.TextLtOID)
	s.TargetList[0].Expr = &plan.FuncExpr{
		Name:       "lower",
		ResultType: types.TextOID,
		Args:       []plan.Expr{&plan.Var{VarNo: types.OuterVar, VarAttNo: attno("title"), Type: types.VarcharOID}},
	}
	d := find(t, limitOf(s, 3), id)
	requireLimit(t, d, 3)
	require.False(t, d.Sorted())
}

func TestTraversalFollowsEveryLinkKind(t *testing.T) {
	id := NewScanID()
	bound := func() plan.Node { return limitOf(newScan(id), 11) }

	for name, root := range map[string]plan.Node{
		"init plan":     &plan.Result{Plan: plan.Plan{InitPlans: []plan.Node{bound()}}},
		"sub plan":      &plan.Result{Plan: plan.Plan{Left: &plan.SeqScan{}, SubPlans: []plan.Node{bound()}}},
		"join right":    &plan.Join{Strategy: plan.HashJoin, Plan: plan.Plan{Left: &plan.SeqScan{}, Right: &plan.Generic{Name: "Hash", Plan: plan.Plan{Left: bound()}}}},
		"append member": &plan.Append{Merge: true, Plans: []plan.Node{&plan.SeqScan{}, bound()}},
		"bitmap member": &plan.BitmapHeapScan{Plan: plan.Plan{Left: &plan.BitmapOp{Or: true, Plans: []plan.Node{&plan.BitmapIndexScan{}, bound()}}}},
		"subquery":      &plan.SubqueryScan{Subplan: bound()},
		"custom child":  &plan.CustomScan{Name: "zdb", CustomPlans: []plan.Node{bound()}},
	} {
		t.Run(name, func(t *testing.T) {
			requireLimit(t, find(t, root, id), 11)
		})
	}
}

func TestIndependentScans(t *testing.T) {
	s1, s2 := NewScanID(), NewScanID()
	root := &plan.Join{
		Strategy: plan.MergeJoin,
		Plan: plan.Plan{
			Left:  limitOf(newScan(s1), 10),
			Right: sortOn(newScan(s2), "price", types.Int4GtOID),
		},
	}

	d1 := find(t, root, s1)
	requireLimit(t, d1, 10)
	require.False(t, d1.Sorted())

	d2 := find(t, root, s2)
	require.Nil(t, d2.RowLimit)
	requireSort(t, d2, "price", SortDesc)
}

func TestScanNotInPlan(t *testing.T) {
	require.Nil(t, find(t, limitOf(newScan(NewScanID()), 1), NewScanID()))
}

func TestInvariantViolations(t *testing.T) {
	ctx := context.Background()
	a := newAnalyzer(docsCatalog())
	id := NewScanID()

	dup := newScan(id)
	wrongRTE := newScan(id)
	wrongRTE.ScanRelID = 5

	cases := map[string]struct {
		scan ScanID
		stmt *plan.Statement
		rel  types.Oid
	}{
		"nil statement":    {id, nil, docsRel},
		"nil root":         {id, &plan.Statement{}, docsRel},
		"zero scan id":     {ScanID{}, stmtOf(newScan(id)), docsRel},
		"scan twice":       {id, stmtOf(&plan.Append{Plans: []plan.Node{limitOf(dup, 1), sortOn(dup, "id", 0)}}), docsRel},
		"other relation":   {id, stmtOf(limitOf(newScan(id), 1)), docsRel + 1},
		"bad range entry":  {id, stmtOf(limitOf(wrongRTE, 1)), docsRel},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := a.FindPushdown(ctx, tc.scan, tc.stmt, tc.rel)
			require.Nil(t, d)
			require.Error(t, err)
			require.True(t, errors.IsAssertionFailure(err), "%v", err)
		})
	}
}

func TestCatalogFailureAborts(t *testing.T) {
	id := NewScanID()
	boom := errors.New("catalog offline")
	a := newAnalyzer(&recordingCatalog{Catalog: docsCatalog(), fail: boom})

	d, err := a.FindPushdown(context.Background(), id, stmtOf(limitOf(sortOn(newScan(id), "price", types.Int4GtOID), 2)), docsRel)
	require.Nil(t, d)
	require.True(t, IsKind(err, ErrCatalog))
	require.True(t, errors.Is(err, boom))

	// no sort, no catalog use
	d, err = a.FindPushdown(context.Background(), id, stmtOf(limitOf(newScan(id), 2)), docsRel)
	require.NoError(t, err)
	requireLimit(t, d, 2)
}

func TestDeparseFailureAborts(t *testing.T) {
	id := NewScanID()
	s := sortOn(newScan(id), "price", types.Int4GtOID)
	s.TargetList[0].Expr = &plan.Var{VarNo: types.OuterVar, VarAttNo: 200, Type: types.Int4OID}

	_, err := newAnalyzer(docsCatalog()).FindPushdown(context.Background(), id, stmtOf(s), docsRel)
	require.True(t, IsKind(err, ErrDeparse), "%v", err)

	a := NewAnalyzer(Options{Catalog: docsCatalog(), Deparser: failingDeparser{}})
	_, err = a.FindPushdown(context.Background(), id, stmtOf(sortOn(newScan(id), "price", types.Int4GtOID)), docsRel)
	require.True(t, IsKind(err, ErrDeparse), "%v", err)
}

func TestHelpers(t *testing.T) {
	ctx := context.Background()
	id := NewScanID()
	a := newAnalyzer(docsCatalog())
	stmt := stmtOf(limitOf(sortOn(newScan(id), "price", types.Int4GtOID), 10))

	n, err := a.FindLimit(ctx, id, stmt, docsRel)
	require.NoError(t, err)
	require.Equal(t, uint64(10), n)

	field, dir, limit, err := a.FindSortAndLimit(ctx, id, stmt, docsRel)
	require.NoError(t, err)
	require.Equal(t, "price", field)
	require.Equal(t, SortDesc, dir)
	require.Equal(t, uint64(10), limit)

	n, err = a.FindLimit(ctx, id, stmtOf(newScan(id)), docsRel)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestScenarioLimitSortDesc(t *testing.T) {
	id := NewScanID()
	d := find(t, limitOf(sortOn(newScan(id), "price", types.Int4GtOID), 10), id)
	requireLimit(t, d, 10)
	requireSort(t, d, "price", SortDesc)
	require.Equal(t, "limit=10 sort=price desc", d.String())
}

func TestScenarioFreeTextSortDropped(t *testing.T) {
	id := NewScanID()
	d := find(t, limitOf(sortOn(newScan(id), "description", types.TextGtOID), 10), id)
	requireLimit(t, d, 10)
	require.Nil(t, d.SortField)
	require.Equal(t, "limit=10", d.String())
}

func TestScenarioOffsetInvalidatesLimit(t *testing.T) {
	id := NewScanID()
	l := limitOf(newScan(id), 5)
	l.Offset = count(3)
	d := find(t, l, id)
	require.Nil(t, d)
	require.Equal(t, "<none>", d.String())
}

type recordingCatalog struct {
	catalog.Catalog
	fail       error
	attLookups int
}

func (c *recordingCatalog) AttNum(ctx context.Context, rel types.Oid, name string) (types.AttrNumber, error) {
	c.attLookups++
	if c.fail != nil {
		return types.InvalidAttrNumber, c.fail
	}
	return c.Catalog.AttNum(ctx, rel, name)
}

func (c *recordingCatalog) Operators(ctx context.Context, typ types.Oid) (catalog.Operators, error) {
	if c.fail != nil {
		return catalog.Operators{}, c.fail
	}
	return c.Catalog.Operators(ctx, typ)
}

type failingDeparser struct{}

func (failingDeparser) Deparse(plan.Expr, deparse.Context) (string, error) {
	return "", errors.New("no deparse context")
}
