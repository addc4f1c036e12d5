// Package scanhint inspects an executor plan tree to find the row limit and
// sort order that bind to one running index scan, so the scan can hand both
// to the external search engine that produces its rows.
package scanhint

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/deparse"
	"github.com/nonibytes/scanhint/scanhint/plan"
	"github.com/nonibytes/scanhint/scanhint/sortability"
	"github.com/nonibytes/scanhint/scanhint/types"
)

// Options configures an Analyzer.
type Options struct {
	Catalog  catalog.Catalog
	Deparser deparse.Deparser
	Logger   zerolog.Logger
}

// DefaultOptions uses the built-in deparse rules, an empty in-memory catalog
// and a disabled logger.
func DefaultOptions() Options {
	return Options{
		Catalog:  catalog.NewStatic(),
		Deparser: deparse.Rules{},
		Logger:   zerolog.Nop(),
	}
}

// Analyzer finds pushdown directives. It holds no per-call state and may be
// shared between goroutines if its catalog may.
type Analyzer struct {
	cat catalog.Catalog
	dp  deparse.Deparser
	log zerolog.Logger
}

// NewAnalyzer builds an analyzer, filling unset options with defaults.
func NewAnalyzer(opts Options) *Analyzer {
	def := DefaultOptions()
	if opts.Catalog == nil {
		opts.Catalog = def.Catalog
	}
	if opts.Deparser == nil {
		opts.Deparser = def.Deparser
	}
	return &Analyzer{cat: opts.Catalog, dp: opts.Deparser, log: opts.Logger}
}

// FindPushdown walks stmt looking for the Limit and Sort that bind to the
// index scan identified by scan, which must read heapRel.
//
// It returns nil, nil when nothing binds. A non-nil error means the call was
// aborted: either an assertion failure for a caller or plan bug, or an
// *Error when the deparser or catalog failed.
func (a *Analyzer) FindPushdown(
	ctx context.Context, scan ScanID, stmt *plan.Statement, heapRel types.Oid,
) (*Directive, error) {
	target, err := a.locate(scan, stmt, heapRel)
	if err != nil || target == nil {
		return nil, err
	}

	w := walker{a: a, ctx: ctx, stmt: stmt, target: target, heapRel: heapRel}
	if err := plan.Walk(stmt.Root, w.visit); err != nil {
		return nil, err
	}

	if w.limit == nil && w.sort == nil {
		return nil, nil
	}
	d := &Directive{RowLimit: w.limit}
	if w.sort != nil {
		d.Direction = w.sort.dir
		if w.sort.score {
			d.ScoreSort = true
		} else {
			field := w.sort.field
			d.SortField = &field
		}
	}
	return d, nil
}

// FindLimit returns the row limit bound to scan, or 0 when none binds.
func (a *Analyzer) FindLimit(
	ctx context.Context, scan ScanID, stmt *plan.Statement, heapRel types.Oid,
) (uint64, error) {
	d, err := a.FindPushdown(ctx, scan, stmt, heapRel)
	if err != nil || d == nil || d.RowLimit == nil {
		return 0, err
	}
	return *d.RowLimit, nil
}

// FindSortAndLimit returns the sort field bound to scan ("" for none or for a
// score sort), its direction, and the row limit (0 for none).
func (a *Analyzer) FindSortAndLimit(
	ctx context.Context, scan ScanID, stmt *plan.Statement, heapRel types.Oid,
) (field string, dir SortDirection, limit uint64, err error) {
	d, err := a.FindPushdown(ctx, scan, stmt, heapRel)
	if err != nil || d == nil {
		return "", SortAsc, 0, err
	}
	if d.RowLimit != nil {
		limit = *d.RowLimit
	}
	if d.SortField != nil {
		field = *d.SortField
	}
	return field, d.Direction, limit, nil
}

// locate checks the call's preconditions and returns the scan node with the
// given identity, or nil when the tree holds none.
func (a *Analyzer) locate(scan ScanID, stmt *plan.Statement, heapRel types.Oid) (*plan.IndexScan, error) {
	if stmt == nil || stmt.Root == nil {
		return nil, errors.AssertionFailedf("pushdown lookup without a plan")
	}
	if scan.IsZero() {
		return nil, errors.AssertionFailedf("pushdown lookup for the zero scan id")
	}

	var found []*plan.IndexScan
	_ = plan.Walk(stmt.Root, func(n plan.Node) error {
		if s, ok := n.(*plan.IndexScan); ok && s.Scan == scan {
			found = append(found, s)
		}
		return nil
	})
	switch len(found) {
	case 0:
		a.log.Warn().Str("scan", scan.String()).Msg("scan not present in plan")
		return nil, nil
	case 1:
	default:
		return nil, errors.AssertionFailedf("scan %s appears %d times in plan", scan, len(found))
	}

	target := found[0]
	rte, ok := stmt.RTE(target.ScanRelID)
	if !ok {
		return nil, errors.AssertionFailedf("scan %s reads range table entry %d of %d",
			scan, target.ScanRelID, len(stmt.RangeTable))
	}
	if rte.RelID != heapRel {
		return nil, errors.AssertionFailedf("scan %s reads relation %d, not %d", scan, rte.RelID, heapRel)
	}
	return target, nil
}

type sortBinding struct {
	field string
	dir   SortDirection
	score bool
}

type walker struct {
	a       *Analyzer
	ctx     context.Context
	stmt    *plan.Statement
	target  *plan.IndexScan
	heapRel types.Oid

	limit *uint64
	sort  *sortBinding
	// sortSeen stops sort evaluation once the target's sort was examined,
	// whether or not it was kept.
	sortSeen bool
}

func (w *walker) visit(n plan.Node) error {
	switch n := n.(type) {
	case *plan.Limit:
		if w.limit == nil {
			w.checkLimit(n)
		}
	case *plan.Sort:
		if !w.sortSeen && n.Left == plan.Node(w.target) {
			w.sortSeen = true
			return w.checkSort(n)
		}
	}
	return nil
}

func (w *walker) checkLimit(l *plan.Limit) {
	if l.Offset != nil {
		return
	}
	c, ok := l.Count.(*plan.Const)
	if !ok {
		return
	}
	count, ok := c.Int64()
	if !ok || count < 0 {
		return
	}

	child := l.Left
	bound := child == plan.Node(w.target)
	if !bound {
		if s := sortUnder(child); s != nil && w.reaches(s.Left) {
			bound = true
		}
	}
	if !bound {
		return
	}
	v := uint64(count)
	w.limit = &v
	w.a.log.Debug().Str("scan", w.target.Scan.String()).Uint64("limit", v).Msg("limit binds to scan")
}

// sortUnder returns n when it is a Sort, or the Sort directly below a Result.
func sortUnder(n plan.Node) *plan.Sort {
	switch n := n.(type) {
	case *plan.Sort:
		return n
	case *plan.Result:
		if s, ok := n.Left.(*plan.Sort); ok {
			return s
		}
	}
	return nil
}

// reaches reports whether n is the target scan, possibly under Result nodes.
func (w *walker) reaches(n plan.Node) bool {
	for n != nil {
		if n == plan.Node(w.target) {
			return true
		}
		r, ok := n.(*plan.Result)
		if !ok {
			return false
		}
		n = r.Left
	}
	return false
}

func (w *walker) checkSort(s *plan.Sort) error {
	log := w.a.log.With().Str("scan", w.target.Scan.String()).Logger()
	if len(s.SortColIdx) == 0 || len(s.SortOperators) == 0 {
		log.Debug().Msg("sort without keys")
		return nil
	}
	te := plan.TargetEntryByResno(s.TargetList, s.SortColIdx[0])
	if te == nil {
		log.Debug().Int("resno", int(s.SortColIdx[0])).Msg("sort key has no target entry")
		return nil
	}

	name, err := w.a.dp.Deparse(te.Expr, deparse.Context{RangeTable: w.stmt.RangeTable, Anchor: s})
	if err != nil {
		return DeparseError(te.ResName, err)
	}
	exprType := plan.TypeOf(te.Expr)
	ops, err := w.a.cat.Operators(w.ctx, exprType)
	if err != nil {
		return CatalogError(fmt.Sprintf("ordering operators of type %d", exprType), err)
	}
	dir := SortAsc
	if ops.Gt.IsValid() && s.SortOperators[0] == ops.Gt {
		dir = SortDesc
	}

	if strings.Contains(name, ScoreColumn) {
		w.sort = &sortBinding{dir: dir, score: true}
		log.Debug().Str("key", name).Stringer("dir", dir).Msg("score sort binds to scan")
		return nil
	}

	field := unquoteIdent(name)
	attno, err := w.a.cat.AttNum(w.ctx, w.heapRel, field)
	if err != nil {
		return CatalogError(fmt.Sprintf("attribute %q of relation %d", field, w.heapRel), err)
	}
	if attno == types.InvalidAttrNumber {
		log.Debug().Str("key", name).Msg("sort key is not a column of the heap relation")
		return nil
	}
	attType, err := w.a.cat.AttType(w.ctx, w.heapRel, attno)
	if err != nil {
		return CatalogError(fmt.Sprintf("type of attribute %d of relation %d", attno, w.heapRel), err)
	}
	base, err := catalog.BaseType(w.ctx, w.a.cat, attType)
	if err != nil {
		return CatalogError(fmt.Sprintf("base type of %d", attType), err)
	}
	if cat := sortability.CategoryOf(base); !sortability.IsSortable(cat) {
		log.Debug().Str("key", field).Str("category", string(cat)).Msg("sort key type is not sortable")
		return nil
	}

	w.sort = &sortBinding{field: field, dir: dir}
	log.Debug().Str("key", field).Stringer("dir", dir).Msg("sort binds to scan")
	return nil
}

// unquoteIdent strips the double quotes the deparser puts around names that
// are not plain lower-case identifiers.
func unquoteIdent(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	inner := s[1 : len(s)-1]
	if strings.Contains(strings.ReplaceAll(inner, `""`, ""), `"`) {
		return s
	}
	return strings.ReplaceAll(inner, `""`, `"`)
}
