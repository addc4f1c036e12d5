// Package deparse renders plan expressions back to SQL text.
package deparse

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/nonibytes/scanhint/scanhint/plan"
	"github.com/nonibytes/scanhint/scanhint/types"
)

// Context is what an expression is resolved against: the statement's range
// table, plus the node the expression belongs to so that outer and inner
// references can be followed into its children's target lists.
type Context struct {
	RangeTable []plan.RangeTblEntry
	Anchor     plan.Node
	// Prefix qualifies column names with their relation alias.
	Prefix bool
}

// Deparser renders one expression.
type Deparser interface {
	Deparse(expr plan.Expr, ctx Context) (string, error)
}

// Rules is the built-in Deparser. Column references print as bare names,
// implicit casts are hidden and function calls print as name(args).
type Rules struct{}

var _ Deparser = Rules{}

// maxDepth bounds chains of outer/inner references through child target lists.
const maxDepth = 64

func (r Rules) Deparse(expr plan.Expr, ctx Context) (string, error) {
	var sb strings.Builder
	if err := r.write(&sb, expr, ctx, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r Rules) write(sb *strings.Builder, expr plan.Expr, ctx Context, depth int) error {
	if depth > maxDepth {
		return errors.Newf("expression nests deeper than %d levels", maxDepth)
	}
	switch e := expr.(type) {
	case nil:
		return errors.New("cannot deparse a nil expression")
	case *plan.Const:
		writeConst(sb, e)
	case *plan.Var:
		return r.writeVar(sb, e, ctx, depth)
	case *plan.Param:
		sb.WriteString("$")
		sb.WriteString(strconv.Itoa(e.ID))
	case *plan.RelabelType:
		return r.write(sb, e.Arg, ctx, depth+1)
	case *plan.FuncExpr:
		if e.Name == "" {
			return errors.New("function call without a name")
		}
		sb.WriteString(e.Name)
		sb.WriteByte('(')
		for i, a := range e.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := r.write(sb, a, ctx, depth+1); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	default:
		return errors.Newf("unsupported expression %T", expr)
	}
	return nil
}

func (r Rules) writeVar(sb *strings.Builder, v *plan.Var, ctx Context, depth int) error {
	switch v.VarNo {
	case types.OuterVar, types.InnerVar:
		if ctx.Anchor == nil {
			return errors.Newf("varno %d without an anchor node", v.VarNo)
		}
		child := ctx.Anchor.Base().Left
		if v.VarNo == types.InnerVar {
			child = ctx.Anchor.Base().Right
		}
		if child == nil {
			return errors.Newf("varno %d: %s has no such child", v.VarNo, plan.Name(ctx.Anchor))
		}
		te := plan.TargetEntryByResno(child.Base().TargetList, v.VarAttNo)
		if te == nil {
			return errors.Newf("varno %d: no target entry %d in %s", v.VarNo, v.VarAttNo, plan.Name(child))
		}
		next := ctx
		next.Anchor = child
		return r.write(sb, te.Expr, next, depth+1)
	case types.IndexVar:
		return errors.Newf("index var %d cannot be resolved without the index target list", v.VarAttNo)
	}

	if v.VarNo == 0 || int(v.VarNo) > len(ctx.RangeTable) {
		return errors.Newf("varno %d out of range (%d entries)", v.VarNo, len(ctx.RangeTable))
	}
	rte := ctx.RangeTable[v.VarNo-1]
	if v.VarAttNo == 0 {
		// whole-row reference
		sb.WriteString(rte.Alias)
		return nil
	}
	if v.VarAttNo < 0 || int(v.VarAttNo) > len(rte.ColNames) {
		return errors.Newf("attribute %d out of range for %q", v.VarAttNo, rte.Alias)
	}
	if ctx.Prefix && rte.Alias != "" {
		sb.WriteString(quoteIdent(rte.Alias))
		sb.WriteByte('.')
	}
	sb.WriteString(quoteIdent(rte.ColNames[v.VarAttNo-1]))
	return nil
}

func writeConst(sb *strings.Builder, c *plan.Const) {
	if c.IsNull {
		sb.WriteString("NULL")
		return
	}
	switch c.Type {
	case types.Int2OID, types.Int4OID, types.Int8OID, types.Float4OID, types.Float8OID, types.NumericOID, types.OidOID:
		sb.WriteString(c.Value)
	case types.BoolOID:
		switch c.Value {
		case "t", "true":
			sb.WriteString("true")
		default:
			sb.WriteString("false")
		}
	default:
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(c.Value, "'", "''"))
		sb.WriteByte('\'')
	}
}

// quoteIdent double-quotes names that would not survive as bare identifiers.
func quoteIdent(name string) string {
	if name == "" {
		return `""`
	}
	safe := true
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9', r == '$':
			if i == 0 {
				safe = false
			}
		default:
			safe = false
		}
	}
	if safe {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
