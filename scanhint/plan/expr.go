package plan

import (
	"strconv"

	"github.com/nonibytes/scanhint/scanhint/types"
)

// Expr is an expression attached to a plan node.
type Expr interface {
	isExpr()
}

// Const is a literal. Value holds the datum's text form.
type Const struct {
	Type   types.Oid
	IsNull bool
	Value  string
}

func (*Const) isExpr() {}

// Int64 returns the literal as an integer.
func (c *Const) Int64() (int64, bool) {
	if c.IsNull {
		return 0, false
	}
	v, err := strconv.ParseInt(c.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Var references a column: an attribute of range table entry VarNo, or an
// entry of a child's target list when VarNo is OuterVar, InnerVar or IndexVar.
type Var struct {
	VarNo    types.Index
	VarAttNo types.AttrNumber
	Type     types.Oid
}

func (*Var) isExpr() {}

// Param is an executor parameter, such as a bind variable.
type Param struct {
	ID   int
	Type types.Oid
}

func (*Param) isExpr() {}

// FuncExpr is a function call.
type FuncExpr struct {
	Name       string
	ResultType types.Oid
	Args       []Expr
}

func (*FuncExpr) isExpr() {}

// RelabelType is a binary-compatible cast.
type RelabelType struct {
	Arg        Expr
	ResultType types.Oid
}

func (*RelabelType) isExpr() {}

// TypeOf returns the result type of e.
func TypeOf(e Expr) types.Oid {
	switch e := e.(type) {
	case *Const:
		return e.Type
	case *Var:
		return e.Type
	case *Param:
		return e.Type
	case *FuncExpr:
		return e.ResultType
	case *RelabelType:
		return e.ResultType
	default:
		return types.InvalidOid
	}
}

// TargetEntry is one output column of a node.
type TargetEntry struct {
	Resno   types.AttrNumber
	Expr    Expr
	ResName string
	ResJunk bool
}

// TargetEntryByResno returns the entry with the given resno, or nil.
func TargetEntryByResno(tlist []*TargetEntry, resno types.AttrNumber) *TargetEntry {
	for _, te := range tlist {
		if te != nil && te.Resno == resno {
			return te
		}
	}
	return nil
}
