package plan

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/nonibytes/scanhint/scanhint/types"
)

// Plan documents are the JSON form of a Statement. Node kinds use the names
// printed by the host's EXPLAIN; anything unrecognised decodes as Generic.
//
//	{
//	  "range_table": [{"relid": 16384, "alias": "docs", "colnames": ["id", "title"]}],
//	  "plan": {"node": "Limit", "count": {"expr": "const", "type": 20, "value": "10"},
//	           "left": {"node": "IndexScan", "scanrelid": 1, "scan_id": "..."}}
//	}

type statementDoc struct {
	RangeTable []rteDoc `json:"range_table"`
	Plan       *nodeDoc `json:"plan"`
}

type rteDoc struct {
	RelID    types.Oid `json:"relid"`
	Alias    string    `json:"alias,omitempty"`
	ColNames []string  `json:"colnames,omitempty"`
}

type nodeDoc struct {
	Node       string      `json:"node"`
	TargetList []*entryDoc `json:"targetlist,omitempty"`
	Left       *nodeDoc    `json:"left,omitempty"`
	Right      *nodeDoc    `json:"right,omitempty"`
	InitPlans  []*nodeDoc  `json:"initplans,omitempty"`
	SubPlans   []*nodeDoc  `json:"subplans,omitempty"`

	ScanRelID  types.Index `json:"scanrelid,omitempty"`
	IndexRelID types.Oid   `json:"indexrelid,omitempty"`
	ScanID     string      `json:"scan_id,omitempty"`

	Count        *exprDoc `json:"count,omitempty"`
	Offset       *exprDoc `json:"offset,omitempty"`
	ConstantQual *exprDoc `json:"resconstantqual,omitempty"`

	SortColIdx    []types.AttrNumber `json:"sort_col_idx,omitempty"`
	SortOperators []types.Oid        `json:"sort_operators,omitempty"`
	NullsFirst    []bool             `json:"nulls_first,omitempty"`

	Plans   []*nodeDoc `json:"plans,omitempty"`
	Subplan *nodeDoc   `json:"subplan,omitempty"`
	Name    string     `json:"name,omitempty"`
}

type entryDoc struct {
	Resno   types.AttrNumber `json:"resno"`
	Expr    *exprDoc         `json:"expr"`
	ResName string           `json:"resname,omitempty"`
	ResJunk bool             `json:"resjunk,omitempty"`
}

type exprDoc struct {
	Expr   string           `json:"expr"`
	Type   types.Oid        `json:"type,omitempty"`
	IsNull bool             `json:"isnull,omitempty"`
	Value  string           `json:"value,omitempty"`
	VarNo  types.Index      `json:"varno,omitempty"`
	AttNo  types.AttrNumber `json:"varattno,omitempty"`
	Param  int              `json:"paramid,omitempty"`
	Name   string           `json:"funcname,omitempty"`
	Args   []*exprDoc       `json:"args,omitempty"`
	Arg    *exprDoc         `json:"arg,omitempty"`
}

// Decode reads one plan document.
func Decode(r io.Reader) (*Statement, error) {
	var doc statementDoc
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode plan document")
	}
	if doc.Plan == nil {
		return nil, errors.New("plan document has no plan")
	}
	root, err := decodeNode(doc.Plan)
	if err != nil {
		return nil, err
	}
	stmt := &Statement{Root: root}
	for _, rte := range doc.RangeTable {
		stmt.RangeTable = append(stmt.RangeTable, RangeTblEntry(rte))
	}
	return stmt, nil
}

// Encode writes stmt as an indented plan document.
func Encode(w io.Writer, stmt *Statement) error {
	if stmt == nil || stmt.Root == nil {
		return errors.New("statement has no plan")
	}
	doc := statementDoc{Plan: encodeNode(stmt.Root)}
	for _, rte := range stmt.RangeTable {
		doc.RangeTable = append(doc.RangeTable, rteDoc(rte))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func decodeNode(d *nodeDoc) (Node, error) {
	if d == nil {
		return nil, nil
	}
	var (
		n   Node
		err error
	)
	switch d.Node {
	case "SeqScan":
		n = &SeqScan{ScanRelID: d.ScanRelID}
	case "IndexScan", "IndexOnlyScan":
		s := &IndexScan{ScanRelID: d.ScanRelID, IndexRelID: d.IndexRelID}
		if d.ScanID != "" {
			if s.Scan, err = ParseScanID(d.ScanID); err != nil {
				return nil, errors.Wrapf(err, "scan_id %q", d.ScanID)
			}
		}
		n = s
	case "BitmapIndexScan":
		n = &BitmapIndexScan{IndexRelID: d.IndexRelID}
	case "BitmapHeapScan":
		n = &BitmapHeapScan{ScanRelID: d.ScanRelID}
	case "SubqueryScan":
		s := &SubqueryScan{ScanRelID: d.ScanRelID}
		if s.Subplan, err = decodeNode(d.Subplan); err != nil {
			return nil, err
		}
		n = s
	case "CustomScan":
		s := &CustomScan{Name: d.Name, ScanRelID: d.ScanRelID}
		if s.CustomPlans, err = decodeNodes(d.Plans); err != nil {
			return nil, err
		}
		n = s
	case "Limit":
		l := &Limit{}
		if l.Count, err = decodeExpr(d.Count); err != nil {
			return nil, err
		}
		if l.Offset, err = decodeExpr(d.Offset); err != nil {
			return nil, err
		}
		n = l
	case "Sort":
		if len(d.SortOperators) != len(d.SortColIdx) {
			return nil, errors.Newf("sort has %d columns but %d operators", len(d.SortColIdx), len(d.SortOperators))
		}
		n = &Sort{SortColIdx: d.SortColIdx, SortOperators: d.SortOperators, NullsFirst: d.NullsFirst}
	case "Result":
		r := &Result{}
		if r.ConstantQual, err = decodeExpr(d.ConstantQual); err != nil {
			return nil, err
		}
		n = r
	case "Append", "MergeAppend":
		a := &Append{Merge: d.Node == "MergeAppend"}
		if a.Plans, err = decodeNodes(d.Plans); err != nil {
			return nil, err
		}
		n = a
	case "BitmapAnd", "BitmapOr":
		b := &BitmapOp{Or: d.Node == "BitmapOr"}
		if b.Plans, err = decodeNodes(d.Plans); err != nil {
			return nil, err
		}
		n = b
	case string(NestLoop), string(HashJoin), string(MergeJoin):
		n = &Join{Strategy: JoinStrategy(d.Node)}
	case "":
		return nil, errors.New("plan node without a node name")
	default:
		n = &Generic{Name: d.Node}
	}

	p := n.Base()
	for _, e := range d.TargetList {
		te := &TargetEntry{Resno: e.Resno, ResName: e.ResName, ResJunk: e.ResJunk}
		if te.Expr, err = decodeExpr(e.Expr); err != nil {
			return nil, err
		}
		p.TargetList = append(p.TargetList, te)
	}
	if p.Left, err = decodeNode(d.Left); err != nil {
		return nil, err
	}
	if p.Right, err = decodeNode(d.Right); err != nil {
		return nil, err
	}
	if p.InitPlans, err = decodeNodes(d.InitPlans); err != nil {
		return nil, err
	}
	if p.SubPlans, err = decodeNodes(d.SubPlans); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeNodes(ds []*nodeDoc) ([]Node, error) {
	var out []Node
	for _, d := range ds {
		n, err := decodeNode(d)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func decodeExpr(d *exprDoc) (Expr, error) {
	if d == nil {
		return nil, nil
	}
	switch d.Expr {
	case "const":
		return &Const{Type: d.Type, IsNull: d.IsNull, Value: d.Value}, nil
	case "var":
		return &Var{VarNo: d.VarNo, VarAttNo: d.AttNo, Type: d.Type}, nil
	case "param":
		return &Param{ID: d.Param, Type: d.Type}, nil
	case "func":
		f := &FuncExpr{Name: d.Name, ResultType: d.Type}
		for _, a := range d.Args {
			arg, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			f.Args = append(f.Args, arg)
		}
		return f, nil
	case "relabel":
		arg, err := decodeExpr(d.Arg)
		if err != nil {
			return nil, err
		}
		return &RelabelType{Arg: arg, ResultType: d.Type}, nil
	default:
		return nil, errors.Newf("unknown expression kind %q", d.Expr)
	}
}

func encodeNode(n Node) *nodeDoc {
	if n == nil {
		return nil
	}
	d := &nodeDoc{Node: Name(n)}
	switch n := n.(type) {
	case *SeqScan:
		d.ScanRelID = n.ScanRelID
	case *IndexScan:
		d.ScanRelID, d.IndexRelID = n.ScanRelID, n.IndexRelID
		if !n.Scan.IsZero() {
			d.ScanID = n.Scan.String()
		}
	case *BitmapIndexScan:
		d.IndexRelID = n.IndexRelID
	case *BitmapHeapScan:
		d.ScanRelID = n.ScanRelID
	case *SubqueryScan:
		d.ScanRelID = n.ScanRelID
		d.Subplan = encodeNode(n.Subplan)
	case *CustomScan:
		d.Node, d.Name, d.ScanRelID = "CustomScan", n.Name, n.ScanRelID
		d.Plans = encodeNodes(n.CustomPlans)
	case *Limit:
		d.Count, d.Offset = encodeExpr(n.Count), encodeExpr(n.Offset)
	case *Sort:
		d.SortColIdx, d.SortOperators, d.NullsFirst = n.SortColIdx, n.SortOperators, n.NullsFirst
	case *Result:
		d.ConstantQual = encodeExpr(n.ConstantQual)
	case *Append:
		d.Plans = encodeNodes(n.Plans)
	case *BitmapOp:
		d.Plans = encodeNodes(n.Plans)
	}
	p := n.Base()
	for _, te := range p.TargetList {
		d.TargetList = append(d.TargetList, &entryDoc{
			Resno: te.Resno, Expr: encodeExpr(te.Expr), ResName: te.ResName, ResJunk: te.ResJunk,
		})
	}
	d.Left, d.Right = encodeNode(p.Left), encodeNode(p.Right)
	d.InitPlans, d.SubPlans = encodeNodes(p.InitPlans), encodeNodes(p.SubPlans)
	return d
}

func encodeNodes(ns []Node) []*nodeDoc {
	var out []*nodeDoc
	for _, n := range ns {
		out = append(out, encodeNode(n))
	}
	return out
}

func encodeExpr(e Expr) *exprDoc {
	switch e := e.(type) {
	case *Const:
		return &exprDoc{Expr: "const", Type: e.Type, IsNull: e.IsNull, Value: e.Value}
	case *Var:
		return &exprDoc{Expr: "var", VarNo: e.VarNo, AttNo: e.VarAttNo, Type: e.Type}
	case *Param:
		return &exprDoc{Expr: "param", Param: e.ID, Type: e.Type}
	case *FuncExpr:
		d := &exprDoc{Expr: "func", Name: e.Name, Type: e.ResultType}
		for _, a := range e.Args {
			d.Args = append(d.Args, encodeExpr(a))
		}
		return d
	case *RelabelType:
		return &exprDoc{Expr: "relabel", Arg: encodeExpr(e.Arg), Type: e.ResultType}
	default:
		return nil
	}
}
