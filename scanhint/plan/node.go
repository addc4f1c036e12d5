// Package plan models an executor plan tree as a closed set of node kinds.
// Nodes are produced by the host and treated as read-only.
package plan

import (
	"github.com/google/uuid"

	"github.com/nonibytes/scanhint/scanhint/types"
)

// ScanID identifies one active index scan instance. The zero value never
// identifies a scan.
type ScanID uuid.UUID

// NewScanID returns a fresh random scan identity.
func NewScanID() ScanID { return ScanID(uuid.New()) }

// ParseScanID parses the textual UUID form.
func ParseScanID(s string) (ScanID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ScanID{}, err
	}
	return ScanID(u), nil
}

func (id ScanID) IsZero() bool { return id == ScanID{} }

func (id ScanID) String() string { return uuid.UUID(id).String() }

// Kind tags a node with its operator type.
type Kind int

const (
	KindSeqScan Kind = iota
	KindIndexScan
	KindBitmapIndexScan
	KindBitmapHeapScan
	KindSubqueryScan
	KindCustomScan
	KindLimit
	KindSort
	KindResult
	KindAppend
	KindBitmapOp
	KindJoin
	KindGeneric
)

var kindNames = [...]string{
	KindSeqScan:         "SeqScan",
	KindIndexScan:       "IndexScan",
	KindBitmapIndexScan: "BitmapIndexScan",
	KindBitmapHeapScan:  "BitmapHeapScan",
	KindSubqueryScan:    "SubqueryScan",
	KindCustomScan:      "CustomScan",
	KindLimit:           "Limit",
	KindSort:            "Sort",
	KindResult:          "Result",
	KindAppend:          "Append",
	KindBitmapOp:        "BitmapOp",
	KindJoin:            "Join",
	KindGeneric:         "Generic",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "?"
}

// Node is implemented by every plan node kind in this package.
type Node interface {
	Kind() Kind
	Base() *Plan
	// Children returns every node reachable through one link, across all link
	// kinds: init plans, left, right, kind-specific children, sub-plans.
	Children() []Node
	isNode()
}

// Plan holds the fields shared by all node kinds.
type Plan struct {
	TargetList []*TargetEntry
	Left       Node
	Right      Node
	InitPlans  []Node
	SubPlans   []Node
}

func (p *Plan) Base() *Plan { return p }

func (p *Plan) links(special ...Node) []Node {
	out := make([]Node, 0, len(p.InitPlans)+2+len(special)+len(p.SubPlans))
	out = appendNodes(out, p.InitPlans...)
	out = appendNodes(out, p.Left, p.Right)
	out = appendNodes(out, special...)
	out = appendNodes(out, p.SubPlans...)
	return out
}

func appendNodes(dst []Node, ns ...Node) []Node {
	for _, n := range ns {
		if n != nil {
			dst = append(dst, n)
		}
	}
	return dst
}

// SeqScan reads a relation sequentially.
type SeqScan struct {
	Plan
	ScanRelID types.Index
}

// IndexScan reads a relation through an index. Scan carries the identity of
// the running scan instance.
type IndexScan struct {
	Plan
	ScanRelID  types.Index
	IndexRelID types.Oid
	Scan       ScanID
}

// BitmapIndexScan produces a tid bitmap from one index.
type BitmapIndexScan struct {
	Plan
	IndexRelID types.Oid
}

// BitmapHeapScan fetches heap rows for a tid bitmap produced below it.
type BitmapHeapScan struct {
	Plan
	ScanRelID types.Index
}

// SubqueryScan scans the output of a sub-select.
type SubqueryScan struct {
	Plan
	ScanRelID types.Index
	Subplan   Node
}

// CustomScan is an extension-provided scan with its own child list.
type CustomScan struct {
	Plan
	Name        string
	ScanRelID   types.Index
	CustomPlans []Node
}

// Limit returns at most Count rows after skipping Offset rows. Either
// expression may be nil.
type Limit struct {
	Plan
	Count  Expr
	Offset Expr
}

// Sort orders its input. SortColIdx holds target-list resnos, one per key,
// parallel to SortOperators and NullsFirst.
type Sort struct {
	Plan
	SortColIdx    []types.AttrNumber
	SortOperators []types.Oid
	NullsFirst    []bool
}

// Result evaluates its target list over its input, or once without input.
type Result struct {
	Plan
	ConstantQual Expr
}

// Append concatenates its member plans; Merge preserves a common sort order.
type Append struct {
	Plan
	Plans []Node
	Merge bool
}

// BitmapOp combines member bitmaps with AND, or with OR when Or is set.
type BitmapOp struct {
	Plan
	Or    bool
	Plans []Node
}

// JoinStrategy selects the join algorithm.
type JoinStrategy string

const (
	NestLoop  JoinStrategy = "NestLoop"
	HashJoin  JoinStrategy = "HashJoin"
	MergeJoin JoinStrategy = "MergeJoin"
)

// Join combines its left and right inputs.
type Join struct {
	Plan
	Strategy JoinStrategy
}

// Generic covers operators that only matter through their children, such as
// Material, Hash, Agg, Gather or Unique.
type Generic struct {
	Plan
	Name string
}

func (*SeqScan) Kind() Kind         { return KindSeqScan }
func (*IndexScan) Kind() Kind       { return KindIndexScan }
func (*BitmapIndexScan) Kind() Kind { return KindBitmapIndexScan }
func (*BitmapHeapScan) Kind() Kind  { return KindBitmapHeapScan }
func (*SubqueryScan) Kind() Kind    { return KindSubqueryScan }
func (*CustomScan) Kind() Kind      { return KindCustomScan }
func (*Limit) Kind() Kind           { return KindLimit }
func (*Sort) Kind() Kind            { return KindSort }
func (*Result) Kind() Kind          { return KindResult }
func (*Append) Kind() Kind          { return KindAppend }
func (*BitmapOp) Kind() Kind        { return KindBitmapOp }
func (*Join) Kind() Kind            { return KindJoin }
func (*Generic) Kind() Kind         { return KindGeneric }

func (n *SeqScan) Children() []Node         { return n.links() }
func (n *IndexScan) Children() []Node       { return n.links() }
func (n *BitmapIndexScan) Children() []Node { return n.links() }
func (n *BitmapHeapScan) Children() []Node  { return n.links() }
func (n *SubqueryScan) Children() []Node    { return n.links(n.Subplan) }
func (n *CustomScan) Children() []Node      { return n.links(n.CustomPlans...) }
func (n *Limit) Children() []Node           { return n.links() }
func (n *Sort) Children() []Node            { return n.links() }
func (n *Result) Children() []Node          { return n.links() }
func (n *Append) Children() []Node          { return n.links(n.Plans...) }
func (n *BitmapOp) Children() []Node        { return n.links(n.Plans...) }
func (n *Join) Children() []Node            { return n.links() }
func (n *Generic) Children() []Node         { return n.links() }

func (*SeqScan) isNode()         {}
func (*IndexScan) isNode()       {}
func (*BitmapIndexScan) isNode() {}
func (*BitmapHeapScan) isNode()  {}
func (*SubqueryScan) isNode()    {}
func (*CustomScan) isNode()      {}
func (*Limit) isNode()           {}
func (*Sort) isNode()            {}
func (*Result) isNode()          {}
func (*Append) isNode()          {}
func (*BitmapOp) isNode()        {}
func (*Join) isNode()            {}
func (*Generic) isNode()         {}

// Name returns the operator name as the host would print it.
func Name(n Node) string {
	switch n := n.(type) {
	case *Append:
		if n.Merge {
			return "MergeAppend"
		}
	case *BitmapOp:
		if n.Or {
			return "BitmapOr"
		}
		return "BitmapAnd"
	case *Join:
		return string(n.Strategy)
	case *Generic:
		if n.Name != "" {
			return n.Name
		}
	case *CustomScan:
		if n.Name != "" {
			return "CustomScan (" + n.Name + ")"
		}
	}
	return n.Kind().String()
}

// ScanRelID returns the range table index a scan node reads, if n is a scan
// over a range table entry.
func ScanRelID(n Node) (types.Index, bool) {
	switch n := n.(type) {
	case *SeqScan:
		return n.ScanRelID, true
	case *IndexScan:
		return n.ScanRelID, true
	case *BitmapHeapScan:
		return n.ScanRelID, true
	case *SubqueryScan:
		return n.ScanRelID, true
	case *CustomScan:
		return n.ScanRelID, n.ScanRelID != 0
	}
	return 0, false
}

// RangeTblEntry describes one relation referenced by the statement.
type RangeTblEntry struct {
	RelID    types.Oid
	Alias    string
	ColNames []string
}

// Statement is a planned query: the root node plus the range table the
// nodes' scan and var references index into.
type Statement struct {
	Root       Node
	RangeTable []RangeTblEntry
}

// RTE returns the 1-based range table entry i.
func (s *Statement) RTE(i types.Index) (*RangeTblEntry, bool) {
	if i == 0 || int(i) > len(s.RangeTable) {
		return nil, false
	}
	return &s.RangeTable[i-1], true
}
