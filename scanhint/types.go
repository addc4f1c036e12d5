package scanhint

import (
	"fmt"
	"strings"

	"github.com/nonibytes/scanhint/scanhint/plan"
)

// ScanID identifies the index scan a lookup is made for.
type ScanID = plan.ScanID

// NewScanID returns a fresh scan identity.
func NewScanID() ScanID { return plan.NewScanID() }

// SortDirection is the order a pushed-down sort returns rows in.
type SortDirection int

const (
	SortAsc SortDirection = iota
	SortDesc
)

func (d SortDirection) String() string {
	if d == SortDesc {
		return "desc"
	}
	return "asc"
}

// Directive tells the external engine what it may do on the scan's behalf.
// A nil *Directive means nothing binds to the scan.
type Directive struct {
	// RowLimit is set when a Limit with a literal count binds to the scan.
	RowLimit *uint64
	// SortField is set when a sort on a sortable heap column binds to the scan.
	SortField *string
	// Direction is meaningful when SortField is set or ScoreSort is true.
	Direction SortDirection
	// ScoreSort reports a sort on the relevance score.
	ScoreSort bool
}

// Sorted reports whether the directive carries any sort.
func (d *Directive) Sorted() bool {
	return d != nil && (d.SortField != nil || d.ScoreSort)
}

func (d *Directive) String() string {
	if d == nil {
		return "<none>"
	}
	var parts []string
	if d.RowLimit != nil {
		parts = append(parts, fmt.Sprintf("limit=%d", *d.RowLimit))
	}
	switch {
	case d.ScoreSort:
		parts = append(parts, fmt.Sprintf("sort=%s %s", ScoreColumn, d.Direction))
	case d.SortField != nil:
		parts = append(parts, fmt.Sprintf("sort=%s %s", *d.SortField, d.Direction))
	}
	return strings.Join(parts, " ")
}
