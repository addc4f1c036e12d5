// Package xid turns 32-bit transaction identifiers into 64-bit tokens that
// stay ordered across counter wraparound.
package xid

import "strconv"

// TransactionID is the host's 32-bit wrapping transaction counter value.
type TransactionID uint32

// Special identifiers. They never take part in wraparound comparisons.
const (
	Invalid     TransactionID = 0
	Bootstrap   TransactionID = 1
	Frozen      TransactionID = 2
	FirstNormal TransactionID = 3
	Max         TransactionID = 0xFFFFFFFF
)

// IsNormal reports whether x is an ordinary allocated identifier.
func (x TransactionID) IsNormal() bool { return x >= FirstNormal }

func (x TransactionID) String() string { return strconv.FormatUint(uint64(x), 10) }

// Precedes reports whether a is logically older than b. Normal identifiers are
// compared by signed 32-bit circular distance, so each identifier has 2^31
// predecessors and 2^31 successors.
func Precedes(a, b TransactionID) bool {
	if !a.IsNormal() || !b.IsNormal() {
		return a < b
	}
	return int32(a-b) < 0
}

// Follows reports whether a is logically newer than b.
func Follows(a, b TransactionID) bool {
	if !a.IsNormal() || !b.IsNormal() {
		return a > b
	}
	return int32(a-b) > 0
}

// PrecedesOrEquals reports whether a is older than or the same as b.
func PrecedesOrEquals(a, b TransactionID) bool {
	if !a.IsNormal() || !b.IsNormal() {
		return a <= b
	}
	return int32(a-b) <= 0
}

// Parse reads a decimal transaction identifier.
func Parse(s string) (TransactionID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return Invalid, err
	}
	return TransactionID(v), nil
}
