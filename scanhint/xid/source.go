package xid

import (
	"context"
	"sync/atomic"
)

// Static is a Source that always reports the same state.
type Static EpochState

func (s Static) NextXidAndEpoch(context.Context) (EpochState, error) {
	return EpochState(s), nil
}

// Counter is an in-process allocator. Readers see the high-water mark through
// a single atomic load; Advance plays the role of the host writer.
type Counter struct {
	full atomic.Uint64
}

// NewCounter starts a counter at the given epoch and last assigned identifier.
func NewCounter(epoch uint32, last TransactionID) *Counter {
	c := &Counter{}
	c.full.Store(EpochState{LastSeen: last, Epoch: epoch}.Full())
	return c
}

func (c *Counter) NextXidAndEpoch(context.Context) (EpochState, error) {
	return c.Load(), nil
}

// Load returns the current state without a context.
func (c *Counter) Load() EpochState {
	v := c.full.Load()
	return EpochState{LastSeen: TransactionID(uint32(v)), Epoch: uint32(v >> 32)}
}

// Advance assigns n more identifiers and returns the new state. Crossing the
// wrap point bumps the epoch and skips the special identifiers.
func (c *Counter) Advance(n uint32) EpochState {
	for {
		old := c.full.Load()
		next := old + uint64(n)
		if next>>32 > old>>32 && uint32(next) < uint32(FirstNormal) {
			next += uint64(FirstNormal) - uint64(uint32(next))
		}
		if c.full.CompareAndSwap(old, next) {
			return EpochState{LastSeen: TransactionID(uint32(next)), Epoch: uint32(next >> 32)}
		}
	}
}
