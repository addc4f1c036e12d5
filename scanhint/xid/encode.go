package xid

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// EpochState is the allocator's high-water mark: the most recently assigned
// identifier and the number of times the counter has wrapped.
type EpochState struct {
	LastSeen TransactionID
	Epoch    uint32
}

// Full returns the 64-bit form of the high-water mark itself.
func (s EpochState) Full() uint64 {
	return uint64(s.Epoch)<<32 | uint64(s.LastSeen)
}

// Encode widens x into a 64-bit token comparable across wraparound, using s to
// decide which epoch x belongs to. Special identifiers are returned as-is.
func Encode(x TransactionID, s EpochState) uint64 {
	if !x.IsNormal() {
		return uint64(x)
	}

	// x may sit on either side of the wrap point relative to LastSeen.
	epoch := uint64(s.Epoch)
	if x > s.LastSeen && Precedes(x, s.LastSeen) {
		if epoch > 0 {
			epoch--
		}
	} else if x < s.LastSeen && Follows(x, s.LastSeen) {
		epoch++
	}

	return epoch<<32 | uint64(x)
}

// Decode splits an encoded token back into its epoch and identifier.
func Decode(v uint64) (epoch uint32, x TransactionID) {
	return uint32(v >> 32), TransactionID(uint32(v))
}

// Source reports the allocator's current high-water mark.
type Source interface {
	NextXidAndEpoch(ctx context.Context) (EpochState, error)
}

// Encoder encodes identifiers against a live Source. The state is fetched
// again on every call; it only needs to be recent enough to disambiguate
// wraparound.
type Encoder struct {
	Source Source
}

func NewEncoder(src Source) *Encoder {
	return &Encoder{Source: src}
}

// Encode is the package-level Encode with a freshly fetched EpochState.
func (e *Encoder) Encode(ctx context.Context, x TransactionID) (uint64, error) {
	if !x.IsNormal() {
		return uint64(x), nil
	}
	s, err := e.state(ctx)
	if err != nil {
		return 0, err
	}
	return Encode(x, s), nil
}

func (e *Encoder) state(ctx context.Context) (EpochState, error) {
	if e.Source == nil {
		return EpochState{}, errors.AssertionFailedf("xid encoder has no source")
	}
	s, err := e.Source.NextXidAndEpoch(ctx)
	if err != nil {
		return EpochState{}, errors.Wrap(err, "fetch transaction epoch")
	}
	return s, nil
}

// Snapshot is a visibility snapshot expressed in 32-bit identifiers.
type Snapshot struct {
	Xmin       TransactionID
	Xmax       TransactionID
	InProgress []TransactionID
}

// ParseSnapshot reads the host's text form "xmin:xmax:xip1,xip2,...".
func ParseSnapshot(s string) (Snapshot, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Snapshot{}, errors.Newf("snapshot %q: want xmin:xmax:xip-list", s)
	}
	var snap Snapshot
	var err error
	if snap.Xmin, err = Parse(parts[0]); err != nil {
		return Snapshot{}, errors.Wrapf(err, "snapshot %q: xmin", s)
	}
	if snap.Xmax, err = Parse(parts[1]); err != nil {
		return Snapshot{}, errors.Wrapf(err, "snapshot %q: xmax", s)
	}
	if parts[2] == "" {
		return snap, nil
	}
	for _, f := range strings.Split(parts[2], ",") {
		x, err := Parse(f)
		if err != nil {
			return Snapshot{}, errors.Wrapf(err, "snapshot %q: in-progress xid", s)
		}
		snap.InProgress = append(snap.InProgress, x)
	}
	return snap, nil
}

// EncodedSnapshot is a Snapshot with every identifier widened to 64 bits.
type EncodedSnapshot struct {
	Xmin       uint64   `json:"xmin"`
	Xmax       uint64   `json:"xmax"`
	InProgress []uint64 `json:"xip,omitempty"`
}

// EncodeSnapshot widens every identifier of snap against a single state fetch,
// so all members agree on the epoch boundary.
func (e *Encoder) EncodeSnapshot(ctx context.Context, snap Snapshot) (EncodedSnapshot, error) {
	s, err := e.state(ctx)
	if err != nil {
		return EncodedSnapshot{}, err
	}
	out := EncodedSnapshot{
		Xmin: Encode(snap.Xmin, s),
		Xmax: Encode(snap.Xmax, s),
	}
	if len(snap.InProgress) > 0 {
		out.InProgress = make([]uint64, len(snap.InProgress))
		for i, x := range snap.InProgress {
			out.InProgress[i] = Encode(x, s)
		}
	}
	return out, nil
}
