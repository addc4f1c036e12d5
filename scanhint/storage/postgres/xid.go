package postgres

import (
	"context"
	"database/sql"

	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/xid"
)

// XidSource reads the server's transaction id high-water mark. Every call is
// a round trip; nothing is cached.
type XidSource struct {
	db *sql.DB
}

var _ xid.Source = (*XidSource)(nil)

func NewXidSource(db *sql.DB) *XidSource {
	return &XidSource{db: db}
}

func (s *XidSource) NextXidAndEpoch(ctx context.Context) (xid.EpochState, error) {
	var full int64
	if err := s.db.QueryRowContext(ctx, sqlNextXid).Scan(&full); err != nil {
		return xid.EpochState{}, scanhint.Wrap(scanhint.ErrSQL, "read next transaction id", err)
	}
	return xid.EpochState{
		LastSeen: xid.TransactionID(uint32(full)),
		Epoch:    uint32(uint64(full) >> 32),
	}, nil
}
