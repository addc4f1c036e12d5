package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"github.com/nonibytes/scanhint/internal/cliutil"
	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/storage"
	"github.com/nonibytes/scanhint/scanhint/storage/postgres"
	"github.com/nonibytes/scanhint/scanhint/xid"
)

// xidFlags select where the transaction high-water mark comes from: a fixed
// state given on the command line, or the live postgres server.
type xidFlags struct {
	lastXid string
	epoch   uint32
}

func (f *xidFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.lastXid, "last-xid", "", "most recently assigned xid; omit to ask the postgres backend")
	fs.Uint32Var(&f.epoch, "epoch", 0, "xid epoch that goes with --last-xid")
}

func (f *xidFlags) source(ctx context.Context, env *cliutil.Env) (xid.Source, io.Closer, error) {
	if f.lastXid != "" {
		last, err := xid.Parse(f.lastXid)
		if err != nil {
			return nil, nil, scanhint.ConfigError("last-xid", err.Error())
		}
		return xid.Static{LastSeen: last, Epoch: f.epoch}, io.NopCloser(nil), nil
	}
	if storage.Backend(env.Opts.Backend) != storage.BackendPostgres {
		return nil, nil, scanhint.ConfigError("last-xid", "give --last-xid or use the postgres backend")
	}
	db, err := postgres.New(env.Opts.PostgresDSN, env.Opts.PostgresSchema).Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewXidSource(db), db, nil
}
