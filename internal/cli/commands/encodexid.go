package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nonibytes/scanhint/internal/cliutil"
	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/xid"
)

type encodedXid struct {
	Xid     xid.TransactionID `json:"xid"`
	Encoded uint64            `json:"encoded"`
	Epoch   uint32            `json:"epoch"`
}

func NewEncodeXidCommand(env *cliutil.Env) *cobra.Command {
	var xf xidFlags
	cmd := &cobra.Command{
		Use:   "encode-xid <xid>...",
		Short: "Widen 32-bit transaction ids into wraparound-safe 64-bit tokens",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]xid.TransactionID, len(args))
			for i, a := range args {
				x, err := xid.Parse(a)
				if err != nil {
					return scanhint.ConfigError("xid", fmt.Sprintf("%q is not a transaction id", a))
				}
				ids[i] = x
			}

			ctx := cmd.Context()
			src, closer, err := xf.source(ctx, env)
			if err != nil {
				return err
			}
			defer closer.Close()

			enc := xid.NewEncoder(src)
			out := make([]encodedXid, 0, len(ids))
			for _, x := range ids {
				v, err := enc.Encode(ctx, x)
				if err != nil {
					return scanhint.Wrap(scanhint.ErrIO, "encode "+x.String(), err)
				}
				epoch, _ := xid.Decode(v)
				env.Log.Debug().Stringer("xid", x).Uint64("encoded", v).Msg("encoded xid")
				out = append(out, encodedXid{Xid: x, Encoded: v, Epoch: epoch})
			}

			if env.Format() == cliutil.FormatJSON {
				cliutil.PrintJSON(env.Out, out)
				return nil
			}
			for _, e := range out {
				fmt.Fprintf(env.Out, "%d\t%d\t(epoch %d)\n", e.Xid, e.Encoded, e.Epoch)
			}
			return nil
		},
	}
	xf.bind(cmd.Flags())
	return cmd
}
