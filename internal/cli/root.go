package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/nonibytes/scanhint/internal/cli/commands"
	"github.com/nonibytes/scanhint/internal/cliopt"
	"github.com/nonibytes/scanhint/internal/cliutil"
	"github.com/nonibytes/scanhint/internal/logging"
	"github.com/nonibytes/scanhint/scanhint"
)

const rootLong = `scanhint finds the row limit and sort order an executor plan lets one index
scan hand to an external search engine, and widens transaction ids into
wraparound-safe tokens for that engine.

Catalog lookups come from a sqlite snapshot (default) or a live postgres
database. Every global flag can also be set through SCANHINT_<FLAG>, for
example SCANHINT_PG_DSN.`

// NewRootCommand builds the command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	env := &cliutil.Env{Opts: cliopt.DefaultGlobalOptions(), Out: out, Err: errOut}
	root := &cobra.Command{
		Use:           "scanhint",
		Short:         "Plan pushdown analysis for search-engine backed index scans",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cliopt.Load(cmd.Root().PersistentFlags(), &env.Opts); err != nil {
				return err
			}
			log, err := logging.NewLogger(logging.Config{
				Level:  env.Opts.LogLevel,
				Format: env.Opts.LogFormat,
				Out:    errOut,
			})
			if err != nil {
				return scanhint.Wrap(scanhint.ErrConfig, "configure logging", err)
			}
			env.Log = log
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	cliopt.BindGlobalFlags(root.PersistentFlags(), &env.Opts)

	root.AddCommand(
		commands.NewAnalyzeCommand(env),
		commands.NewEncodeXidCommand(env),
		commands.NewCatalogCommand(env),
		commands.NewSortableCommand(env),
	)
	return root
}

// Execute runs the CLI and returns an exit code: 0 on success, 2 for usage
// and configuration errors, 1 otherwise.
func Execute(ctx context.Context, argv []string) int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(argv)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	if scanhint.IsKind(err, scanhint.ErrConfig) || isUsage(err) {
		return 2
	}
	return 1
}

func isUsage(err error) bool {
	var e *scanhint.Error
	return !errors.As(err, &e) && !errors.IsAssertionFailure(err)
}
