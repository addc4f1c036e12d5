package commands

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nonibytes/scanhint/internal/cliutil"
	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/plan"
	"github.com/nonibytes/scanhint/scanhint/request"
	"github.com/nonibytes/scanhint/scanhint/xid"
)

type analyzeFlags struct {
	planFile string
	scan     string
	rel      string
	query    string
	size     uint64
	snapshot string
	xf       xidFlags
}

type directiveView struct {
	Scan      string  `json:"scan"`
	Matched   bool    `json:"matched"`
	Limit     *uint64 `json:"limit,omitempty"`
	SortField *string `json:"sort_field,omitempty"`
	ScoreSort bool    `json:"score_sort,omitempty"`
	Direction string  `json:"direction,omitempty"`
}

func NewAnalyzeCommand(env *cliutil.Env) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze --plan <file> --rel <relation>",
		Short: "Find the limit and sort a plan lets an index scan push down",
		Long: `Reads a plan document and reports the row limit and sort order that bind
to one index scan in it. With --query the output is the search request the
scan would send instead.

--scan may be omitted when the plan holds exactly one identified index scan.
--rel is the heap relation the scan reads, as an oid or a name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), env, &f, cmd.Flags().Changed("query"))
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.planFile, "plan", "p", "-", "plan document, - for stdin")
	fs.StringVarP(&f.scan, "scan", "s", "", "scan id of the index scan")
	fs.StringVarP(&f.rel, "rel", "r", "", "heap relation oid or name")
	fs.StringVarP(&f.query, "query", "q", "", "engine query text; prints a search request")
	fs.Uint64Var(&f.size, "size", 0, "request size when no limit binds")
	fs.StringVar(&f.snapshot, "snapshot", "", "visibility snapshot xmin:xmax:xip,... to attach to the request")
	f.xf.bind(fs)
	_ = cmd.MarkFlagRequired("rel")
	return cmd
}

func runAnalyze(ctx context.Context, env *cliutil.Env, f *analyzeFlags, wantRequest bool) error {
	in, err := cliutil.ReadInput(f.planFile)
	if err != nil {
		return err
	}
	stmt, err := plan.Decode(in)
	_ = in.Close()
	if err != nil {
		return scanhint.Wrap(scanhint.ErrPlanDecode, "read plan "+f.planFile, err)
	}

	scan, err := pickScan(stmt, f.scan)
	if err != nil {
		return err
	}

	cat, closer, err := cliutil.OpenCatalog(ctx, env.Opts)
	if err != nil {
		return err
	}
	defer closer.Close()
	rel, err := cliutil.ResolveRelation(ctx, cat, f.rel)
	if err != nil {
		return err
	}

	a := scanhint.NewAnalyzer(scanhint.Options{Catalog: cat, Logger: env.Log})
	d, err := a.FindPushdown(ctx, scan, stmt, rel)
	if err != nil {
		return err
	}

	if wantRequest {
		return printRequest(ctx, env, f, d)
	}
	view := directiveView{Scan: scan.String(), Matched: d != nil}
	if d != nil {
		view.Limit = d.RowLimit
		view.SortField = d.SortField
		view.ScoreSort = d.ScoreSort
		if d.Sorted() {
			view.Direction = d.Direction.String()
		}
	}
	if env.Format() == cliutil.FormatJSON {
		cliutil.PrintJSON(env.Out, view)
		return nil
	}
	printDirective(env, d)
	return nil
}

func printRequest(ctx context.Context, env *cliutil.Env, f *analyzeFlags, d *scanhint.Directive) error {
	opts := request.Options{DefaultSize: f.size}
	if f.snapshot != "" {
		snap, err := xid.ParseSnapshot(f.snapshot)
		if err != nil {
			return scanhint.ConfigError("snapshot", err.Error())
		}
		src, closer, err := f.xf.source(ctx, env)
		if err != nil {
			return err
		}
		defer closer.Close()
		opts.Snapshot = &snap
		opts.Encoder = xid.NewEncoder(src)
	}
	req, err := request.Build(ctx, f.query, d, opts)
	if err != nil {
		return err
	}
	cliutil.PrintJSON(env.Out, req)
	return nil
}

func printDirective(env *cliutil.Env, d *scanhint.Directive) {
	if d == nil {
		fmt.Fprintln(env.Out, "nothing binds to the scan")
		return
	}
	if d.RowLimit != nil {
		fmt.Fprintf(env.Out, "limit:  %s rows\n", formatCount(*d.RowLimit))
	}
	switch {
	case d.ScoreSort:
		fmt.Fprintf(env.Out, "sort:   %s %s (relevance)\n", scanhint.ScoreColumn, d.Direction)
	case d.SortField != nil:
		fmt.Fprintf(env.Out, "sort:   %s %s\n", *d.SortField, d.Direction)
	}
}

func formatCount(n uint64) string {
	if n > math.MaxInt64 {
		return strconv.FormatUint(n, 10)
	}
	return humanize.Comma(int64(n))
}

// pickScan parses ref, or finds the only identified index scan in stmt when
// ref is empty.
func pickScan(stmt *plan.Statement, ref string) (scanhint.ScanID, error) {
	if ref != "" {
		id, err := plan.ParseScanID(ref)
		if err != nil {
			return scanhint.ScanID{}, scanhint.ConfigError("scan", err.Error())
		}
		return id, nil
	}
	var found []scanhint.ScanID
	_ = plan.Walk(stmt.Root, func(n plan.Node) error {
		if s, ok := n.(*plan.IndexScan); ok && !s.Scan.IsZero() {
			found = append(found, s.Scan)
		}
		return nil
	})
	if len(found) != 1 {
		return scanhint.ScanID{}, scanhint.ConfigError("scan",
			fmt.Sprintf("plan holds %d identified index scans; pass --scan", len(found)))
	}
	return found[0], nil
}
