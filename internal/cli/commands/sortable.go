package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nonibytes/scanhint/internal/cliutil"
	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/sortability"
	"github.com/nonibytes/scanhint/scanhint/types"
)

type sortableVerdict struct {
	Type     string               `json:"type"`
	Oid      types.Oid            `json:"oid"`
	BaseType string               `json:"base_type"`
	Category sortability.Category `json:"category"`
	Sortable bool                 `json:"sortable"`
}

func NewSortableCommand(env *cliutil.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "sortable <type>...",
		Short: "Report whether a sort on a column of each type can be pushed down",
		Long: `Types are built-in names ("int4", "text[]", "character varying") or
numeric oids. Arrays are judged by their element type.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			builtins := catalog.NewStatic()
			out := make([]sortableVerdict, 0, len(args))
			for _, a := range args {
				typ, ok := types.TypeByName(a)
				if !ok {
					return scanhint.ConfigError("type", fmt.Sprintf("unknown type %q", a))
				}
				base, err := catalog.BaseType(ctx, builtins, typ)
				if err != nil {
					return err
				}
				cat := sortability.CategoryOf(base)
				out = append(out, sortableVerdict{
					Type:     a,
					Oid:      typ,
					BaseType: types.TypeName(base),
					Category: cat,
					Sortable: sortability.IsSortable(cat),
				})
			}

			if env.Format() == cliutil.FormatJSON {
				cliutil.PrintJSON(env.Out, out)
				return nil
			}
			for _, v := range out {
				verdict := "sortable"
				if !v.Sortable {
					verdict = "not sortable"
				}
				fmt.Fprintf(env.Out, "%s\t%s (%s)\t%s\n", v.Type, v.BaseType, v.Category, verdict)
			}
			return nil
		},
	}
}
