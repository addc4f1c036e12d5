package commands

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nonibytes/scanhint/internal/cliutil"
	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/storage/postgres"
	"github.com/nonibytes/scanhint/scanhint/storage/sqlite"
	"github.com/nonibytes/scanhint/scanhint/types"
)

func NewCatalogCommand(env *cliutil.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage offline catalog snapshots",
	}
	cmd.AddCommand(newCatalogDumpCommand(env), newCatalogShowCommand(env))
	return cmd
}

func openSnapshot(cmd *cobra.Command, env *cliutil.Env) (*sqlite.Store, string, error) {
	path := cliutil.ResolveSnapshotPath(env.Opts)
	s, err := sqlite.Open(cmd.Context(), sqlite.NewWithDriver(path, env.Opts.SQLiteDriver))
	return s, path, err
}

func newCatalogDumpCommand(env *cliutil.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <relation>...",
		Short: "Copy relation and type metadata from postgres into the sqlite snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if env.Opts.PostgresDSN == "" {
				return scanhint.ConfigError("pg-dsn", "catalog dump reads from postgres; set --pg-dsn")
			}
			pg := postgres.New(env.Opts.PostgresDSN, env.Opts.PostgresSchema)
			db, err := pg.Connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			live := postgres.NewCatalog(db)

			rels := make([]types.Oid, 0, len(args))
			for _, a := range args {
				oid, err := cliutil.ResolveRelation(ctx, live, a)
				if err != nil {
					return err
				}
				rels = append(rels, oid)
			}
			snap, err := live.Snapshot(ctx, rels...)
			if err != nil {
				return err
			}

			store, path, err := openSnapshot(cmd, env)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Save(ctx, snap); err != nil {
				return err
			}
			if err := store.SetMeta(ctx, sqlite.MetaSource, pg.Source()); err != nil {
				return err
			}

			cols := 0
			for _, r := range snap.Relations {
				cols += len(r.Columns)
			}
			env.Log.Info().Str("path", path).Int("relations", len(snap.Relations)).Msg("catalog snapshot saved")
			fmt.Fprintf(env.Out, "saved %d relation(s), %s column(s), %d type(s) to %s\n",
				len(snap.Relations), humanize.Comma(int64(cols)), len(snap.Types), path)
			return nil
		},
	}
}

type snapshotSummary struct {
	Path      string            `json:"path"`
	Source    string            `json:"source,omitempty"`
	SavedAt   string            `json:"saved_at,omitempty"`
	Relations []relationSummary `json:"relations"`
	Types     int               `json:"types"`
}

type relationSummary struct {
	Oid     types.Oid `json:"oid"`
	Name    string    `json:"name"`
	Columns int       `json:"columns"`
}

func newCatalogShowCommand(env *cliutil.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List what the sqlite snapshot holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, path, err := openSnapshot(cmd, env)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.Load(ctx)
			if err != nil {
				return err
			}
			sum := snapshotSummary{Path: path, Types: len(snap.Types), Relations: []relationSummary{}}
			if sum.Source, err = store.Meta(ctx, sqlite.MetaSource); err != nil {
				return err
			}
			if sum.SavedAt, err = store.Meta(ctx, sqlite.MetaSavedAt); err != nil {
				return err
			}
			for _, r := range snap.Relations {
				sum.Relations = append(sum.Relations, relationSummary{Oid: r.Oid, Name: r.Name, Columns: len(r.Columns)})
			}

			if env.Format() == cliutil.FormatJSON {
				cliutil.PrintJSON(env.Out, sum)
				return nil
			}
			fmt.Fprintf(env.Out, "snapshot %s\n", path)
			if sum.Source != "" {
				fmt.Fprintf(env.Out, "  source: %s\n", sum.Source)
			}
			if t, err := time.Parse(time.RFC3339, sum.SavedAt); err == nil {
				fmt.Fprintf(env.Out, "  saved:  %s\n", humanize.Time(t))
			}
			for _, r := range sum.Relations {
				fmt.Fprintf(env.Out, "  %s\toid %d\t%d column(s)\n", r.Name, r.Oid, r.Columns)
			}
			fmt.Fprintf(env.Out, "  %d user type(s)\n", sum.Types)
			return nil
		},
	}
}
