package cliutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nonibytes/scanhint/internal/cliopt"
	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/storage"
	"github.com/nonibytes/scanhint/scanhint/storage/postgres"
	"github.com/nonibytes/scanhint/scanhint/storage/sqlite"
	"github.com/nonibytes/scanhint/scanhint/types"
)

// DefaultSnapshotFile is used when --sqlite-path names a directory.
const DefaultSnapshotFile = "catalog.db"

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatPretty, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatPretty
	}
}

func PrintJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// Env is what every subcommand runs with. The root command fills it before
// any subcommand executes.
type Env struct {
	Opts cliopt.GlobalOptions
	Log  zerolog.Logger
	Out  io.Writer
	Err  io.Writer
}

func (e *Env) Format() OutputFormat { return ParseOutputFormat(e.Opts.Format) }

// ResolveSnapshotPath turns --sqlite-path into a database file: an explicit
// .db path is used as-is, anything else is a directory holding catalog.db.
func ResolveSnapshotPath(g cliopt.GlobalOptions) string {
	p := g.SQLitePath
	if strings.HasSuffix(p, ".db") || strings.Contains(p, "?") || p == ":memory:" {
		return p
	}
	return filepath.Join(p, DefaultSnapshotFile)
}

// Source builds the adapter the global options select.
func Source(g cliopt.GlobalOptions) storage.CatalogSource {
	switch strings.ToLower(g.Backend) {
	case "postgres", "pg":
		return postgres.New(g.PostgresDSN, g.PostgresSchema)
	default:
		return sqlite.NewWithDriver(ResolveSnapshotPath(g), g.SQLiteDriver)
	}
}

// RelationCatalog is a Catalog that can also resolve relation names.
type RelationCatalog interface {
	catalog.Catalog
	RelationOid(ctx context.Context, name string) (types.Oid, error)
}

// OpenCatalog connects to the selected backend. The caller closes the
// returned handle.
func OpenCatalog(ctx context.Context, g cliopt.GlobalOptions) (RelationCatalog, io.Closer, error) {
	src := Source(g)
	if src.Backend() == storage.BackendSQLite {
		if _, err := os.Stat(src.Source()); err != nil {
			return nil, nil, scanhint.Wrap(scanhint.ErrIO,
				fmt.Sprintf("no catalog snapshot at %s (run \"scanhint catalog dump\" first)", src.Source()), err)
		}
	}
	db, err := src.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	rc, ok := src.Catalog(db).(RelationCatalog)
	if !ok {
		_ = db.Close()
		return nil, nil, scanhint.New(scanhint.ErrConfig, fmt.Sprintf("%s catalog cannot resolve relation names", src.Backend()))
	}
	return rc, closerFunc(func() error { return closeAll(db, src) }), nil
}

// ResolveRelation accepts a numeric oid or a relation name.
func ResolveRelation(ctx context.Context, c RelationCatalog, ref string) (types.Oid, error) {
	if oid, err := types.ParseOid(ref); err == nil {
		return oid, nil
	}
	oid, err := c.RelationOid(ctx, ref)
	if err != nil {
		return types.InvalidOid, err
	}
	if !oid.IsValid() {
		return types.InvalidOid, scanhint.New(scanhint.ErrCatalog, fmt.Sprintf("relation %q not found", ref))
	}
	return oid, nil
}

// ReadInput reads a file, or stdin when path is "-".
func ReadInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, scanhint.Wrap(scanhint.ErrIO, "open "+path, err)
	}
	return f, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func closeAll(db *sql.DB, a storage.Adapter) error {
	err := db.Close()
	if aerr := a.Close(); err == nil {
		err = aerr
	}
	return err
}
