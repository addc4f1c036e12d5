package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/storage"
	"github.com/nonibytes/scanhint/scanhint/storage/sqlbuilder"
)

type Adapter struct {
	DSN string
	// Schema is put first on the search_path when set; relation names given
	// to RelationOid resolve against it.
	Schema string
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

var (
	_ storage.CatalogSource = (*Adapter)(nil)
)

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (a *Adapter) Source() string {
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return "postgres"
	}
	return fmt.Sprintf("postgres://%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
}

func (a *Adapter) Close() error { return nil }

func (a *Adapter) Catalog(db *sql.DB) catalog.Catalog { return NewCatalog(db) }

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	// ident is validated to contain no quotes; safe to wrap
	return `"` + ident + `"`
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, scanhint.Wrap(scanhint.ErrConfig, "parse postgres dsn", err)
	}
	if a.Schema != "" {
		if !schemaNameRe.MatchString(a.Schema) {
			return nil, scanhint.ConfigError("schema",
				fmt.Sprintf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String()))
		}
		if cfg.RuntimeParams == nil {
			cfg.RuntimeParams = make(map[string]string)
		}
		// pg_catalog stays implicitly first; public is kept as a fallback.
		cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))
	}

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, scanhint.Wrap(scanhint.ErrSQL, "connect to postgres", err)
	}
	return db, nil
}
