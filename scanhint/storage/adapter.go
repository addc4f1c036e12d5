package storage

import (
	"context"
	"database/sql"

	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Adapter abstracts database-specific connection handling.
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	// Source names the database for logs and snapshot metadata.
	Source() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error
}

// CatalogSource is a backend that can serve catalog lookups from an open
// connection.
type CatalogSource interface {
	Adapter
	Catalog(db *sql.DB) catalog.Catalog
}
