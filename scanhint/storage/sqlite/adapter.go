package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/storage"
	"github.com/nonibytes/scanhint/scanhint/storage/sqlbuilder"
)

// Driver names registered by the two supported drivers.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

var _ storage.CatalogSource = (*Adapter)(nil)

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

func (a *Adapter) Source() string {
	return a.Path
}

// dsnParams sets the busy timeout and foreign keys in each driver's syntax.
func (a *Adapter) dsnParams() string {
	if a.DriverName == DriverMattn {
		return "_busy_timeout=5000&_foreign_keys=on"
	}
	return "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := a.Path
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?" + a.dsnParams()
	} else {
		dsn = dsn + "&" + a.dsnParams()
	}
	db, err := sql.Open(a.DriverName, dsn)
	if err != nil {
		return nil, scanhint.Wrap(scanhint.ErrConfig, "open sqlite with driver "+a.DriverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, scanhint.Wrap(scanhint.ErrIO, "open "+a.Path, err)
	}
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) Catalog(db *sql.DB) catalog.Catalog {
	return NewCatalog(db)
}
