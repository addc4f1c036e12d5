package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/catalog"
	"github.com/nonibytes/scanhint/scanhint/types"
)

const (
	metaMagic   = "scanhint_magic"
	metaVersion = "scanhint_version"

	// MetaSource records where a snapshot was taken from.
	MetaSource = "source"
	// MetaSavedAt is the RFC 3339 time of the last Save.
	MetaSavedAt = "saved_at"
)

// Store keeps catalog snapshots in a SQLite file so plans can be analysed
// without the database they came from.
type Store struct {
	db  *sql.DB
	Now func() time.Time
}

// Open connects and creates the snapshot tables when missing.
func Open(ctx context.Context, a *Adapter) (*Store, error) {
	db, err := a.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		_ = db.Close()
		return nil, scanhint.Wrap(scanhint.ErrSQL, "create snapshot tables", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")

	s := &Store{db: db, Now: time.Now}
	var magic string
	err = db.QueryRowContext(ctx, sqlGetMeta, metaMagic).Scan(&magic)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := s.SetMeta(ctx, metaMagic, "scanhint"); err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := s.SetMeta(ctx, metaVersion, "1"); err != nil {
			_ = db.Close()
			return nil, err
		}
	case err != nil:
		_ = db.Close()
		return nil, scanhint.Wrap(scanhint.ErrSQL, "read snapshot meta", err)
	case magic != "scanhint":
		_ = db.Close()
		return nil, scanhint.New(scanhint.ErrIO, fmt.Sprintf("%s is not a scanhint snapshot", a.Path))
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Catalog serves lookups from the stored snapshot.
func (s *Store) Catalog() *Catalog { return NewCatalog(s.db) }

func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, sqlSetMeta, key, value); err != nil {
		return scanhint.Wrap(scanhint.ErrSQL, "set meta "+key, err)
	}
	return nil
}

// Meta returns a metadata value, or "" when unset.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, sqlGetMeta, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", scanhint.Wrap(scanhint.ErrSQL, "get meta "+key, err)
	}
	return v, nil
}

// Save merges snap into the store. A saved relation replaces all columns
// previously stored for it.
func (s *Store) Save(ctx context.Context, snap catalog.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return scanhint.Wrap(scanhint.ErrSQL, "begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, r := range snap.Relations {
		if _, err = tx.ExecContext(ctx, sqlUpsertRelation, int64(r.Oid), r.Name); err != nil {
			return scanhint.Wrap(scanhint.ErrSQL, "save relation "+r.Name, err)
		}
		if _, err = tx.ExecContext(ctx, sqlDeleteColumns, int64(r.Oid)); err != nil {
			return scanhint.Wrap(scanhint.ErrSQL, "clear columns of "+r.Name, err)
		}
		for _, c := range r.Columns {
			if _, err = tx.ExecContext(ctx, sqlInsertColumn, int64(r.Oid), int64(c.AttNum), c.Name, int64(c.Type)); err != nil {
				return scanhint.Wrap(scanhint.ErrSQL, fmt.Sprintf("save column %s.%s", r.Name, c.Name), err)
			}
		}
	}
	for _, t := range snap.Types {
		if _, err = tx.ExecContext(ctx, sqlUpsertType, int64(t.Oid), t.Name, int64(t.Elem), int64(t.Lt), int64(t.Gt)); err != nil {
			return scanhint.Wrap(scanhint.ErrSQL, "save type "+t.Name, err)
		}
	}
	if _, err = tx.ExecContext(ctx, sqlSetMeta, MetaSavedAt, s.Now().UTC().Format(time.RFC3339)); err != nil {
		return scanhint.Wrap(scanhint.ErrSQL, "stamp snapshot", err)
	}
	if err = tx.Commit(); err != nil {
		return scanhint.Wrap(scanhint.ErrSQL, "commit", err)
	}
	return nil
}

// Load reads the whole stored snapshot back.
func (s *Store) Load(ctx context.Context) (catalog.Snapshot, error) {
	var snap catalog.Snapshot
	byOid := map[types.Oid]int{}

	rows, err := s.db.QueryContext(ctx, sqlListRelations)
	if err != nil {
		return snap, scanhint.Wrap(scanhint.ErrSQL, "list relations", err)
	}
	for rows.Next() {
		var oid int64
		var name string
		if err := rows.Scan(&oid, &name); err != nil {
			_ = rows.Close()
			return snap, scanhint.Wrap(scanhint.ErrSQL, "scan relation", err)
		}
		byOid[types.Oid(oid)] = len(snap.Relations)
		snap.Relations = append(snap.Relations, catalog.Relation{Oid: types.Oid(oid), Name: name})
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	rows, err = s.db.QueryContext(ctx, sqlListColumns)
	if err != nil {
		return snap, scanhint.Wrap(scanhint.ErrSQL, "list columns", err)
	}
	for rows.Next() {
		var rel, attnum, typ int64
		var name string
		if err := rows.Scan(&rel, &attnum, &name, &typ); err != nil {
			_ = rows.Close()
			return snap, scanhint.Wrap(scanhint.ErrSQL, "scan column", err)
		}
		i, ok := byOid[types.Oid(rel)]
		if !ok {
			continue
		}
		snap.Relations[i].Columns = append(snap.Relations[i].Columns,
			catalog.Column{Name: name, AttNum: types.AttrNumber(attnum), Type: types.Oid(typ)})
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	rows, err = s.db.QueryContext(ctx, sqlListTypes)
	if err != nil {
		return snap, scanhint.Wrap(scanhint.ErrSQL, "list types", err)
	}
	for rows.Next() {
		var oid, elem, lt, gt int64
		var name string
		if err := rows.Scan(&oid, &name, &elem, &lt, &gt); err != nil {
			_ = rows.Close()
			return snap, scanhint.Wrap(scanhint.ErrSQL, "scan type", err)
		}
		snap.Types = append(snap.Types, catalog.Type{
			Oid: types.Oid(oid), Name: name, Elem: types.Oid(elem), Lt: types.Oid(lt), Gt: types.Oid(gt),
		})
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}
	return snap, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return scanhint.Wrap(scanhint.ErrSQL, "iterate rows", err)
	}
	return rows.Close()
}
