package sqlite

const ddlBase = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS relations (
  oid  INTEGER PRIMARY KEY,
  name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS columns (
  relid    INTEGER NOT NULL REFERENCES relations(oid) ON DELETE CASCADE,
  attnum   INTEGER NOT NULL,
  name     TEXT NOT NULL,
  type_oid INTEGER NOT NULL,
  PRIMARY KEY (relid, attnum)
);

CREATE UNIQUE INDEX IF NOT EXISTS columns_by_name ON columns(relid, name);

CREATE TABLE IF NOT EXISTS types (
  oid    INTEGER PRIMARY KEY,
  name   TEXT NOT NULL,
  elem   INTEGER NOT NULL DEFAULT 0,
  lt_opr INTEGER NOT NULL DEFAULT 0,
  gt_opr INTEGER NOT NULL DEFAULT 0
);
`

const (
	sqlGetMeta = "SELECT value FROM meta WHERE key = ?"
	sqlSetMeta = "INSERT INTO meta(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"

	sqlUpsertRelation = `INSERT INTO relations(oid, name) VALUES(?, ?)
	                     ON CONFLICT(oid) DO UPDATE SET name = excluded.name`
	sqlDeleteColumns = "DELETE FROM columns WHERE relid = ?"
	sqlInsertColumn  = "INSERT INTO columns(relid, attnum, name, type_oid) VALUES(?, ?, ?, ?)"
	sqlUpsertType    = `INSERT INTO types(oid, name, elem, lt_opr, gt_opr) VALUES(?, ?, ?, ?, ?)
	                    ON CONFLICT(oid) DO UPDATE SET name = excluded.name, elem = excluded.elem,
	                      lt_opr = excluded.lt_opr, gt_opr = excluded.gt_opr`

	sqlAttNum      = "SELECT attnum FROM columns WHERE relid = ? AND name = ?"
	sqlAttType     = "SELECT type_oid FROM columns WHERE relid = ? AND attnum = ?"
	sqlElementType = "SELECT elem FROM types WHERE oid = ?"
	sqlOperators   = "SELECT lt_opr, gt_opr FROM types WHERE oid = ?"
	sqlRelationOid = "SELECT oid FROM relations WHERE name = ?"

	sqlListRelations = "SELECT oid, name FROM relations ORDER BY oid"
	sqlListColumns   = "SELECT relid, attnum, name, type_oid FROM columns ORDER BY relid, attnum"
	sqlListTypes     = "SELECT oid, name, elem, lt_opr, gt_opr FROM types ORDER BY oid"
)
