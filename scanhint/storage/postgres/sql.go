package postgres

// Oids are cast to int8 so they scan into int64 through database/sql.
const (
	sqlAttNum = `SELECT attnum::int4 FROM pg_catalog.pg_attribute
	             WHERE attrelid = $1 AND attname = $2 AND attnum > 0 AND NOT attisdropped`

	sqlAttType = `SELECT atttypid::int8 FROM pg_catalog.pg_attribute
	              WHERE attrelid = $1 AND attnum = $2 AND NOT attisdropped`

	// varlena types with an element type are arrays
	sqlElementType = `SELECT typelem::int8 FROM pg_catalog.pg_type
	                  WHERE oid = $1 AND typlen = -1 AND typelem <> 0`

	// Default btree opclass of the type, or of a binary-coercible type when
	// the type has none of its own (varchar sorts with text's operators).
	sqlOperators = `WITH cls AS (
	    SELECT oc.opcfamily, oc.opcintype
	      FROM pg_catalog.pg_opclass oc
	      JOIN pg_catalog.pg_am am ON am.oid = oc.opcmethod
	     WHERE am.amname = 'btree' AND oc.opcdefault
	       AND (oc.opcintype = $1::oid OR EXISTS (
	             SELECT 1 FROM pg_catalog.pg_cast c
	              WHERE c.castsource = $1::oid AND c.casttarget = oc.opcintype AND c.castmethod = 'b'))
	     ORDER BY (oc.opcintype = $1::oid) DESC
	     LIMIT 1)
	SELECT COALESCE(MAX(ao.amopopr) FILTER (WHERE ao.amopstrategy = 1), 0)::int8,
	       COALESCE(MAX(ao.amopopr) FILTER (WHERE ao.amopstrategy = 5), 0)::int8
	  FROM cls
	  JOIN pg_catalog.pg_amop ao ON ao.amopfamily = cls.opcfamily
	   AND ao.amoplefttype = cls.opcintype AND ao.amoprighttype = cls.opcintype`

	sqlRelationOid = `SELECT to_regclass($1)::oid::int8`

	// first unassigned transaction id, widened with its epoch
	sqlNextXid = `SELECT txid_snapshot_xmax(txid_current_snapshot())::int8`

	sqlRelationsIn = `SELECT oid::int8, relname FROM pg_catalog.pg_class WHERE oid IN `

	sqlColumnsIn = `SELECT attrelid::int8, attname, attnum::int4, atttypid::int8
	                  FROM pg_catalog.pg_attribute
	                 WHERE attnum > 0 AND NOT attisdropped AND attrelid IN `

	sqlTypesIn = `SELECT oid::int8, typname,
	                     (CASE WHEN typlen = -1 THEN typelem ELSE 0 END)::int8
	                FROM pg_catalog.pg_type WHERE oid IN `
)
