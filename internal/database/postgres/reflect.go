package postgres

import (
	"context"
	"strings"

	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
)

// schemaMatch resolves an empty schema argument to current_schema().
const schemaMatch = `n.nspname = COALESCE(NULLIF($1, ''), current_schema())`

const relationsSQL = `
	SELECT n.nspname,
	       c.relname,
	       COALESCE(obj_description(c.oid, 'pg_class'), '')
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE ` + schemaMatch + `
	  AND c.relkind IN ('r', 'p', 'v', 'm', 'f')
	ORDER BY c.relname`

const columnsSQL = `
	SELECT c.relname,
	       a.attname,
	       format_type(a.atttypid, a.atttypmod),
	       NOT a.attnotnull,
	       pg_get_expr(d.adbin, d.adrelid),
	       COALESCE(col_description(c.oid, a.attnum), ''),
	       a.attidentity <> '',
	       a.attgenerated <> ''
	FROM pg_attribute a
	JOIN pg_class c ON c.oid = a.attrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
	WHERE ` + schemaMatch + `
	  AND c.relkind IN ('r', 'p', 'v', 'm', 'f')
	  AND a.attnum > 0
	  AND NOT a.attisdropped
	ORDER BY c.relname, a.attnum`

// constraintsSQL yields one row per constrained column, in key order.
const constraintsSQL = `
	SELECT c.relname,
	       con.conname,
	       con.contype::text,
	       a.attname,
	       COALESCE(fn.nspname, ''),
	       COALESCE(fc.relname, ''),
	       COALESCE(fa.attname, ''),
	       con.confupdtype::text,
	       con.confdeltype::text,
	       con.condeferrable,
	       con.condeferred,
	       pg_get_constraintdef(con.oid)
	FROM pg_constraint con
	JOIN pg_class c ON c.oid = con.conrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
	JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
	LEFT JOIN pg_class fc ON fc.oid = con.confrelid
	LEFT JOIN pg_namespace fn ON fn.oid = fc.relnamespace
	LEFT JOIN pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = con.confkey[k.ord]
	WHERE ` + schemaMatch + `
	  AND con.contype IN ('p', 'u', 'f', 'c')
	ORDER BY c.relname, con.conname, k.ord`

// indexesSQL yields one row per indexed column, skipping primary-key indexes.
const indexesSQL = `
	SELECT t.relname,
	       i.relname,
	       ix.indisunique,
	       a.attname
	FROM pg_index ix
	JOIN pg_class t ON t.oid = ix.indrelid
	JOIN pg_class i ON i.oid = ix.indexrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
	JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum
	WHERE ` + schemaMatch + `
	  AND NOT ix.indisprimary
	ORDER BY t.relname, i.relname, k.ord`

const viewsSQL = `
	SELECT c.relname
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE ` + schemaMatch + `
	  AND c.relkind = 'v'
	ORDER BY c.relname`

const matViewsSQL = `
	SELECT c.relname
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE ` + schemaMatch + `
	  AND c.relkind = 'm'
	ORDER BY c.relname`

// Reflector implements database.Reflector over pg_catalog. It only needs a
// database.DB, so it runs on any connection that speaks Postgres SQL.
type Reflector struct {
	db database.DB
}

// NewReflector returns a Reflector issuing catalog queries through db.
func NewReflector(db database.DB) *Reflector {
	return &Reflector{db: db}
}

// ReflectTables issues four catalog queries for the whole schema and groups
// the rows per relation.
func (r *Reflector) ReflectTables(ctx context.Context, schema string) ([]database.ReflectedTable, error) {
	set := database.NewTableSet()

	if err := r.loadRelations(ctx, schema, set); err != nil {
		return nil, err
	}
	if err := r.loadColumns(ctx, schema, set); err != nil {
		return nil, err
	}
	if err := r.loadConstraints(ctx, schema, set); err != nil {
		return nil, err
	}
	if err := r.loadIndexes(ctx, schema, set); err != nil {
		return nil, err
	}

	return set.Tables(), nil
}

// ViewNames lists plain views.
func (r *Reflector) ViewNames(ctx context.Context, schema string) ([]string, error) {
	rows, err := r.db.Query(ctx, viewsSQL, schema)
	if err != nil {
		return nil, err
	}
	return database.ScanStrings(rows)
}

// MaterializedViewNames lists materialized views.
func (r *Reflector) MaterializedViewNames(ctx context.Context, schema string) ([]string, error) {
	rows, err := r.db.Query(ctx, matViewsSQL, schema)
	if err != nil {
		return nil, err
	}
	return database.ScanStrings(rows)
}

// --- catalog loaders ---

func (r *Reflector) loadRelations(ctx context.Context, schema string, set *database.TableSet) error {
	rows, err := r.db.Query(ctx, relationsSQL, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var nsp, name, comment string
		if err := rows.Scan(&nsp, &name, &comment); err != nil {
			return scanError("relation", err)
		}
		set.Add(nsp, name).Comment = comment
	}
	return rows.Err()
}

func (r *Reflector) loadColumns(ctx context.Context, schema string, set *database.TableSet) error {
	rows, err := r.db.Query(ctx, columnsSQL, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table string
			col   database.ReflectedColumn
		)
		if err := rows.Scan(&table, &col.Name, &col.Type, &col.Nullable, &col.Default, &col.Comment,
			&col.Identity, &col.Computed); err != nil {
			return scanError("column", err)
		}
		col.Autoincrement = autoincrement(col.Identity, col.Default)
		set.AddColumn(table, col)
	}
	return rows.Err()
}

func (r *Reflector) loadConstraints(ctx context.Context, schema string, set *database.TableSet) error {
	rows, err := r.db.Query(ctx, constraintsSQL, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                    database.ConstraintRow
			onUpdate, onDelete   string
			deferrable, deferred bool
		)
		if err := rows.Scan(&c.Table, &c.Name, &c.Kind, &c.Column, &c.RefSchema, &c.RefTable, &c.RefColumn,
			&onUpdate, &onDelete, &deferrable, &deferred, &c.Definition); err != nil {
			return scanError("constraint", err)
		}
		if c.Kind == database.ConstraintForeignKey {
			c.OnUpdate = fkAction(onUpdate)
			c.OnDelete = fkAction(onDelete)
			c.Deferrable = &deferrable
			c.Initially = "IMMEDIATE"
			if deferred {
				c.Initially = "DEFERRED"
			}
		}
		set.AddConstraint(c)
	}
	return rows.Err()
}

func (r *Reflector) loadIndexes(ctx context.Context, schema string, set *database.TableSet) error {
	rows, err := r.db.Query(ctx, indexesSQL, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, name, column string
			unique              bool
		)
		if err := rows.Scan(&table, &name, &unique, &column); err != nil {
			return scanError("index", err)
		}
		set.AddIndexColumn(table, name, unique, column)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	set.MarkIndexesKnown()
	return nil
}

// --- helpers ---

// fkAction spells a pg_constraint action code. NO ACTION is the default
// and reads as empty.
func fkAction(code string) string {
	switch code {
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return ""
	}
}

func autoincrement(identity bool, def *string) string {
	if identity || (def != nil && strings.HasPrefix(*def, "nextval(")) {
		return "true"
	}
	return "false"
}

func scanError(what string, err error) *errs.Error {
	return errs.Wrap(errs.ErrKindQueryFailed, "failed to scan "+what+" row", err)
}
