package mysql

import (
	"context"
	"strings"

	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
)

// schemaMatch resolves an empty schema argument to the connection database.
const schemaMatch = `COALESCE(NULLIF(?, ''), DATABASE())`

const tablesSQL = `
	SELECT table_schema,
	       table_name,
	       CASE WHEN table_type = 'VIEW' THEN '' ELSE COALESCE(table_comment, '') END
	FROM information_schema.tables
	WHERE table_schema = ` + schemaMatch + `
	  AND table_type IN ('BASE TABLE', 'VIEW', 'SYSTEM VIEW')
	ORDER BY table_name`

const columnsSQL = `
	SELECT table_name,
	       column_name,
	       column_type,
	       is_nullable = 'YES',
	       column_default,
	       COALESCE(column_comment, ''),
	       COALESCE(extra, '')
	FROM information_schema.columns
	WHERE table_schema = ` + schemaMatch + `
	ORDER BY table_name, ordinal_position`

// constraintsSQL yields one row per constrained column, in key order.
// CHECK constraints carry no column mapping in information_schema and are
// not reflected.
const constraintsSQL = `
	SELECT kcu.table_name,
	       kcu.constraint_name,
	       tc.constraint_type,
	       kcu.column_name,
	       COALESCE(kcu.referenced_table_schema, ''),
	       COALESCE(kcu.referenced_table_name, ''),
	       COALESCE(kcu.referenced_column_name, ''),
	       COALESCE(rc.update_rule, ''),
	       COALESCE(rc.delete_rule, '')
	FROM information_schema.key_column_usage kcu
	JOIN information_schema.table_constraints tc
	  ON tc.constraint_schema = kcu.constraint_schema
	 AND tc.table_name = kcu.table_name
	 AND tc.constraint_name = kcu.constraint_name
	LEFT JOIN information_schema.referential_constraints rc
	  ON rc.constraint_schema = kcu.constraint_schema
	 AND rc.table_name = kcu.table_name
	 AND rc.constraint_name = kcu.constraint_name
	WHERE kcu.table_schema = ` + schemaMatch + `
	  AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
	ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`

// indexesSQL skips the PRIMARY index and expression parts.
const indexesSQL = `
	SELECT table_name,
	       index_name,
	       non_unique = 0,
	       column_name
	FROM information_schema.statistics
	WHERE table_schema = ` + schemaMatch + `
	  AND index_name <> 'PRIMARY'
	  AND column_name IS NOT NULL
	ORDER BY table_name, index_name, seq_in_index`

const viewsSQL = `
	SELECT table_name
	FROM information_schema.views
	WHERE table_schema = ` + schemaMatch + `
	ORDER BY table_name`

// Reflector implements database.Reflector over information_schema.
type Reflector struct {
	db database.DB
}

// NewReflector returns a Reflector issuing catalog queries through db.
func NewReflector(db database.DB) *Reflector {
	return &Reflector{db: db}
}

// ReflectTables issues four information_schema queries and groups the rows
// per table.
func (r *Reflector) ReflectTables(ctx context.Context, schema string) ([]database.ReflectedTable, error) {
	set := database.NewTableSet()

	if err := r.loadTables(ctx, schema, set); err != nil {
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

// ViewNames lists views.
func (r *Reflector) ViewNames(ctx context.Context, schema string) ([]string, error) {
	rows, err := r.db.Query(ctx, viewsSQL, schema)
	if err != nil {
		return nil, err
	}
	return database.ScanStrings(rows)
}

// MaterializedViewNames always fails: MySQL has no materialized views.
func (r *Reflector) MaterializedViewNames(context.Context, string) ([]string, error) {
	return nil, errs.New(errs.ErrKindUnsupported, "mysql does not support materialized views")
}

// --- catalog loaders ---

func (r *Reflector) loadTables(ctx context.Context, schema string, set *database.TableSet) error {
	rows, err := r.db.Query(ctx, tablesSQL, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var db, name, comment string
		if err := rows.Scan(&db, &name, &comment); err != nil {
			return scanError("table", err)
		}
		set.Add(db, name).Comment = comment
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
			table, extra string
			col          database.ReflectedColumn
		)
		if err := rows.Scan(&table, &col.Name, &col.Type, &col.Nullable, &col.Default, &col.Comment, &extra); err != nil {
			return scanError("column", err)
		}
		extra = strings.ToLower(extra)
		col.Autoincrement = "false"
		if strings.Contains(extra, "auto_increment") {
			col.Autoincrement = "true"
		}
		col.Computed = strings.Contains(extra, "virtual generated") || strings.Contains(extra, "stored generated")
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
			c                  database.ConstraintRow
			kind               string
			onUpdate, onDelete string
		)
		if err := rows.Scan(&c.Table, &c.Name, &kind, &c.Column, &c.RefSchema, &c.RefTable, &c.RefColumn,
			&onUpdate, &onDelete); err != nil {
			return scanError("constraint", err)
		}
		switch kind {
		case "PRIMARY KEY":
			c.Kind = database.ConstraintPrimaryKey
		case "UNIQUE":
			c.Kind = database.ConstraintUnique
		case "FOREIGN KEY":
			c.Kind = database.ConstraintForeignKey
			c.OnUpdate = fkAction(onUpdate)
			c.OnDelete = fkAction(onDelete)
		default:
			continue
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

// fkAction drops the NO ACTION default.
func fkAction(rule string) string {
	if strings.EqualFold(rule, "NO ACTION") {
		return ""
	}
	return strings.ToUpper(rule)
}

func scanError(what string, err error) *errs.Error {
	return errs.Wrap(errs.ErrKindQueryFailed, "failed to scan "+what+" row", err)
}
