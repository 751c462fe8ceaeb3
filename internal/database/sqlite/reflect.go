package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
)

// defaultSchema is the schema name of the primary database file.
const defaultSchema = "main"

// The catalog queries join sqlite_master with the table-valued pragma
// functions. The schema is bound as the pragma's last argument, but
// sqlite_master itself has to be qualified by name.
const (
	tablesSQL = `
	SELECT name
	FROM %s.sqlite_master
	WHERE type IN ('table', 'view')
	  AND name NOT LIKE 'sqlite_%%'
	ORDER BY name`

	columnsSQL = `
	SELECT m.name,
	       p.name,
	       p.type,
	       p."notnull" = 0,
	       p.dflt_value,
	       p.pk,
	       p.hidden
	FROM %s.sqlite_master m
	JOIN pragma_table_xinfo(m.name, ?) p
	WHERE m.type IN ('table', 'view')
	  AND m.name NOT LIKE 'sqlite_%%'
	ORDER BY m.name, p.cid`

	// A key declared without parent columns references the parent's primary
	// key; "to" is NULL then and the column comes from the parent's table_info.
	foreignKeysSQL = `
	SELECT m.name,
	       p.id,
	       p."from",
	       p."table",
	       COALESCE(p."to", pk.name, ''),
	       p.on_update,
	       p.on_delete
	FROM %s.sqlite_master m
	JOIN pragma_foreign_key_list(m.name, ?) p
	LEFT JOIN pragma_table_info(p."table", ?) pk
	       ON p."to" IS NULL AND pk.pk = p.seq + 1
	WHERE m.type = 'table'
	  AND m.name NOT LIKE 'sqlite_%%'
	ORDER BY m.name, p.id, p.seq`

	// indexesSQL skips the implicit primary-key index and expression parts.
	indexesSQL = `
	SELECT m.name,
	       il.name,
	       il."unique",
	       il.origin,
	       ii.name
	FROM %s.sqlite_master m
	JOIN pragma_index_list(m.name, ?) il
	JOIN pragma_index_info(il.name, ?) ii
	WHERE m.type = 'table'
	  AND m.name NOT LIKE 'sqlite_%%'
	  AND il.origin <> 'pk'
	  AND ii.name IS NOT NULL
	ORDER BY m.name, il.name, ii.seqno`

	viewsSQL = `
	SELECT name
	FROM %s.sqlite_master
	WHERE type = 'view'
	ORDER BY name`
)

// Reflector implements database.Reflector over sqlite_master and PRAGMAs.
type Reflector struct {
	db database.DB
}

// NewReflector returns a Reflector issuing catalog queries through db.
func NewReflector(db database.DB) *Reflector {
	return &Reflector{db: db}
}

// ReflectTables reads every table and view of schema ("main" when empty).
func (r *Reflector) ReflectTables(ctx context.Context, schema string) ([]database.ReflectedTable, error) {
	schema = resolve(schema)
	set := database.NewTableSet()

	if err := r.loadTables(ctx, schema, set); err != nil {
		return nil, err
	}
	if err := r.loadColumns(ctx, schema, set); err != nil {
		return nil, err
	}
	if err := r.loadForeignKeys(ctx, schema, set); err != nil {
		return nil, err
	}
	if err := r.loadIndexes(ctx, schema, set); err != nil {
		return nil, err
	}

	return set.Tables(), nil
}

// ViewNames lists views.
func (r *Reflector) ViewNames(ctx context.Context, schema string) ([]string, error) {
	rows, err := r.db.Query(ctx, qualify(viewsSQL, resolve(schema)))
	if err != nil {
		return nil, err
	}
	return database.ScanStrings(rows)
}

// MaterializedViewNames always fails: SQLite has no materialized views.
func (r *Reflector) MaterializedViewNames(context.Context, string) ([]string, error) {
	return nil, errs.New(errs.ErrKindUnsupported, "sqlite does not support materialized views")
}

// --- catalog loaders ---

func (r *Reflector) loadTables(ctx context.Context, schema string, set *database.TableSet) error {
	rows, err := r.db.Query(ctx, qualify(tablesSQL, schema))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return scanError("table", err)
		}
		set.Add(schema, name)
	}
	return rows.Err()
}

type pkPart struct {
	pos  int
	name string
}

func (r *Reflector) loadColumns(ctx context.Context, schema string, set *database.TableSet) error {
	rows, err := r.db.Query(ctx, qualify(columnsSQL, schema), schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	pks := make(map[string][]pkPart)
	var order []string
	for rows.Next() {
		var (
			table      string
			col        database.ReflectedColumn
			pk, hidden int
		)
		if err := rows.Scan(&table, &col.Name, &col.Type, &col.Nullable, &col.Default, &pk, &hidden); err != nil {
			return scanError("column", err)
		}
		// hidden: 1 virtual-table column, 2 virtual generated, 3 stored generated
		col.System = hidden == 1
		col.Computed = hidden >= 2
		col.Autoincrement = "false"
		set.AddColumn(table, col)

		if pk > 0 {
			if _, ok := pks[table]; !ok {
				order = append(order, table)
			}
			pks[table] = append(pks[table], pkPart{pos: pk, name: col.Name})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, table := range order {
		parts := pks[table]
		sort.Slice(parts, func(i, j int) bool { return parts[i].pos < parts[j].pos })
		for _, p := range parts {
			set.AddConstraint(database.ConstraintRow{
				Table:  table,
				Name:   "pk",
				Kind:   database.ConstraintPrimaryKey,
				Column: p.name,
			})
		}
		if len(parts) == 1 {
			markRowidAlias(set.Get(table), parts[0].name)
		}
	}
	return nil
}

// markRowidAlias flags a lone INTEGER PRIMARY KEY, which aliases the rowid
// and is assigned automatically.
func markRowidAlias(t *database.ReflectedTable, pk string) {
	if t == nil {
		return
	}
	for i := range t.Columns {
		if t.Columns[i].Name == pk && strings.EqualFold(t.Columns[i].Type, "INTEGER") {
			t.Columns[i].Autoincrement = "true"
		}
	}
}

func (r *Reflector) loadForeignKeys(ctx context.Context, schema string, set *database.TableSet) error {
	rows, err := r.db.Query(ctx, qualify(foreignKeysSQL, schema), schema, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                  database.ConstraintRow
			id                 int
			onUpdate, onDelete string
		)
		if err := rows.Scan(&c.Table, &id, &c.Column, &c.RefTable, &c.RefColumn, &onUpdate, &onDelete); err != nil {
			return scanError("foreign key", err)
		}
		c.Name = "fk_" + strconv.Itoa(id)
		c.Kind = database.ConstraintForeignKey
		c.RefSchema = schema
		c.OnUpdate = fkAction(onUpdate)
		c.OnDelete = fkAction(onDelete)
		set.AddConstraint(c)
	}
	return rows.Err()
}

func (r *Reflector) loadIndexes(ctx context.Context, schema string, set *database.TableSet) error {
	rows, err := r.db.Query(ctx, qualify(indexesSQL, schema), schema, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, name, origin, column string
			unique                      bool
		)
		if err := rows.Scan(&table, &name, &unique, &origin, &column); err != nil {
			return scanError("index", err)
		}
		// origin "u" is the index behind a UNIQUE constraint
		if origin == "u" {
			set.AddConstraint(database.ConstraintRow{
				Table:  table,
				Name:   name,
				Kind:   database.ConstraintUnique,
				Column: column,
			})
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

func resolve(schema string) string {
	if schema == "" {
		return defaultSchema
	}
	return schema
}

func qualify(query, schema string) string {
	return fmt.Sprintf(query, database.DialectSQLite.QuoteIdent(schema))
}

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
