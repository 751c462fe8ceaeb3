package warehouse

import (
	"context"

	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/koustreak/sqlcontext/internal/filter"
	"github.com/koustreak/sqlcontext/internal/llmtype"
)

// systemSchemas keeps catalog namespaces out of every query.
const systemSchemas = `n.nspname NOT LIKE 'pg\_%' AND n.nspname NOT IN ('information_schema', 'catalog_history')`

const schemasSQL = `
	SELECT n.nspname,
	       COALESCE(d.description, '')
	FROM pg_namespace n
	LEFT JOIN pg_description d ON d.objoid = n.oid AND d.objsubid = 0
	WHERE ` + systemSchemas + `
	ORDER BY n.nspname`

const tablesSQL = `
	SELECT n.nspname,
	       c.relname,
	       CASE c.reldiststyle
	            WHEN 0 THEN 'EVEN'
	            WHEN 1 THEN 'KEY'
	            WHEN 8 THEN 'ALL'
	            WHEN 9 THEN 'AUTO(ALL)'
	            WHEN 10 THEN 'AUTO(EVEN)'
	            WHEN 11 THEN 'AUTO(KEY)'
	            ELSE 'UNKNOWN'
	       END,
	       COALESCE(u.usename, '')
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	LEFT JOIN pg_user u ON u.usesysid = c.relowner
	WHERE c.relkind = 'r'
	  AND ` + systemSchemas + `
	ORDER BY n.nspname, c.relname`

const columnsSQL = `
	SELECT n.nspname,
	       c.relname,
	       a.attname,
	       format_type(a.atttypid, a.atttypmod),
	       format_encoding(a.attencodingtype::integer),
	       a.attisdistkey,
	       a.attsortkeyord,
	       a.attnotnull
	FROM pg_attribute a
	JOIN pg_class c ON c.oid = a.attrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind = 'r'
	  AND a.attnum > 0
	  AND NOT a.attisdropped
	  AND ` + systemSchemas + `
	ORDER BY n.nspname, c.relname, a.attnum`

// Filters maps a schema name to the filter applied to its tables. Schemas
// without an entry keep every table.
type Filters map[string]*filter.Filter

type schemaRow struct {
	name, comment string
}

type tableRow struct {
	name, distStyle, owner string
}

// ExtractDatabase reads the whole catalog in three queries and assembles it
// in memory. A column type with no category fails the entire extraction
// with ErrKindUnsupportedType.
func ExtractDatabase(ctx context.Context, db database.DB, identifier string, filters Filters) (*Database, error) {
	schemas, err := loadSchemas(ctx, db)
	if err != nil {
		return nil, err
	}
	tables, err := loadTables(ctx, db)
	if err != nil {
		return nil, err
	}
	columns, err := loadColumns(ctx, db)
	if err != nil {
		return nil, err
	}

	out := &Database{Identifier: identifier, DBType: DBType, Schemas: make([]Schema, 0, len(schemas))}
	for _, sr := range schemas {
		f := filters[sr.name]
		s := Schema{Name: sr.name, Comment: sr.comment, Tables: make([]Table, 0, len(tables[sr.name]))}
		for _, tr := range tables[sr.name] {
			if !f.Match(tr.name) {
				continue
			}
			cols := columns[sr.name][tr.name]
			for i := range cols {
				t, err := llmtype.Warehouse(cols[i].Type)
				if err != nil {
					return nil, err
				}
				cols[i].LLMType = t
				cols[i].FullName = tr.name + "." + cols[i].Name
			}
			s.Tables = append(s.Tables, Table{
				Name:      tr.name,
				FullName:  sr.name + "." + tr.name,
				DistStyle: tr.distStyle,
				Owner:     tr.owner,
				Columns:   cols,
			})
		}
		out.Schemas = append(out.Schemas, s)
	}
	return out, nil
}

func loadSchemas(ctx context.Context, db database.DB) ([]schemaRow, error) {
	rows, err := db.Query(ctx, schemasSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schemaRow
	for rows.Next() {
		var r schemaRow
		if err := rows.Scan(&r.name, &r.comment); err != nil {
			return nil, scanError("schema", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// loadTables groups table rows by schema.
func loadTables(ctx context.Context, db database.DB) (map[string][]tableRow, error) {
	rows, err := db.Query(ctx, tablesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]tableRow)
	for rows.Next() {
		var (
			schema string
			r      tableRow
		)
		if err := rows.Scan(&schema, &r.name, &r.distStyle, &r.owner); err != nil {
			return nil, scanError("table", err)
		}
		out[schema] = append(out[schema], r)
	}
	return out, rows.Err()
}

// loadColumns groups column rows by schema, then table.
func loadColumns(ctx context.Context, db database.DB) (map[string]map[string][]Column, error) {
	rows, err := db.Query(ctx, columnsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string][]Column)
	for rows.Next() {
		var (
			schema, table string
			c             Column
		)
		if err := rows.Scan(&schema, &table, &c.Name, &c.Type, &c.Encoding, &c.DistKey, &c.SortKeyPosition,
			&c.NotNull); err != nil {
			return nil, scanError("column", err)
		}
		if out[schema] == nil {
			out[schema] = make(map[string][]Column)
		}
		out[schema][table] = append(out[schema][table], c)
	}
	return out, rows.Err()
}

func scanError(what string, err error) *errs.Error {
	return errs.Wrap(errs.ErrKindQueryFailed, "failed to scan "+what+" row", err)
}
