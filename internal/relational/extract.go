// Package relational builds the schema model for engines reached through a
// database.Reflector (PostgreSQL, MySQL, SQLite).
package relational

import (
	"context"

	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/koustreak/sqlcontext/internal/filter"
	"github.com/koustreak/sqlcontext/internal/llmtype"
	"github.com/koustreak/sqlcontext/internal/schema"
)

// ExtractSchema reflects schemaName through r and returns the tables, views
// and materialized views that pass f. A nil f keeps everything. An empty
// schemaName means the connection's default schema.
//
// Engines without materialized views are treated as having none. Every
// other catalog failure is returned.
func ExtractSchema(ctx context.Context, r database.Reflector, schemaName string, f *filter.Filter) (*schema.SchemaInfo, error) {
	views, err := nameSet(r.ViewNames(ctx, schemaName))
	if err != nil {
		return nil, err
	}

	matViews, err := nameSet(r.MaterializedViewNames(ctx, schemaName))
	if err != nil && !errs.IsUnsupported(err) {
		return nil, err
	}

	reflected, err := r.ReflectTables(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	tables := make([]schema.TableInfo, 0, len(reflected))
	for i := range reflected {
		rt := &reflected[i]
		if schemaName != "" && rt.Schema != "" && rt.Schema != schemaName {
			continue
		}
		if !f.Match(rt.Name) {
			continue
		}

		kind := schema.KindTable
		switch {
		case views[rt.Name]:
			kind = schema.KindView
		case matViews[rt.Name]:
			kind = schema.KindMaterializedView
		}
		tables = append(tables, buildTable(rt, schemaName, kind))
	}

	return schema.NewSchemaInfo(schemaName, tables), nil
}

func buildTable(rt *database.ReflectedTable, schemaName string, kind schema.ObjectKind) schema.TableInfo {
	t := schema.TableInfo{
		Kind:       kind,
		Name:       rt.Name,
		FullName:   rt.Name,
		Comment:    rt.Comment,
		PrimaryKey: append([]string(nil), rt.PrimaryKey...),
	}
	if schemaName != "" {
		t.FullName = schemaName + "." + rt.Name
	}

	colFKs := make(map[string][]schema.ForeignKeyInfo)
	for _, fk := range rt.ForeignKeys {
		for i, col := range fk.Columns {
			if i >= len(fk.RefColumns) {
				break
			}
			// unresolved parent column, e.g. a parent without a primary key
			if fk.RefColumns[i] == "" {
				continue
			}
			info := schema.ForeignKeyInfo{
				Target:     fk.RefTable + "." + fk.RefColumns[i],
				OnUpdate:   fk.OnUpdate,
				OnDelete:   fk.OnDelete,
				Deferrable: fk.Deferrable,
				Initially:  fk.Initially,
			}
			colFKs[col] = append(colFKs[col], info)
			t.ForeignKeys = append(t.ForeignKeys, info)
		}
	}

	indexed, unique := singleColumnKeys(rt)

	t.Columns = make([]schema.ColumnInfo, 0, len(rt.Columns))
	for _, rc := range rt.Columns {
		c := schema.ColumnInfo{
			Name:          rc.Name,
			FullName:      rt.Name + "." + rc.Name,
			Type:          rc.Type,
			LLMType:       llmtype.Relational(rc.Type),
			Nullable:      rc.Nullable,
			System:        rc.System,
			Comment:       rc.Comment,
			Autoincrement: rc.Autoincrement,
			Constraints:   rc.Constraints,
			ForeignKeys:   colFKs[rc.Name],
			Computed:      rc.Computed,
			Identity:      rc.Identity,
		}
		if rt.IndexesKnown {
			c.Index = schema.Bool(indexed[rc.Name])
			c.Unique = schema.Bool(unique[rc.Name])
		}
		t.Columns = append(t.Columns, c)
	}
	return t
}

// singleColumnKeys collects the columns that carry an index or a uniqueness
// guarantee on their own. Composite keys flag none of their columns.
func singleColumnKeys(rt *database.ReflectedTable) (indexed, unique map[string]bool) {
	indexed = make(map[string]bool)
	unique = make(map[string]bool)
	for _, ix := range rt.Indexes {
		if len(ix.Columns) != 1 {
			continue
		}
		indexed[ix.Columns[0]] = true
		if ix.Unique {
			unique[ix.Columns[0]] = true
		}
	}
	for _, uc := range rt.UniqueConstraints {
		if len(uc) == 1 {
			unique[uc[0]] = true
		}
	}
	return indexed, unique
}

func nameSet(names []string, err error) (map[string]bool, error) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, err
}
