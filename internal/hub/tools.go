package hub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/koustreak/sqlcontext/internal/config"
	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/koustreak/sqlcontext/internal/logger"
	"github.com/koustreak/sqlcontext/internal/query"
	"github.com/koustreak/sqlcontext/internal/relational"
	"github.com/koustreak/sqlcontext/internal/schema"
	"github.com/koustreak/sqlcontext/internal/warehouse"
)

// Tool names as registered with an MCP server.
const (
	ToolListDatabases          = "list_databases"
	ToolListTables             = "list_tables"
	ToolGetSchemaDetails       = "get_schema_details"
	ToolGetDatabaseDetails     = "get_database_details"
	ToolExecuteSelectStatement = "execute_select_statement"
)

// Headers of the listing tools.
const (
	DatabasesHeader = "Available Databases:"
	TablesHeader    = "Available Tables, Views, and Materialized Views:"
)

// warehouseDefaultSchema stands in for an unnamed schema on Redshift.
const warehouseDefaultSchema = "public"

const tab = "  "

// DatabaseNotFound is the text returned for an unknown identifier.
func DatabaseNotFound(identifier string) string {
	return fmt.Sprintf("Error: Database '%s' not found in configuration.", identifier)
}

// SchemaNotFound is the text returned for a schema the database does not
// configure.
func SchemaNotFound(name, identifier string) string {
	return fmt.Sprintf("Error: Schema '%s' not found in '%s' database.", name, identifier)
}

// ListDatabases describes every configured database without touching any
// of them.
func (h *Hub) ListDatabases() string {
	lines := []string{DatabasesHeader}
	for _, d := range h.cfg.Databases {
		description := d.Description
		if description == "" {
			description = "No description"
		}
		lines = append(lines,
			"Database(",
			tab+"identifier='"+d.Identifier+"',",
			tab+"db_type="+string(d.DBType)+",",
			fmt.Sprintf("%snumber_of_schemas=%d,", tab, len(d.Schemas)),
			tab+"description="+description+",",
			")",
		)
	}
	return strings.Join(lines, "\n")
}

// TableSummary is one line of ListTables.
type TableSummary struct {
	Kind    string
	Name    string
	Columns int
	Comment string
}

func (s TableSummary) String() string {
	comment := s.Comment
	if comment == "" {
		comment = "No comment"
	}
	return fmt.Sprintf("- %s '%s': %d columns, %s", s.Kind, s.Name, s.Columns, comment)
}

// ListTables lists the visible relations of one schema. An empty
// schemaName selects the database's first configured schema.
func (h *Hub) ListTables(ctx context.Context, identifier, schemaName string) (string, error) {
	start := time.Now()
	d, s, msg := h.resolve(identifier, schemaName)
	if msg != "" {
		return msg, nil
	}
	defer h.trace(ToolListTables, logger.Fields{"database": d.Identifier, "schema": s.Name}, start)

	summaries, err := h.summarize(ctx, d, s)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(summaries)+1)
	lines = append(lines, TablesHeader)
	for _, ts := range summaries {
		lines = append(lines, ts.String())
	}
	return strings.Join(lines, "\n"), nil
}

// GetSchemaDetails renders the encoded schema an agent writes SQL against.
func (h *Hub) GetSchemaDetails(ctx context.Context, identifier, schemaName string) (string, error) {
	start := time.Now()
	d, s, msg := h.resolve(identifier, schemaName)
	if msg != "" {
		return msg, nil
	}
	defer h.trace(ToolGetSchemaDetails, logger.Fields{"database": d.Identifier, "schema": s.Name}, start)

	if d.IsWarehouse() {
		ws, err := h.warehouseSchema(ctx, d, s)
		if err != nil {
			return "", err
		}
		return warehouse.EncodeSchema(ws), nil
	}

	si, err := h.relationalSchema(ctx, d, s)
	if err != nil {
		return "", err
	}
	return schema.EncodeSchema(si), nil
}

// GetDatabaseDetails renders every configured schema of every database,
// one database block per line group.
func (h *Hub) GetDatabaseDetails(ctx context.Context) (string, error) {
	start := time.Now()
	defer h.trace(ToolGetDatabaseDetails, logger.Fields{"databases": len(h.cfg.Databases)}, start)

	blocks := make([]string, 0, len(h.cfg.Databases))
	for i := range h.cfg.Databases {
		text, err := h.databaseDetails(ctx, &h.cfg.Databases[i])
		if err != nil {
			return "", err
		}
		blocks = append(blocks, text)
	}
	return strings.Join(blocks, "\n"), nil
}

// ExecuteSelectStatement runs a SELECT and reports how long it took.
// Only a statement that is not a SELECT returns an error; every other
// failure is part of the text.
func (h *Hub) ExecuteSelectStatement(ctx context.Context, identifier, sql string, params map[string]any) (string, error) {
	start := time.Now()
	d, ok := h.cfg.Database(identifier)
	if !ok {
		return DatabaseNotFound(identifier), nil
	}
	if err := query.ValidateSelect(sql); err != nil {
		return "", err
	}

	ctx, cancel := h.withTimeout(ctx, d)
	defer cancel()

	var result string
	db, err := h.conn(ctx, d)
	if err != nil {
		result = query.ExecErrorPrefix + err.Error()
	} else if result, err = query.ExecuteSelect(ctx, db, sql, params); err != nil {
		return "", err
	}

	elapsed := time.Since(start)
	h.log.DebugWith("tool call", logger.Fields{
		"tool":     ToolExecuteSelectStatement,
		"database": d.Identifier,
		"sql":      sql,
		"duration": elapsed.String(),
	})
	return fmt.Sprintf("# Execution Time\n%.3f seconds\n\n# Query Result\n%s", elapsed.Seconds(), result), nil
}

// CountRows returns how many rows sql would produce.
func (h *Hub) CountRows(ctx context.Context, identifier, sql string, params map[string]any) (int64, error) {
	d, ok := h.cfg.Database(identifier)
	if !ok {
		return 0, errs.New(errs.ErrKindNotFound, DatabaseNotFound(identifier))
	}

	ctx, cancel := h.withTimeout(ctx, d)
	defer cancel()

	db, err := h.conn(ctx, d)
	if err != nil {
		return 0, err
	}
	return query.ExecuteCount(ctx, db, sql, params)
}

// resolve finds the database and schema a call refers to. msg is the
// not-found text when either is unknown.
func (h *Hub) resolve(identifier, schemaName string) (*config.Database, *config.Schema, string) {
	d, ok := h.cfg.Database(identifier)
	if !ok {
		return nil, nil, DatabaseNotFound(identifier)
	}
	if schemaName == "" {
		return d, d.DefaultSchema(), ""
	}
	s, ok := d.Schema(schemaName)
	if !ok {
		return nil, nil, SchemaNotFound(schemaName, identifier)
	}
	return d, s, ""
}

func (h *Hub) summarize(ctx context.Context, d *config.Database, s *config.Schema) ([]TableSummary, error) {
	if d.IsWarehouse() {
		ws, err := h.warehouseSchema(ctx, d, s)
		if err != nil {
			return nil, err
		}
		out := make([]TableSummary, 0, len(ws.Tables))
		for _, t := range ws.Tables {
			out = append(out, TableSummary{Kind: schema.KindTable.Label(), Name: t.Name, Columns: len(t.Columns)})
		}
		return out, nil
	}

	si, err := h.relationalSchema(ctx, d, s)
	if err != nil {
		return nil, err
	}
	out := make([]TableSummary, 0, len(si.Tables))
	for _, t := range si.Tables {
		out = append(out, TableSummary{Kind: t.Kind.Label(), Name: t.Name, Columns: len(t.Columns), Comment: t.Comment})
	}
	return out, nil
}

func (h *Hub) databaseDetails(ctx context.Context, d *config.Database) (string, error) {
	if d.IsWarehouse() {
		wd, err := h.warehouseDatabase(ctx, d)
		if err != nil {
			return "", err
		}
		return warehouse.EncodeDatabase(wd), nil
	}

	info := &schema.DatabaseInfo{Identifier: d.Identifier, DBType: string(d.DBType)}
	for i := range d.Schemas {
		si, err := h.relationalSchema(ctx, d, &d.Schemas[i])
		if err != nil {
			return "", err
		}
		info.Schemas = append(info.Schemas, si)
	}
	return schema.EncodeDatabase(info), nil
}

func (h *Hub) relationalSchema(ctx context.Context, d *config.Database, s *config.Schema) (*schema.SchemaInfo, error) {
	ctx, cancel := h.withTimeout(ctx, d)
	defer cancel()

	db, err := h.conn(ctx, d)
	if err != nil {
		return nil, err
	}
	r, ok := db.(database.Reflector)
	if !ok {
		return nil, errs.Newf(errs.ErrKindUnsupported, "database %q cannot reflect its catalog", d.Identifier)
	}
	f, err := s.Filter()
	if err != nil {
		return nil, err
	}

	si, err := relational.ExtractSchema(ctx, r, s.Name, f)
	if err != nil {
		h.log.ErrorWith("schema extraction failed", err, logger.Fields{"database": d.Identifier, "schema": s.Name})
		return nil, err
	}
	return si, nil
}

// warehouseDatabase extracts the catalog once and keeps the configured
// schemas in configuration order. A configured schema the catalog lacks
// renders empty.
func (h *Hub) warehouseDatabase(ctx context.Context, d *config.Database) (*warehouse.Database, error) {
	ctx, cancel := h.withTimeout(ctx, d)
	defer cancel()

	db, err := h.conn(ctx, d)
	if err != nil {
		return nil, err
	}

	filters := make(warehouse.Filters, len(d.Schemas))
	for i := range d.Schemas {
		f, err := d.Schemas[i].Filter()
		if err != nil {
			return nil, err
		}
		filters[warehouseSchemaName(&d.Schemas[i])] = f
	}

	all, err := warehouse.ExtractDatabase(ctx, db, d.Identifier, filters)
	if err != nil {
		h.log.ErrorWith("warehouse extraction failed", err, logger.Fields{"database": d.Identifier})
		return nil, err
	}

	out := &warehouse.Database{Identifier: all.Identifier, DBType: all.DBType, Schemas: make([]warehouse.Schema, 0, len(d.Schemas))}
	for i := range d.Schemas {
		name := warehouseSchemaName(&d.Schemas[i])
		if ws, ok := all.Schema(name); ok {
			out.Schemas = append(out.Schemas, *ws)
		} else {
			out.Schemas = append(out.Schemas, warehouse.Schema{Name: name})
		}
	}
	return out, nil
}

func (h *Hub) warehouseSchema(ctx context.Context, d *config.Database, s *config.Schema) (*warehouse.Schema, error) {
	wd, err := h.warehouseDatabase(ctx, d)
	if err != nil {
		return nil, err
	}
	ws, _ := wd.Schema(warehouseSchemaName(s))
	return ws, nil
}

func warehouseSchemaName(s *config.Schema) string {
	if s.Name == "" {
		return warehouseDefaultSchema
	}
	return s.Name
}
