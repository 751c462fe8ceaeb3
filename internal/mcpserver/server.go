// Package mcpserver exposes the hub's tools over the Model Context
// Protocol, on stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"math"

	"github.com/koustreak/sqlcontext/internal/hub"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Name is the implementation name announced to clients.
const Name = "sqlcontext"

type emptyInput struct{}

type schemaInput struct {
	DatabaseIdentifier string `json:"database_identifier" jsonschema:"database identifier from list_databases"`
	SchemaName         string `json:"schema_name,omitempty" jsonschema:"schema name; the database's first configured schema when omitted"`
}

type selectInput struct {
	DatabaseIdentifier string         `json:"database_identifier" jsonschema:"database identifier from list_databases"`
	SQL                string         `json:"sql" jsonschema:"a single SELECT statement; named parameters are written :name"`
	Params             map[string]any `json:"params,omitempty" jsonschema:"values for the named parameters in sql"`
}

// New creates an MCP server with every hub tool registered.
func New(h *hub.Hub, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	Register(server, h)
	return server
}

// Register adds the hub's tools to server.
func Register(server *mcp.Server, h *hub.Hub) {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	mcp.AddTool(server, &mcp.Tool{
		Name: hub.ToolListDatabases,
		Description: "List all configured databases with identifiers, types, schema counts and descriptions. " +
			"Call this first: the identifiers it returns are needed by every other tool.",
		Annotations: readOnly,
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return text(h.ListDatabases()), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name: hub.ToolListTables,
		Description: "List tables, views and materialized views in a database schema with column counts " +
			"and comments.",
		Annotations: readOnly,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in schemaInput) (*mcp.CallToolResult, any, error) {
		return result(h.ListTables(ctx, in.DatabaseIdentifier, in.SchemaName))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name: hub.ToolGetSchemaDetails,
		Description: "Get the exact tables, columns, types and relationships of one schema. Always call this " +
			"before writing SQL. Columns are name:TYPE followed by markers: *PK primary key, *UQ unique, " +
			"*NN not null, *IDX indexed, *FK->Table.Column foreign key. Warehouse columns use *DK " +
			"distribution key, *SK-n sort key position and end with *encoding.",
		Annotations: readOnly,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in schemaInput) (*mcp.CallToolResult, any, error) {
		return result(h.GetSchemaDetails(ctx, in.DatabaseIdentifier, in.SchemaName))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        hub.ToolGetDatabaseDetails,
		Description: "Get the complete schema of every configured database in the same encoding as get_schema_details.",
		Annotations: readOnly,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return result(h.GetDatabaseDetails(ctx))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name: hub.ToolExecuteSelectStatement,
		Description: "Execute a SELECT statement and return the execution time and the rows as a Markdown table. " +
			"Only SELECT is accepted. Pass values through params, e.g. sql \"SELECT * FROM orders WHERE " +
			"user_id = :user_id LIMIT 20\" with params {\"user_id\": 123}. Times above a second suggest " +
			"adding filters or a LIMIT.",
		Annotations: readOnly,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in selectInput) (*mcp.CallToolResult, any, error) {
		return result(h.ExecuteSelectStatement(ctx, in.DatabaseIdentifier, in.SQL, normalizeParams(in.Params)))
	})
}

func text(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: s}}}
}

// result turns a hub answer into a tool result. A returned error becomes
// an IsError result carrying its text.
func result(s string, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	return text(s), nil, nil
}

// normalizeParams turns whole JSON numbers back into integers so drivers
// bind them to integer columns.
func normalizeParams(params map[string]any) map[string]any {
	for k, v := range params {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			params[k] = int64(f)
		}
	}
	return params
}

// ServeStdio serves server on stdin/stdout until ctx ends or the client
// disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
