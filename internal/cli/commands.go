package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/koustreak/sqlcontext/internal/logger"
	"github.com/koustreak/sqlcontext/internal/mcpserver"
	"github.com/spf13/cobra"
)

// Transports accepted by serve.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type serveOptions struct {
	transport string
	addr      string
}

func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over MCP",
		Long: `Serve the tools over MCP.

With --transport stdio (the default) the client talks on stdin/stdout and logs go
to stderr. With --transport http the streamable endpoint is /mcp and /healthz
answers health checks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			h, err := a.openHub(ctx)
			if err != nil {
				return err
			}
			defer h.Close()

			server := mcpserver.New(h, Version)
			log := logger.Global()
			switch opts.transport {
			case TransportStdio:
				log.InfoWith("serving", logger.Fields{"transport": TransportStdio, "databases": len(h.Config().Databases)})
				return mcpserver.ServeStdio(ctx, server)
			case TransportHTTP:
				log.InfoWith("serving", logger.Fields{"transport": TransportHTTP, "addr": opts.addr, "databases": len(h.Config().Databases)})
				return mcpserver.ServeHTTP(ctx, opts.addr, mcpserver.Router(server, log))
			default:
				return errs.Newf(errs.ErrKindInvalidInput, "unknown transport %q, want %s or %s", opts.transport, TransportStdio, TransportHTTP)
			}
		},
	}

	cmd.Flags().StringVarP(&opts.transport, "transport", "t", TransportStdio, "stdio or http")
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address for the http transport")
	return cmd
}

func (a *App) newDatabasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List the configured databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()
			fmt.Fprintln(a.stdout, h.ListDatabases())
			return nil
		},
	}
}

func (a *App) newSchemaCmd() *cobra.Command {
	var tables bool

	cmd := &cobra.Command{
		Use:   "schema [database] [schema]",
		Short: "Print the encoded schema an agent receives",
		Long: `Print the encoded schema an agent receives.

Without arguments every configured database is printed. With a database the
first configured schema is used unless a schema is named. --tables prints the
short table listing instead.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := a.openHub(ctx)
			if err != nil {
				return err
			}
			defer h.Close()

			var out string
			switch {
			case len(args) == 0 && tables:
				return errs.New(errs.ErrKindInvalidInput, "--tables needs a database")
			case len(args) == 0:
				out, err = h.GetDatabaseDetails(ctx)
			default:
				schemaName := ""
				if len(args) == 2 {
					schemaName = args[1]
				}
				if tables {
					out, err = h.ListTables(ctx, args[0], schemaName)
				} else {
					out, err = h.GetSchemaDetails(ctx, args[0], schemaName)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&tables, "tables", false, "list tables with column counts instead of the full encoding")
	return cmd
}

type queryOptions struct {
	params []string
	count  bool
}

func (a *App) newQueryCmd() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query <database> <sql>",
		Short: "Run a SELECT statement the way the agent would",
		Long: `Run a SELECT statement the way the agent would.

Named parameters are written :name in the statement and given with
--param name=value. Values that parse as integers, floats or booleans are bound
as such, anything else as text.

Examples:
  sqlcontext query chinook "SELECT * FROM Album WHERE ArtistId = :id" --param id=1
  sqlcontext query chinook "SELECT * FROM Track" --count`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(opts.params)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			h, err := a.openHub(ctx)
			if err != nil {
				return err
			}
			defer h.Close()

			if opts.count {
				n, err := h.CountRows(ctx, args[0], args[1], params)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, n)
				return nil
			}

			out, err := h.ExecuteSelectStatement(ctx, args[0], args[1], params)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, out)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "named parameter as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.count, "count", false, "print only the number of rows the statement returns")
	return cmd
}

// parseParams turns name=value pairs into bind values.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "parameter %q is not name=value", p)
		}
		params[name] = parseValue(value)
	}
	return params, nil
}

func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
