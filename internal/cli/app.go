// Package cli is the sqlcontext command line: it serves the tools over MCP
// and lets an operator run them by hand to see what an agent will see.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/sqlcontext/internal/config"
	"github.com/koustreak/sqlcontext/internal/hub"
	"github.com/koustreak/sqlcontext/internal/logger"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string
}

// New creates the CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "sqlcontext",
		Short: "Give LLM agents compact schema context and read-only SQL access",
		Long: `sqlcontext serves a small set of MCP tools over the databases listed in a
configuration document: list databases and tables, describe schemas in a compact
encoding, and run SELECT statements.

The configuration is a local path or an s3://bucket/key URL, taken from --config
or $` + config.EnvConfig + `.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.SetGlobal(logger.New(&logger.Config{
				Level:  app.logLevel,
				Format: app.logFormat,
				Output: app.stderr,
			}))
		},
	}

	flags := app.root.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "configuration document (path or s3:// URL)")
	flags.StringVar(&app.logLevel, "log-level", "info", "debug, info, warn or error")
	flags.StringVar(&app.logFormat, "log-format", "json", "json or console")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newServeCmd(),
		app.newDatabasesCmd(),
		app.newSchemaCmd(),
		app.newQueryCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application until it finishes or the process is
// interrupted.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return config.Load(ctx, a.configPath)
}

// openHub loads the configuration and builds a hub over it. The caller
// closes the hub.
func (a *App) openHub(ctx context.Context) (*hub.Hub, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return hub.New(cfg, hub.WithLogger(logger.Global())), nil
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.stdout, "sqlcontext version %s\n", Version)
		},
	}
}

func (a *App) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration document without connecting to anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			schemas := 0
			for _, d := range cfg.Databases {
				schemas += len(d.Schemas)
			}
			fmt.Fprintf(a.stdout, "configuration OK: %d databases, %d schemas\n", len(cfg.Databases), schemas)
			return nil
		},
	}
}
