// Package hub is the tool surface an agent talks to. It resolves database
// and schema identifiers against the configuration, opens connections on
// first use and renders every answer as plain text.
//
// Lookup failures come back as text so the conversation can continue.
// Catalog failures and warehouse type-mapping failures are returned as
// errors.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/koustreak/sqlcontext/internal/config"
	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/database/mysql"
	"github.com/koustreak/sqlcontext/internal/database/postgres"
	"github.com/koustreak/sqlcontext/internal/database/sqlite"
	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/koustreak/sqlcontext/internal/logger"
)

// Opener connects to one configured database. cfg is the connection's
// driver settings with defaults applied.
type Opener func(ctx context.Context, d *config.Database, cfg *database.Config) (database.DB, error)

// Open is the default Opener. Relational connections pick the driver by
// name; Redshift goes through the postgres driver without prepared
// statements.
func Open(ctx context.Context, d *config.Database, cfg *database.Config) (database.DB, error) {
	var (
		db  database.DB
		err error
	)
	switch {
	case d.IsWarehouse():
		db, err = postgres.New(ctx, cfg, postgres.SimpleProtocol())
	case cfg.Driver == database.DriverPostgres:
		db, err = postgres.New(ctx, cfg)
	case cfg.Driver == database.DriverMySQL:
		db, err = mysql.New(ctx, cfg)
	case cfg.Driver == database.DriverSQLite:
		db, err = sqlite.New(ctx, cfg)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Option configures a Hub.
type Option func(*Hub)

// WithOpener replaces Open, mostly for tests.
func WithOpener(open Opener) Option {
	return func(h *Hub) { h.open = open }
}

// WithLogger sets the logger used for per-call events.
func WithLogger(l *logger.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// Hub serves the tools for one configuration. It is safe for concurrent
// use; each database's connection is opened at most once and shared.
type Hub struct {
	cfg   *config.Config
	open  Opener
	log   *logger.Logger
	conns map[string]*lazyConn
}

// lazyConn memoizes a successful open. A failed open is retried on the
// next call.
type lazyConn struct {
	mu sync.Mutex
	db database.DB
}

// New builds a Hub over a validated configuration. No connection is made
// until a tool needs one.
func New(cfg *config.Config, opts ...Option) *Hub {
	h := &Hub{
		cfg:   cfg,
		open:  Open,
		log:   logger.Global(),
		conns: make(map[string]*lazyConn, len(cfg.Databases)),
	}
	for _, opt := range opts {
		opt(h)
	}
	for _, d := range cfg.Databases {
		h.conns[d.Identifier] = &lazyConn{}
	}
	return h
}

// Config returns the configuration the hub serves.
func (h *Hub) Config() *config.Config { return h.cfg }

// Close releases every opened connection.
func (h *Hub) Close() {
	for _, c := range h.conns {
		c.mu.Lock()
		if c.db != nil {
			c.db.Close()
			c.db = nil
		}
		c.mu.Unlock()
	}
}

// conn returns the shared connection of d, opening it on first use. The
// open is detached from ctx's cancellation so a short tool deadline cannot
// poison a pool other calls will reuse; ConnectTimeout still bounds it.
func (h *Hub) conn(ctx context.Context, d *config.Database) (database.DB, error) {
	c := h.conns[d.Identifier]
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}

	db, err := h.open(context.WithoutCancel(ctx), d, h.dbConfig(d))
	if err != nil {
		h.log.ErrorWith("connect failed", err, logger.Fields{"database": d.Identifier})
		return nil, err
	}
	h.log.InfoWith("connected", logger.Fields{"database": d.Identifier, "db_type": string(d.DBType)})
	c.db = db
	return db, nil
}

func (h *Hub) dbConfig(d *config.Database) *database.Config {
	return d.Connection.DatabaseConfig(h.cfg.Settings.QueryTimeout)
}

// withTimeout bounds one tool call against d.
func (h *Hub) withTimeout(ctx context.Context, d *config.Database) (context.Context, context.CancelFunc) {
	if t := h.dbConfig(d).QueryTimeout; t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

func (h *Hub) trace(tool string, fields logger.Fields, start time.Time) {
	fields["tool"] = tool
	fields["duration"] = time.Since(start).String()
	h.log.DebugWith("tool call", fields)
}
