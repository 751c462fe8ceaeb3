// Package sqlite is the mattn/go-sqlite3 implementation of database.DB and
// database.Reflector.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/mattn/go-sqlite3"
)

// Driver is a SQLite implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	*database.SQLDB
	*Reflector
}

// New opens the SQLite database named by cfg.DSN (a file path or a
// file: URI) and returns a Driver.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	d := NewFromDB(db)
	d.Configure(cfg)

	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// NewFromDB wraps an already-open handle.
func NewFromDB(db *sql.DB) *Driver {
	base := database.NewSQLDB(db, database.DialectSQLite, mapError)
	return &Driver{SQLDB: base, Reflector: NewReflector(base)}
}

// --- error mapping ---

// mapError translates go-sqlite3 errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return errs.Wrap(classifyCode(sqliteErr.Code), msg, err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifyCode maps a primary SQLite result code to ErrKind.
// Full list: https://www.sqlite.org/rescode.html
func classifyCode(code sqlite3.ErrNo) errs.ErrKind {
	switch code {
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		return errs.ErrKindPermissionDenied
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrInterrupt:
		return errs.ErrKindTimeout
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
