package database

import (
	"context"
	"database/sql"

	"github.com/koustreak/sqlcontext/internal/errs"
)

// MapErrorFunc translates a native driver error into *errs.Error.
type MapErrorFunc func(err error, msg string) *errs.Error

// SQLDB adapts a database/sql pool to DB. The mysql and sqlite drivers
// embed it and add their own Reflector.
// It is safe for concurrent use by multiple goroutines.
type SQLDB struct {
	db      *sql.DB
	dialect Dialect
	mapErr  MapErrorFunc
}

// NewSQLDB wraps db. mapErr may be nil, in which case errors are reported
// as ErrKindQueryFailed.
func NewSQLDB(db *sql.DB, d Dialect, mapErr MapErrorFunc) *SQLDB {
	if mapErr == nil {
		mapErr = func(err error, msg string) *errs.Error {
			return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
		}
	}
	return &SQLDB{db: db, dialect: d, mapErr: mapErr}
}

// Configure applies pool tuning from cfg.
func (s *SQLDB) Configure(cfg *Config) {
	if cfg.MaxConns > 0 {
		s.db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		s.db.SetMaxIdleConns(int(cfg.MinConns))
	}
	s.db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	s.db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
}

// --- database.DB implementation ---

func (s *SQLDB) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.mapErr(err, "ping failed")
	}
	return nil
}

func (s *SQLDB) Close() {
	_ = s.db.Close()
}

func (s *SQLDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows}, nil
}

func (s *SQLDB) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	return s.db.QueryRowContext(ctx, query, args...), nil
}

func (s *SQLDB) Dialect() Dialect { return s.dialect }

// MapError exposes the driver's error translation to embedding types.
func (s *SQLDB) MapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}
	return s.mapErr(err, msg)
}

// --- sql.DB type wrappers ---

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool                 { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *sqlRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqlRows) Close()                     { _ = r.rows.Close() }
func (r *sqlRows) Err() error                 { return r.rows.Err() }
