// Package query runs read-only statements for an agent and renders the
// result as a Markdown table.
package query

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
)

// NoResult is returned in place of an empty table.
const NoResult = "No result"

// Prefixes of the error strings returned by ExecuteSelect.
const (
	ExecErrorPrefix   = "Error executing query: "
	FormatErrorPrefix = "Error formatting result: "
)

// ValidateSelect accepts statements whose first keyword is SELECT. It is a
// prefix check, not a parser: it does not detect a second statement after
// a semicolon.
func ValidateSelect(sql string) error {
	s := strings.TrimSpace(sql)
	const kw = "SELECT"
	if len(s) <= len(kw) || !strings.EqualFold(s[:len(kw)], kw) || !unicode.IsSpace(rune(s[len(kw)])) {
		return errs.New(errs.ErrKindInvalidQuery, "only SELECT statements are allowed")
	}
	return nil
}

// ExecuteSelect validates sql, binds params by name and renders the rows.
//
// Only a rejected statement is returned as an error; it never reaches db.
// Execution and formatting failures come back as text starting with
// ExecErrorPrefix or FormatErrorPrefix.
func ExecuteSelect(ctx context.Context, db database.DB, sql string, params map[string]any) (string, error) {
	if err := ValidateSelect(sql); err != nil {
		return "", err
	}

	bound, args, err := database.BindNamed(db.Dialect(), sql, params)
	if err != nil {
		return ExecErrorPrefix + err.Error(), nil
	}

	rows, err := db.Query(ctx, bound, args...)
	if err != nil {
		return ExecErrorPrefix + err.Error(), nil
	}
	res, err := database.ScanAll(rows)
	if err != nil {
		return ExecErrorPrefix + err.Error(), nil
	}

	if len(res.Rows) == 0 {
		return NoResult, nil
	}

	out, err := Markdown(res)
	if err != nil {
		return FormatErrorPrefix + err.Error(), nil
	}
	return out, nil
}

// ExecuteCount returns the number of rows sql would produce by wrapping it
// in SELECT COUNT(*). Unlike ExecuteSelect it reports every failure as an
// error.
func ExecuteCount(ctx context.Context, db database.DB, sql string, params map[string]any) (int64, error) {
	if err := ValidateSelect(sql); err != nil {
		return 0, err
	}

	bound, args, err := database.BindNamed(db.Dialect(), CountSQL(db.Dialect(), sql), params)
	if err != nil {
		return 0, err
	}

	row, err := db.QueryRow(ctx, bound, args...)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, errs.Wrap(errs.ErrKindQueryFailed, "count failed", err)
	}
	return n, nil
}

// CountSQL wraps sql as a derived table. SQLite and the others accept
// different alias names, and every engine rejects a trailing semicolon
// inside the parentheses.
func CountSQL(d database.Dialect, sql string) string {
	inner := strings.TrimRight(strings.TrimSpace(sql), "; \t\r\n")
	alias := "anon_subq"
	if d == database.DialectSQLite {
		alias = "subquery"
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS %s", inner, alias)
}
