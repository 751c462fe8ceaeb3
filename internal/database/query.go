package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/sqlcontext/internal/errs"
)

// Dialect controls placeholder style and identifier quoting.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders. Redshift shares it.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders and backtick identifiers.
	DialectMySQL

	// DialectSQLite uses ? placeholders.
	DialectSQLite
)

func (d Dialect) String() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	case DialectSQLite:
		return "sqlite"
	default:
		return "postgres"
	}
}

// Placeholder returns the parameter marker for the 1-based position idx.
// Postgres: $1, $2, …   MySQL / SQLite: ? (index is ignored)
func (d Dialect) Placeholder(idx int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", idx)
	}
	return "?"
}

// QuoteIdent quotes a SQL identifier for the dialect, doubling any
// embedded quote character.
func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// BindNamed rewrites :name parameters into the dialect's positional
// placeholders and returns the matching argument list. Values are never
// interpolated into the SQL text.
//
// Quoted strings, quoted identifiers, comments and Postgres :: casts are
// copied through untouched. A :name without an entry in params fails with
// ErrKindInvalidInput. With Postgres a name used twice binds one argument.
func BindNamed(d Dialect, sql string, params map[string]any) (string, []any, error) {
	var (
		sb    strings.Builder
		args  []any
		index = map[string]int{}
	)
	sb.Grow(len(sql))

	n := len(sql)
	for i := 0; i < n; {
		c := sql[i]
		switch {
		case c == '\'' || c == '"' || (c == '`' && d == DialectMySQL):
			end := skipQuoted(sql, i, c)
			sb.WriteString(sql[i:end])
			i = end

		case c == '-' && i+1 < n && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				end = n
			} else {
				end += i
			}
			sb.WriteString(sql[i:end])
			i = end

		case c == '/' && i+1 < n && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				end = n
			} else {
				end += i + 4
			}
			sb.WriteString(sql[i:end])
			i = end

		case c == ':' && i+1 < n && sql[i+1] == ':':
			sb.WriteString("::")
			i += 2

		case c == ':' && i+1 < n && isIdentStart(sql[i+1]):
			j := i + 1
			for j < n && isIdentPart(sql[j]) {
				j++
			}
			name := sql[i+1 : j]
			val, ok := params[name]
			if !ok {
				return "", nil, errs.Newf(errs.ErrKindInvalidInput, "missing value for parameter :%s", name)
			}
			if d == DialectPostgres {
				pos, seen := index[name]
				if !seen {
					args = append(args, val)
					pos = len(args)
					index[name] = pos
				}
				sb.WriteString(d.Placeholder(pos))
			} else {
				args = append(args, val)
				sb.WriteString(d.Placeholder(len(args)))
			}
			i = j

		default:
			sb.WriteByte(c)
			i++
		}
	}

	return sb.String(), args, nil
}

// skipQuoted returns the index just past the quoted run starting at start.
// A doubled quote character is an escaped quote.
func skipQuoted(s string, start int, q byte) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] != q {
			continue
		}
		if i+1 < len(s) && s[i+1] == q {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
