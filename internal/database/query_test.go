package database

import (
	"testing"

	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindNamed(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		sql      string
		params   map[string]any
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "no params",
			dialect:  DialectSQLite,
			sql:      "SELECT * FROM Album",
			wantSQL:  "SELECT * FROM Album",
			wantArgs: nil,
		},
		{
			name:     "sqlite positional",
			dialect:  DialectSQLite,
			sql:      "SELECT * FROM Album WHERE AlbumId >= :min AND Title = :title",
			params:   map[string]any{"min": 10, "title": "IV"},
			wantSQL:  "SELECT * FROM Album WHERE AlbumId >= ? AND Title = ?",
			wantArgs: []any{10, "IV"},
		},
		{
			name:     "postgres numbered and reused",
			dialect:  DialectPostgres,
			sql:      "SELECT * FROM t WHERE a = :x OR b = :x OR c = :y",
			params:   map[string]any{"x": 1, "y": 2},
			wantSQL:  "SELECT * FROM t WHERE a = $1 OR b = $1 OR c = $2",
			wantArgs: []any{1, 2},
		},
		{
			name:     "mysql repeats argument",
			dialect:  DialectMySQL,
			sql:      "SELECT * FROM t WHERE a = :x OR b = :x",
			params:   map[string]any{"x": 1},
			wantSQL:  "SELECT * FROM t WHERE a = ? OR b = ?",
			wantArgs: []any{1, 1},
		},
		{
			name:     "casts and literals untouched",
			dialect:  DialectPostgres,
			sql:      "SELECT '12:30'::time, \"a:b\" FROM t WHERE id = :id -- :ignored\n/* :also */",
			params:   map[string]any{"id": 7},
			wantSQL:  "SELECT '12:30'::time, \"a:b\" FROM t WHERE id = $1 -- :ignored\n/* :also */",
			wantArgs: []any{7},
		},
		{
			name:     "escaped quote inside literal",
			dialect:  DialectSQLite,
			sql:      "SELECT 'it''s :not' WHERE x = :x",
			params:   map[string]any{"x": "y"},
			wantSQL:  "SELECT 'it''s :not' WHERE x = ?",
			wantArgs: []any{"y"},
		},
		{
			name:     "array slice is not a parameter",
			dialect:  DialectPostgres,
			sql:      "SELECT arr[1:2] FROM t",
			wantSQL:  "SELECT arr[1:2] FROM t",
			wantArgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArgs, err := BindNamed(tt.dialect, tt.sql, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, gotSQL)
			assert.Equal(t, tt.wantArgs, gotArgs)
		})
	}
}

func TestBindNamed_MissingParam(t *testing.T) {
	_, _, err := BindNamed(DialectSQLite, "SELECT * FROM t WHERE id = :id", nil)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Contains(t, err.Error(), ":id")
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "$3", DialectPostgres.Placeholder(3))
	assert.Equal(t, "?", DialectMySQL.Placeholder(3))
	assert.Equal(t, `"we""ird"`, DialectSQLite.QuoteIdent(`we"ird`))
	assert.Equal(t, "`we``ird`", DialectMySQL.QuoteIdent("we`ird"))
	assert.Equal(t, DialectSQLite, DriverSQLite.Dialect())
	assert.Equal(t, DialectPostgres, DriverPostgres.Dialect())
	assert.True(t, DriverMySQL.Valid())
	assert.False(t, Driver("oracle").Valid())
}
