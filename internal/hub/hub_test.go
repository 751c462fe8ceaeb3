package hub

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/koustreak/sqlcontext/internal/config"
	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/koustreak/sqlcontext/internal/logger"
	"github.com/koustreak/sqlcontext/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chinookDDL = `
	CREATE TABLE Artist (ArtistId INTEGER NOT NULL PRIMARY KEY, Name NVARCHAR(120));
	CREATE TABLE Album (
		AlbumId  INTEGER NOT NULL PRIMARY KEY,
		Title    NVARCHAR(160) NOT NULL,
		ArtistId INTEGER NOT NULL REFERENCES Artist (ArtistId)
	);
	CREATE VIEW AlbumTitles AS SELECT Title FROM Album;
	INSERT INTO Artist VALUES (1, 'AC/DC');
	INSERT INTO Album VALUES (1, 'For Those About To Rock', 1);
`

const chinookSchema = "Schema default(\n" +
	"  Table Album(\n" +
	"    AlbumId:INT*PK*NN,\n" +
	"    Title:STR*NN,\n" +
	"    ArtistId:INT*NN*FK->Artist.ArtistId,\n" +
	"  )\n" +
	"  View AlbumTitles(\n" +
	"    Title:STR,\n" +
	"  )\n" +
	"  Table Artist(\n" +
	"    ArtistId:INT*PK*NN,\n" +
	"    Name:STR,\n" +
	"  )\n" +
	")"

func seedChinook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chinook.sqlite")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(chinookDDL)
	require.NoError(t, err)
	return path
}

func chinookConfig(path string) *config.Config {
	return &config.Config{
		Databases: []config.Database{
			{
				Identifier:  "chinook",
				Description: "Sample music store",
				DBType:      config.DBTypeSQLite,
				Connection:  config.Connection{Type: config.ConnectionRelational, Driver: database.DriverSQLite, DSN: path},
				Schemas:     []config.Schema{{Name: ""}},
			},
		},
	}
}

func newChinookHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New(chinookConfig(seedChinook(t)), append([]Option{WithLogger(logger.Nop())}, opts...)...)
	t.Cleanup(h.Close)
	return h
}

func TestListDatabases(t *testing.T) {
	cfg := chinookConfig("unused")
	cfg.Databases = append(cfg.Databases, config.Database{
		Identifier: "dev",
		DBType:     config.DBTypeAWSRedshift,
		Connection: config.Connection{Type: config.ConnectionAWSRedshift, DSN: "postgres://rs/dev"},
		Schemas:    []config.Schema{{Name: "public"}, {Name: "sales"}},
	})

	h := New(cfg, WithLogger(logger.Nop()), WithOpener(func(context.Context, *config.Database, *database.Config) (database.DB, error) {
		t.Fatal("list_databases must not connect")
		return nil, nil
	}))

	assert.Equal(t, "Available Databases:\n"+
		"Database(\n"+
		"  identifier='chinook',\n"+
		"  db_type=sqlite,\n"+
		"  number_of_schemas=1,\n"+
		"  description=Sample music store,\n"+
		")\n"+
		"Database(\n"+
		"  identifier='dev',\n"+
		"  db_type=aws_redshift,\n"+
		"  number_of_schemas=2,\n"+
		"  description=No description,\n"+
		")", h.ListDatabases())
}

func TestListTables(t *testing.T) {
	h := newChinookHub(t)

	out, err := h.ListTables(context.Background(), "chinook", "")
	require.NoError(t, err)
	assert.Equal(t, TablesHeader+"\n"+
		"- Table 'Album': 3 columns, No comment\n"+
		"- View 'AlbumTitles': 1 columns, No comment\n"+
		"- Table 'Artist': 2 columns, No comment", out)
}

func TestLookupFailures(t *testing.T) {
	h := newChinookHub(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (string, error)
		want string
	}{
		{
			name: "list_tables unknown database",
			call: func() (string, error) { return h.ListTables(ctx, "nope", "") },
			want: "Error: Database 'nope' not found in configuration.",
		},
		{
			name: "get_schema_details unknown database",
			call: func() (string, error) { return h.GetSchemaDetails(ctx, "nope", "public") },
			want: "Error: Database 'nope' not found in configuration.",
		},
		{
			name: "get_schema_details unknown schema",
			call: func() (string, error) { return h.GetSchemaDetails(ctx, "chinook", "main") },
			want: "Error: Schema 'main' not found in 'chinook' database.",
		},
		{
			name: "execute unknown database",
			call: func() (string, error) { return h.ExecuteSelectStatement(ctx, "nope", "SELECT 1", nil) },
			want: "Error: Database 'nope' not found in configuration.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.call()
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGetSchemaDetails(t *testing.T) {
	h := newChinookHub(t)

	out, err := h.GetSchemaDetails(context.Background(), "chinook", "")
	require.NoError(t, err)
	assert.Equal(t, chinookSchema, out)
}

func TestGetSchemaDetails_Filtered(t *testing.T) {
	cfg := chinookConfig(seedChinook(t))
	cfg.Databases[0].Schemas[0].TableFilter = config.TableFilter{Exclude: []string{"Album*"}}
	h := New(cfg, WithLogger(logger.Nop()))
	defer h.Close()

	out, err := h.GetSchemaDetails(context.Background(), "chinook", "")
	require.NoError(t, err)
	assert.Equal(t, "Schema default(\n"+
		"  Table Artist(\n"+
		"    ArtistId:INT*PK*NN,\n"+
		"    Name:STR,\n"+
		"  )\n"+
		")", out)
}

func TestGetDatabaseDetails(t *testing.T) {
	h := newChinookHub(t)

	out, err := h.GetDatabaseDetails(context.Background())
	require.NoError(t, err)

	indented := "  " + strings.ReplaceAll(chinookSchema, "\n", "\n  ")
	assert.Equal(t, "sqlite Database chinook(\n"+indented+"\n)", out)
}

func TestExecuteSelectStatement(t *testing.T) {
	h := newChinookHub(t)
	ctx := context.Background()

	out, err := h.ExecuteSelectStatement(ctx, "chinook", "SELECT Name FROM Artist WHERE ArtistId = :id", map[string]any{"id": 1})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Execution Time\n"), out)
	assert.Contains(t, out, " seconds\n\n# Query Result\n| Name |")
	assert.Contains(t, out, "| AC/DC |")

	out, err = h.ExecuteSelectStatement(ctx, "chinook", "SELECT * FROM Album WHERE AlbumId >= 999999", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "# Query Result\n"+query.NoResult), out)

	out, err = h.ExecuteSelectStatement(ctx, "chinook", "SELECT * FROM Missing", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "# Query Result\n"+query.ExecErrorPrefix)

	_, err = h.ExecuteSelectStatement(ctx, "chinook", "DELETE FROM Album", nil)
	assert.True(t, errs.IsInvalidQuery(err))
}

func TestExecuteSelectStatement_ConnectFailure(t *testing.T) {
	cfg := chinookConfig(filepath.Join(t.TempDir(), "missing", "dir", "x.sqlite"))
	h := New(cfg, WithLogger(logger.Nop()))
	defer h.Close()

	out, err := h.ExecuteSelectStatement(context.Background(), "chinook", "SELECT 1", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "# Query Result\n"+query.ExecErrorPrefix)

	_, err = h.ListTables(context.Background(), "chinook", "")
	assert.Error(t, err, "catalog failures are fatal")
}

func TestCountRows(t *testing.T) {
	h := newChinookHub(t)

	n, err := h.CountRows(context.Background(), "chinook", "SELECT * FROM Album;", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = h.CountRows(context.Background(), "nope", "SELECT 1", nil)
	assert.True(t, errs.IsNotFound(err))
}

func TestConnectionsAreMemoized(t *testing.T) {
	var opened atomic.Int32
	failFirst := true
	h := newChinookHub(t, WithOpener(func(ctx context.Context, d *config.Database, cfg *database.Config) (database.DB, error) {
		opened.Add(1)
		if failFirst {
			failFirst = false
			return nil, errs.New(errs.ErrKindConnectionFailed, "transient")
		}
		return Open(ctx, d, cfg)
	}))
	ctx := context.Background()

	_, err := h.ListTables(ctx, "chinook", "")
	require.Error(t, err)

	for range 3 {
		_, err := h.ListTables(ctx, "chinook", "")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), opened.Load(), "a failed open is retried, a successful one is reused")
}

func expectWarehouseCatalog(mock sqlmock.Sqlmock, columnType string) {
	mock.ExpectQuery("FROM pg_namespace n").WillReturnRows(
		sqlmock.NewRows([]string{"nspname", "description"}).
			AddRow("public", "").
			AddRow("staging", ""),
	)
	mock.ExpectQuery("reldiststyle").WillReturnRows(
		sqlmock.NewRows([]string{"nspname", "relname", "diststyle", "owner"}).
			AddRow("public", "users", "KEY", "admin").
			AddRow("public", "users_tmp", "EVEN", "etl").
			AddRow("staging", "events", "EVEN", "etl"),
	)
	mock.ExpectQuery("FROM pg_attribute a").WillReturnRows(
		sqlmock.NewRows([]string{"nspname", "relname", "attname", "type", "encoding", "distkey", "sortkey", "notnull"}).
			AddRow("public", "users", "user_id", columnType, "lzo", true, 0, true).
			AddRow("public", "users_tmp", "user_id", "integer", "raw", false, 0, false).
			AddRow("staging", "events", "event_id", "bigint", "az64", false, 0, true),
	)
}

func newWarehouseHub(t *testing.T) (*Hub, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	cfg := &config.Config{Databases: []config.Database{{
		Identifier: "dev",
		DBType:     config.DBTypeAWSRedshift,
		Connection: config.Connection{Type: config.ConnectionAWSRedshift, DSN: "postgres://rs:5439/dev"},
		Schemas:    []config.Schema{{Name: "", TableFilter: config.TableFilter{Exclude: []string{"*_tmp"}}}},
	}}}

	h := New(cfg, WithLogger(logger.Nop()), WithOpener(func(_ context.Context, d *config.Database, c *database.Config) (database.DB, error) {
		assert.True(t, d.IsWarehouse())
		assert.Equal(t, database.DriverPostgres, c.Driver)
		return database.NewSQLDB(mockDB, database.DialectPostgres, nil), nil
	}))
	return h, mock
}

func TestWarehouse_SchemaDetails(t *testing.T) {
	h, mock := newWarehouseHub(t)
	expectWarehouseCatalog(mock, "character varying(64)")

	out, err := h.GetSchemaDetails(context.Background(), "dev", "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "Schema public (\n"+
		"    Table users KEY Distribution Style (\n"+
		"        user_id:str*DK*NN*lzo,\n"+
		"    ),\n"+
		")", out)
}

func TestWarehouse_DatabaseDetailsAndTables(t *testing.T) {
	h, mock := newWarehouseHub(t)
	expectWarehouseCatalog(mock, "character varying(64)")
	expectWarehouseCatalog(mock, "character varying(64)")

	out, err := h.GetDatabaseDetails(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "aws_redshift Database dev ("), out)
	assert.Contains(t, out, "Schema public (")
	assert.NotContains(t, out, "staging", "only configured schemas are rendered")
	assert.NotContains(t, out, "users_tmp")

	out, err = h.ListTables(context.Background(), "dev", "")
	require.NoError(t, err)
	assert.Equal(t, TablesHeader+"\n- Table 'users': 1 columns, No comment", out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouse_UnsupportedTypeIsFatal(t *testing.T) {
	h, mock := newWarehouseHub(t)
	expectWarehouseCatalog(mock, "money")

	_, err := h.GetSchemaDetails(context.Background(), "dev", "")
	require.Error(t, err)
	assert.True(t, errs.IsUnsupportedType(err))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	d := &config.Database{Connection: config.Connection{Type: config.ConnectionRelational}}
	_, err := Open(context.Background(), d, &database.Config{Driver: "oracle"})
	require.Error(t, err)

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.ErrKindInvalidInput, e.Kind)
}
