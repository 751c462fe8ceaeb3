package mysql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDriver(t *testing.T) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewFromDB(db), mock
}

func TestReflectTables(t *testing.T) {
	d, mock := newMockDriver(t)

	mock.ExpectQuery("FROM information_schema.tables").WithArgs("shop").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "comment"}).
			AddRow("shop", "customers", "People who buy").
			AddRow("shop", "orders", ""),
	)
	mock.ExpectQuery("FROM information_schema.columns").WithArgs("shop").WillReturnRows(
		sqlmock.NewRows([]string{"table_name", "column_name", "column_type", "nullable", "column_default", "comment", "extra"}).
			AddRow("customers", "id", "int unsigned", false, nil, "", "auto_increment").
			AddRow("customers", "email", "varchar(255)", false, nil, "login", "").
			AddRow("orders", "id", "bigint", false, nil, "", "auto_increment").
			AddRow("orders", "customer_id", "int unsigned", false, nil, "", "").
			AddRow("orders", "total", "decimal(10,2)", true, "0.00", "", "").
			AddRow("orders", "created_at", "datetime", false, "CURRENT_TIMESTAMP", "", "DEFAULT_GENERATED").
			AddRow("orders", "total_cents", "bigint", true, nil, "", "VIRTUAL GENERATED"),
	)
	mock.ExpectQuery("FROM information_schema.key_column_usage").WithArgs("shop").WillReturnRows(
		sqlmock.NewRows([]string{"table_name", "constraint_name", "constraint_type", "column_name", "rs", "rt", "rc", "upd", "del"}).
			AddRow("customers", "PRIMARY", "PRIMARY KEY", "id", "", "", "", "", "").
			AddRow("customers", "email", "UNIQUE", "email", "", "", "", "", "").
			AddRow("orders", "PRIMARY", "PRIMARY KEY", "id", "", "", "", "", "").
			AddRow("orders", "orders_customer_fk", "FOREIGN KEY", "customer_id", "shop", "customers", "id", "NO ACTION", "CASCADE"),
	)
	mock.ExpectQuery("FROM information_schema.statistics").WithArgs("shop").WillReturnRows(
		sqlmock.NewRows([]string{"table_name", "index_name", "unique", "column_name"}).
			AddRow("customers", "email", true, "email").
			AddRow("orders", "orders_customer_fk", false, "customer_id"),
	)

	tables, err := d.ReflectTables(context.Background(), "shop")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	customers := tables[0]
	assert.Equal(t, "People who buy", customers.Comment)
	assert.Equal(t, []string{"id"}, customers.PrimaryKey)
	assert.Equal(t, [][]string{{"email"}}, customers.UniqueConstraints)
	assert.Equal(t, "true", customers.Columns[0].Autoincrement)
	assert.Equal(t, "false", customers.Columns[1].Autoincrement)

	orders := tables[1]
	require.Len(t, orders.Columns, 5)
	assert.False(t, orders.Columns[3].Computed, "DEFAULT_GENERATED is not a generated column")
	assert.True(t, orders.Columns[4].Computed)
	require.NotNil(t, orders.Columns[2].Default)
	assert.Equal(t, "0.00", *orders.Columns[2].Default)

	require.Len(t, orders.ForeignKeys, 1)
	fk := orders.ForeignKeys[0]
	assert.Equal(t, "customers", fk.RefTable)
	assert.Equal(t, []string{"id"}, fk.RefColumns)
	assert.Equal(t, "", fk.OnUpdate)
	assert.Equal(t, "CASCADE", fk.OnDelete)

	assert.True(t, orders.IndexesKnown)
	require.Len(t, orders.Indexes, 1)
	assert.False(t, orders.Indexes[0].Unique)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestViewNames(t *testing.T) {
	d, mock := newMockDriver(t)

	mock.ExpectQuery("FROM information_schema.views").WithArgs("").WillReturnRows(
		sqlmock.NewRows([]string{"table_name"}).AddRow("order_totals"),
	)

	views, err := d.ViewNames(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"order_totals"}, views)
}

func TestMaterializedViewNames_Unsupported(t *testing.T) {
	d, _ := newMockDriver(t)

	_, err := d.MaterializedViewNames(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errs.IsUnsupported(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"deadline", context.DeadlineExceeded, errs.IsTimeout},
		{"access denied", &mysql.MySQLError{Number: 1045, Message: "Access denied"}, errs.IsPermissionDenied},
		{"unknown database", &mysql.MySQLError{Number: 1049, Message: "Unknown database"}, errs.IsConnectionFailed},
		{"execution time", &mysql.MySQLError{Number: 3024, Message: "maximum statement execution time exceeded"}, errs.IsTimeout},
		{"syntax", &mysql.MySQLError{Number: 1064, Message: "syntax error"}, errs.IsQueryFailed},
		{"network", errors.New("dial tcp: connection refused"), errs.IsConnectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(mapError(tt.err, "query failed")))
		})
	}
	assert.Nil(t, mapError(nil, "x"))
}

func TestQuery_MapsDriverError(t *testing.T) {
	d, mock := newMockDriver(t)

	mock.ExpectQuery("SELECT 1").WillReturnError(&mysql.MySQLError{Number: 1142, Message: "SELECT command denied"})

	_, err := d.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, errs.IsPermissionDenied(err))
	assert.Equal(t, 1, strings.Count(err.Error(), "SELECT command denied"), err.Error())
}
