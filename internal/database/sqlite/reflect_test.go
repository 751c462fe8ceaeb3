package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/koustreak/sqlcontext/internal/database"
	"github.com/koustreak/sqlcontext/internal/errs"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDDL = `
CREATE TABLE Artist (
	ArtistId INTEGER PRIMARY KEY,
	Name     TEXT NOT NULL UNIQUE
);
CREATE TABLE Album (
	AlbumId  INTEGER PRIMARY KEY,
	Title    NVARCHAR(160) NOT NULL,
	ArtistId INTEGER NOT NULL REFERENCES Artist (ArtistId) ON DELETE CASCADE,
	Price    NUMERIC(10,2),
	PriceX2  NUMERIC GENERATED ALWAYS AS (Price * 2) VIRTUAL
);
CREATE INDEX IFK_AlbumArtistId ON Album (ArtistId);
CREATE TABLE PlaylistTrack (
	PlaylistId INTEGER NOT NULL,
	TrackId    INTEGER NOT NULL,
	PRIMARY KEY (PlaylistId, TrackId)
);
CREATE VIEW AlbumTitles AS SELECT Title FROM Album;
`

func newTestDriver(t *testing.T) *Driver {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "chinook.sqlite"))
	require.NoError(t, err)
	_, err = db.Exec(fixtureDDL)
	require.NoError(t, err)

	d := NewFromDB(db)
	t.Cleanup(d.Close)
	return d
}

func TestNew(t *testing.T) {
	cfg := database.DefaultConfig(database.DriverSQLite, filepath.Join(t.TempDir(), "empty.sqlite"))
	d, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, database.DialectSQLite, d.Dialect())
	tables, err := d.ReflectTables(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestReflectTables(t *testing.T) {
	d := newTestDriver(t)

	tables, err := d.ReflectTables(context.Background(), "")
	require.NoError(t, err)

	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
	}
	assert.Equal(t, []string{"Album", "AlbumTitles", "Artist", "PlaylistTrack"}, names)

	album := tables[0]
	assert.Equal(t, "main", album.Schema)
	assert.Equal(t, []string{"AlbumId"}, album.PrimaryKey)
	require.Len(t, album.Columns, 5)
	assert.Equal(t, "true", album.Columns[0].Autoincrement)
	assert.Equal(t, "NVARCHAR(160)", album.Columns[1].Type)
	assert.False(t, album.Columns[1].Nullable)
	assert.True(t, album.Columns[3].Nullable)
	assert.True(t, album.Columns[4].Computed)

	require.Len(t, album.ForeignKeys, 1)
	assert.Equal(t, "Artist", album.ForeignKeys[0].RefTable)
	assert.Equal(t, []string{"ArtistId"}, album.ForeignKeys[0].Columns)
	assert.Equal(t, []string{"ArtistId"}, album.ForeignKeys[0].RefColumns)
	assert.Equal(t, "CASCADE", album.ForeignKeys[0].OnDelete)
	assert.Equal(t, "", album.ForeignKeys[0].OnUpdate)

	assert.True(t, album.IndexesKnown)
	require.Len(t, album.Indexes, 1)
	assert.Equal(t, "IFK_AlbumArtistId", album.Indexes[0].Name)

	artist := tables[2]
	assert.Equal(t, [][]string{{"Name"}}, artist.UniqueConstraints)

	playlist := tables[3]
	assert.Equal(t, []string{"PlaylistId", "TrackId"}, playlist.PrimaryKey)
	assert.Equal(t, "false", playlist.Columns[0].Autoincrement, "composite keys do not alias the rowid")
}

func TestReflectTables_ForeignKeyToPrimaryKey(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "implicit.sqlite"))
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE Artist (ArtistId INTEGER PRIMARY KEY, Name TEXT);
		CREATE TABLE PlaylistTrack (
			PlaylistId INTEGER NOT NULL,
			TrackId    INTEGER NOT NULL,
			PRIMARY KEY (PlaylistId, TrackId)
		);
		CREATE TABLE Album (
			AlbumId  INTEGER PRIMARY KEY,
			ArtistId INTEGER NOT NULL REFERENCES Artist
		);
		CREATE TABLE PlaylistNote (
			PlaylistId INTEGER,
			TrackId    INTEGER,
			Note       TEXT,
			FOREIGN KEY (PlaylistId, TrackId) REFERENCES PlaylistTrack
		);
	`)
	require.NoError(t, err)
	d := NewFromDB(db)
	defer d.Close()

	tables, err := d.ReflectTables(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tables, 4)

	tests := []struct {
		table      string
		refTable   string
		columns    []string
		refColumns []string
	}{
		{"Album", "Artist", []string{"ArtistId"}, []string{"ArtistId"}},
		{"PlaylistNote", "PlaylistTrack", []string{"PlaylistId", "TrackId"}, []string{"PlaylistId", "TrackId"}},
	}
	byName := make(map[string]database.ReflectedTable, len(tables))
	for _, tbl := range tables {
		byName[tbl.Name] = tbl
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			tbl, ok := byName[tt.table]
			require.True(t, ok)
			require.Len(t, tbl.ForeignKeys, 1)
			fk := tbl.ForeignKeys[0]
			assert.Equal(t, tt.refTable, fk.RefTable)
			assert.Equal(t, tt.columns, fk.Columns)
			assert.Equal(t, tt.refColumns, fk.RefColumns)
		})
	}
}

func TestViewNames(t *testing.T) {
	d := newTestDriver(t)

	views, err := d.ViewNames(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"AlbumTitles"}, views)

	_, err = d.MaterializedViewNames(context.Background(), "main")
	assert.True(t, errs.IsUnsupported(err))
}

func TestQuery_MapsDriverError(t *testing.T) {
	d := newTestDriver(t)

	_, err := d.Query(context.Background(), "SELECT * FROM missing_table")
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Equal(t, 1, strings.Count(err.Error(), "no such table: missing_table"), err.Error())
}

func TestClassifyCode(t *testing.T) {
	assert.Equal(t, errs.ErrKindTimeout, classifyCode(sqlite3.ErrBusy))
	assert.Equal(t, errs.ErrKindPermissionDenied, classifyCode(sqlite3.ErrReadonly))
	assert.Equal(t, errs.ErrKindConnectionFailed, classifyCode(sqlite3.ErrNotADB))
	assert.Equal(t, errs.ErrKindQueryFailed, classifyCode(sqlite3.ErrError))
}
