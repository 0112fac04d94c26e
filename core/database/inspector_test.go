package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestGetTableColumns(t *testing.T) {
	// Setup In-Memory DB
	db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE merge_runs (id TEXT PRIMARY KEY, sources TEXT, renamed INTEGER)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "merge_runs")
	require.NoError(t, err)
	assert.Len(t, columns, 3)

	colMap := make(map[string]string)
	for _, col := range columns {
		colMap[col.Field] = col.Type
	}
	assert.Equal(t, "text", colMap["id"])
	assert.Equal(t, "text", colMap["sources"])
	assert.Equal(t, "integer", colMap["renamed"])

	// PRAGMA table_info returns an empty result for a missing table
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestMissingColumns(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE merge_runs (id TEXT PRIMARY KEY, sources TEXT)").Error)

	missing, err := MissingColumns(db, "merge_runs", []string{"id", "Sources", "renamed", "report"})
	require.NoError(t, err)
	assert.Equal(t, []string{"renamed", "report"}, missing)
}

func TestGetTableColumnsMySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("ID", "VARCHAR(36)", "NO", "PRI", nil, "").
		AddRow("Sources", "TEXT", "YES", "", nil, "")
	mock.ExpectQuery("SHOW COLUMNS FROM `merge_runs`").WillReturnRows(rows)

	columns, err := GetTableColumns(db, "merge_runs")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "id", columns[0].Field)
	assert.Equal(t, "varchar(36)", columns[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
