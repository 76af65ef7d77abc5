package database

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// NewSQLiteDatabase opens a SQLite database. The pool is limited to one connection:
// SQLite serialises writers anyway and ":memory:" databases are per connection.
func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open(sqliteDialect.driver, connectionString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	return newSQLDatabase(db, connectionString, sqliteDialect), nil
}
