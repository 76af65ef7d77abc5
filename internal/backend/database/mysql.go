package database

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func NewMySQLDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open(mysqlDialect.driver, connectionString)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return newSQLDatabase(db, connectionString, mysqlDialect), nil
}
