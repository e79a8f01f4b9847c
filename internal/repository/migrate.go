package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

func (d Dialect) dir() string {
	if d == DialectSQLite {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}

// Migrate applies every pending schema migration for the dialect.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dialect.dir()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
