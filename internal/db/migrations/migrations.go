// Package migrations bootstraps the links schema for each supported store.
package migrations

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed postgres.sql
var postgresSchema string

//go:embed sqlite.sql
var sqliteSchema string

// PostgresSchema returns the DDL for the PostgreSQL store.
func PostgresSchema() string { return postgresSchema }

// SQLiteSchema returns the DDL for the SQLite store.
func SQLiteSchema() string { return sqliteSchema }

// execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ApplyPostgres creates the links table and its indexes if they are missing.
func ApplyPostgres(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

// ApplySQLite creates the links table and its indexes if they are missing.
// Statements run one at a time since database/sql drivers are not required
// to accept multi-statement strings.
func ApplySQLite(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements(sqliteSchema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

func statements(schema string) []string {
	var out []string
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
