// Package db opens the DuckDB database backing the claims dashboard.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration. An empty DataDir opens an in-memory
// database that lives as long as the returned handle.
type Config struct {
	DataDir string
	DBName  string
}

// DSN returns the DuckDB data source name for cfg, creating the directory
// when the database is file backed.
func (cfg Config) DSN() (string, error) {
	if cfg.DataDir == "" {
		return "", nil
	}
	dir := filepath.Join(cfg.DataDir, "duckdb")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating duckdb directory: %w", err)
	}
	name := cfg.DBName
	if name == "" {
		name = "atlas"
	}
	return filepath.Join(dir, name+".duckdb"), nil
}

// lockdown keeps ad-hoc queries inside the database: no reads or writes on
// the host filesystem and no way to turn that back on.
var lockdown = []string{
	"SET enable_external_access = false",
	"SET lock_configuration = true",
}

// Open opens and pings a DuckDB database, then locks its configuration.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging duckdb: %w", err)
	}
	for _, stmt := range lockdown {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("configuring duckdb: %w", err)
		}
	}
	return conn, nil
}

// Tables lists the tables in the main schema.
func Tables(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
