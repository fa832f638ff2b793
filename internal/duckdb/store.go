// Package duckdb persists enrichment results, enhancer-gene assignments,
// final evidence rows and run metadata in a queryable DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS assignments (
			chrom VARCHAR,
			start_pos BIGINT,
			end_pos BIGINT,
			gene VARCHAR,
			genomic_element VARCHAR,
			evidence VARCHAR,
			evidence_strength DOUBLE,
			signal_expression_pvalue DOUBLE,
			relation VARCHAR,
			PRIMARY KEY (chrom, start_pos, end_pos, gene, evidence)
		)`,
		`CREATE TABLE IF NOT EXISTS evidence (
			snp VARCHAR,
			chrom VARCHAR,
			pos BIGINT,
			ref VARCHAR,
			alt VARCHAR,
			element VARCHAR,
			region VARCHAR,
			gene VARCHAR,
			evidence VARCHAR,
			evidence_strength DOUBLE,
			cohort_af DOUBLE,
			reference_af DOUBLE,
			pvalue DOUBLE,
			qvalue DOUBLE,
			se_feature VARCHAR,
			se_r DOUBLE,
			se_p DOUBLE,
			se_relation VARCHAR,
			ge_feature VARCHAR,
			ge_r DOUBLE,
			ge_p DOUBLE,
			ge_relation VARCHAR,
			gs_feature VARCHAR,
			gs_r DOUBLE,
			gs_p DOUBLE,
			gs_relation VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS enrichment (
			snp VARCHAR,
			chrom VARCHAR,
			pos BIGINT,
			ref VARCHAR,
			alt VARCHAR,
			element VARCHAR,
			regions VARCHAR,
			alt_count INTEGER,
			total_count INTEGER,
			cohort_af DOUBLE,
			reference_af DOUBLE,
			pvalue DOUBLE,
			qvalue DOUBLE,
			defined BOOLEAN,
			significant BOOLEAN
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			started_at TIMESTAMP,
			limited BOOLEAN,
			config VARCHAR,
			evidence_rows BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS run_inputs (
			started_at TIMESTAMP,
			role VARCHAR,
			path VARCHAR,
			size BIGINT,
			mod_time TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// appendRows opens an appender on table and feeds it every row.
func (s *Store) appendRows(table string, n int, row func(i int) []driver.Value) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i := range n {
		if err := appender.AppendRow(row(i)...); err != nil {
			return fmt.Errorf("append %s row: %w", table, err)
		}
	}
	return appender.Flush()
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) driver.Value {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
