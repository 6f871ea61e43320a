// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package store persists the engineered interaction table and batch
// recommendation results in an embedded DuckDB database. The on-disk layout
// is an internal artifact; the column names and types of the interaction
// table are the contract with the recommender.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/rentrank/rentrank/internal/logging"
	"github.com/rentrank/rentrank/internal/recommend"
	"github.com/rentrank/rentrank/internal/table"
)

// ErrNoInteractions is returned when loading before any interaction table
// has been saved.
var ErrNoInteractions = errors.New("no interaction table has been persisted")

const (
	interactionsTable    = "interactions"
	recommendationsTable = "recommendations"
)

// Store wraps a DuckDB database file.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn, "database connection")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	return &Store{conn: conn, path: path}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SaveInteractions replaces the persisted interaction table with tbl.
// Nulls in the columnar data round-trip as SQL NULLs.
func (s *Store) SaveInteractions(ctx context.Context, tbl *table.Table) error {
	cols := tbl.Columns()
	if len(cols) == 0 {
		return errors.New("cannot persist a table with no columns")
	}

	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		sqlType := "VARCHAR"
		if col.Kind() == table.KindFloat {
			sqlType = "DOUBLE"
		}
		defs[i] = quoteIdent(col.Name()) + " " + sqlType
		names[i] = quoteIdent(col.Name())
		marks[i] = "?"
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+interactionsTable); err != nil {
		return fmt.Errorf("failed to drop old interaction table: %w", err)
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", interactionsTable, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("failed to create interaction table: %w", err)
	}

	insertStmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		interactionsTable, strings.Join(names, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeQuietly(stmt, "insert statement")

	args := make([]any, len(cols))
	for r := 0; r < tbl.NumRows(); r++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for i, col := range cols {
			args[i] = valueAt(col, r)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", r, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit interaction table: %w", err)
	}

	logging.Info().
		Int("rows", tbl.NumRows()).
		Int("columns", len(cols)).
		Str("path", s.path).
		Msg("Interaction table persisted")
	return nil
}

// LoadInteractions reads the persisted interaction table back into columnar
// form, preserving column order and nulls.
func (s *Store) LoadInteractions(ctx context.Context) (*table.Table, error) {
	exists, err := s.tableExists(ctx, interactionsTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNoInteractions
	}

	rows, err := s.conn.QueryContext(ctx, "SELECT * FROM "+interactionsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction table: %w", err)
	}
	defer closeQuietly(rows, "interaction rows")

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	type colAcc struct {
		name    string
		numeric bool
		strs    []string
		floats  []float64
		valid   []bool
	}
	accs := make([]*colAcc, len(colTypes))
	for i, ct := range colTypes {
		accs[i] = &colAcc{
			name:    ct.Name(),
			numeric: strings.EqualFold(ct.DatabaseTypeName(), "DOUBLE"),
		}
	}

	n := 0
	dest := make([]any, len(colTypes))
	for rows.Next() {
		for i, acc := range accs {
			if acc.numeric {
				dest[i] = new(sql.NullFloat64)
			} else {
				dest[i] = new(sql.NullString)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", n, err)
		}
		for i, acc := range accs {
			if acc.numeric {
				v := dest[i].(*sql.NullFloat64)
				acc.floats = append(acc.floats, v.Float64)
				acc.valid = append(acc.valid, v.Valid)
			} else {
				v := dest[i].(*sql.NullString)
				acc.strs = append(acc.strs, v.String)
				acc.valid = append(acc.valid, v.Valid)
			}
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read interaction rows: %w", err)
	}

	tbl := table.New(n)
	for _, acc := range accs {
		var col *table.Column
		if acc.numeric {
			col = table.NewFloatColumn(acc.name, acc.floats, acc.valid)
		} else {
			col = table.NewStringColumn(acc.name, acc.strs, acc.valid)
		}
		if err := tbl.AddColumn(col); err != nil {
			return nil, fmt.Errorf("failed to rebuild table: %w", err)
		}
	}

	logging.Info().Int("rows", n).Int("columns", len(accs)).Msg("Interaction table loaded from store")
	return tbl, nil
}

// SaveRecommendations appends one batch query's ranked results, keyed by the
// query parameters that produced them.
func (s *Store) SaveRecommendations(ctx context.Context, userID, occasion, category string, recs []recommend.Recommendation) error {
	createStmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		user_id VARCHAR,
		occasion VARCHAR,
		category VARCHAR,
		rank INTEGER,
		item_id INTEGER,
		average_rating DOUBLE,
		review_count INTEGER,
		similarity_score DOUBLE
	)`, recommendationsTable)
	if _, err := s.conn.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("failed to create recommendations table: %w", err)
	}

	insertStmt := fmt.Sprintf(
		"INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?, ?, ?)", recommendationsTable)
	for rank, rec := range recs {
		if _, err := s.conn.ExecContext(ctx, insertStmt,
			userID, occasion, category, rank+1,
			rec.ItemID, rec.AverageRating, rec.ReviewCount, rec.SimilarityScore); err != nil {
			return fmt.Errorf("failed to insert recommendation: %w", err)
		}
	}
	return nil
}

// ClearRecommendations drops previously persisted batch results.
func (s *Store) ClearRecommendations(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+recommendationsTable); err != nil {
		return fmt.Errorf("failed to clear recommendations: %w", err)
	}
	return nil
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", name, err)
	}
	return count > 0, nil
}

// valueAt converts a cell to a driver value, mapping nulls to nil.
func valueAt(col *table.Column, i int) any {
	if col.Kind() == table.KindFloat {
		if v, ok := col.Float(i); ok {
			return v
		}
		return nil
	}
	if v, ok := col.String(i); ok {
		return v
	}
	return nil
}

// quoteIdent quotes a column name for use in DDL. Names come from the
// feature pipeline, not user input, but some contain reserved words.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type closer interface{ Close() error }

func closeQuietly(c closer, what string) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Str("resource", what).Msg("Failed to close resource")
	}
}

func rollbackQuietly(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Debug().Err(err).Msg("Failed to roll back transaction")
	}
}
