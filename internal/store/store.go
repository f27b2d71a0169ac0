// Package store owns the SQL Server connection pool and the statement
// execution engines. The pool is the connection scope: every unit of work
// checks out one connection and releases it on all paths, and every batch
// write runs inside a single transaction with all-or-nothing semantics.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/policyops/acctd/internal/config"
	"github.com/policyops/acctd/internal/query"
)

// Store wraps the shared connection pool.
type Store struct {
	db *sqlx.DB
}

// ConnString assembles the ODBC-style connection string from config parts.
func ConnString(cfg config.DB) string {
	parts := []string{
		"server=" + cfg.Server,
		"database=" + cfg.Database,
	}
	if cfg.Auth == "windows" {
		parts = append(parts, "trusted_connection=yes")
	} else {
		parts = append(parts, "user id="+cfg.User, "password="+cfg.Password)
	}
	if cfg.Encrypt {
		parts = append(parts, "encrypt=true")
	} else {
		parts = append(parts, "encrypt=disable")
	}
	return strings.Join(parts, ";")
}

// Open connects to SQL Server and applies the pool limits.
func Open(cfg config.DB) (*Store, error) {
	db, err := sqlx.Connect("sqlserver", ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("mssql connect: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FetchRecords runs an equality-filtered SELECT and returns the rows as
// maps. Filters must already be sanitized by the caller when an allow-list
// applies; identifiers are validated again during statement construction.
func (s *Store) FetchRecords(ctx context.Context, table string, filters query.Filters, orderBy string) ([]map[string]any, error) {
	stmt, args, err := query.BuildSelect(table, filters, orderBy)
	if err != nil {
		return nil, err
	}
	return s.queryMaps(ctx, stmt, args)
}

// RunRawQuery is the read escape hatch for predicates not expressible as
// simple equality filters (joins, LIKE, EXISTS). Statement text is written
// by this codebase, never by callers; parameter values always travel through
// placeholders.
func (s *Store) RunRawQuery(ctx context.Context, stmt string, params []any) ([]map[string]any, error) {
	return s.queryMaps(ctx, stmt, params)
}

func (s *Store) queryMaps(ctx context.Context, stmt string, args []any) ([]map[string]any, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(stmt), args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	results := []map[string]any{}
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return results, nil
}

// MergeUpsert upserts a batch of rows via one MERGE statement per row inside
// a single transaction. Rows may be heterogeneously shaped; each gets its
// own statement text. An empty batch is a no-op success that never opens a
// transaction. Any failure rolls back the whole batch.
func (s *Store) MergeUpsert(ctx context.Context, table string, rows []map[string]any, keyColumns []string, excludeKeysFromInsert bool) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert batch: %w", err)
	}

	for _, row := range rows {
		stmt, args, err := query.BuildMerge(table, row, keyColumns, excludeKeysFromInsert)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), args...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("upsert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert batch: %w", err)
	}
	return len(rows), nil
}

// InsertRecords inserts each non-empty record inside a single transaction.
func (s *Store) InsertRecords(ctx context.Context, table string, records []map[string]any) (int, error) {
	nonEmpty := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		if len(rec) > 0 {
			nonEmpty = append(nonEmpty, rec)
		}
	}
	if len(nonEmpty) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert batch: %w", err)
	}

	for _, rec := range nonEmpty {
		stmt, args, err := query.BuildInsert(table, rec)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), args...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert batch: %w", err)
	}
	return len(nonEmpty), nil
}

// DeleteRecords deletes one row per record, matched on every key column,
// inside a single transaction.
func (s *Store) DeleteRecords(ctx context.Context, table string, rows []map[string]any, keyColumns []string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete batch: %w", err)
	}

	for _, row := range rows {
		stmt, args, err := query.BuildDelete(table, row, keyColumns)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), args...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("delete from %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete batch: %w", err)
	}
	return len(rows), nil
}

// UpdateFieldForAllRows sets one column on every row matching a single
// predicate column. Both identifiers are validated before interpolation.
// Returns the number of rows affected.
func (s *Store) UpdateFieldForAllRows(ctx context.Context, table, field string, value any, via string, viaValue any) (int, error) {
	quotedTable, err := query.QuoteIdentifier(table)
	if err != nil {
		return 0, err
	}
	quotedField, err := query.QuoteIdentifier(field)
	if err != nil {
		return 0, err
	}
	quotedVia, err := query.QuoteIdentifier(via)
	if err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", quotedTable, quotedField, quotedVia)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(stmt), value, viaValue)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: rows affected: %w", table, err)
	}
	return int(affected), nil
}
