package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoInsertColumns is returned when excluding the key columns from a merge
// leaves nothing to insert. This is a caller mistake (a row carrying only
// identity-key data), distinct from a database failure.
var ErrNoInsertColumns = errors.New("no columns available for insert operation")

// ErrNoKeyColumns is returned when an upsert or delete is attempted without
// any key columns to match on.
var ErrNoKeyColumns = errors.New("key columns are required")

// Builders emit `?` placeholders. Statements are rebound to the driver's
// @pN form at execution time, which keeps the text here testable without a
// database.

// BuildSelect composes `SELECT * FROM table`, appending a conjunctive WHERE
// clause in filter order and an optional ORDER BY. Pure construction; it
// never executes anything.
func BuildSelect(table string, filters Filters, orderBy string) (string, []any, error) {
	if err := EnsureSafeIdentifier(table); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	var args []any

	b.WriteString("SELECT * FROM ")
	b.WriteString(table)

	for i, f := range filters {
		if err := EnsureSafeIdentifier(f.Column); err != nil {
			return "", nil, err
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(f.Column)
		b.WriteString(" = ?")
		args = append(args, f.Value)
	}

	if orderBy != "" {
		if err := EnsureSafeIdentifier(orderBy); err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(orderBy)
	}

	if args == nil {
		args = []any{}
	}
	return b.String(), args, nil
}

// BuildInsert composes a single-row parameterized INSERT with the record's
// columns in sorted order.
func BuildInsert(table string, record map[string]any) (string, []any, error) {
	quotedTable, err := QuoteIdentifier(table)
	if err != nil {
		return "", nil, err
	}
	if len(record) == 0 {
		return "", nil, fmt.Errorf("at least one column is required for insert into %s", table)
	}

	columns, err := sortedColumns(record)
	if err != nil {
		return "", nil, err
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		quoted[i] = "[" + col + "]"
		placeholders[i] = "?"
		args[i] = record[col]
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quotedTable,
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
	return stmt, args, nil
}

// BuildDelete composes a parameterized DELETE matching one row on every key
// column. A key column missing from the row is an error; an unconstrained
// DELETE is never produced here.
func BuildDelete(table string, row map[string]any, keyColumns []string) (string, []any, error) {
	quotedTable, err := QuoteIdentifier(table)
	if err != nil {
		return "", nil, err
	}
	if len(keyColumns) == 0 {
		return "", nil, fmt.Errorf("%w: delete from %s", ErrNoKeyColumns, table)
	}

	conds := make([]string, len(keyColumns))
	args := make([]any, len(keyColumns))
	for i, key := range keyColumns {
		quotedKey, err := QuoteIdentifier(key)
		if err != nil {
			return "", nil, err
		}
		value, ok := row[key]
		if !ok {
			return "", nil, fmt.Errorf("%s is required for deletion", key)
		}
		conds[i] = quotedKey + " = ?"
		args[i] = value
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", quotedTable, strings.Join(conds, " AND "))
	return stmt, args, nil
}

// BuildMerge composes one SQL Server MERGE statement upserting a single row:
// a synthetic source row of aliased placeholders, a conjunctive key match,
// an UPDATE branch over the non-key columns, and an INSERT branch over the
// full column list (minus the keys when excludeKeysFromInsert is set, the
// identity-key case). A row carrying only key data gets an insert-only
// statement with no matched branch.
func BuildMerge(table string, row map[string]any, keyColumns []string, excludeKeysFromInsert bool) (string, []any, error) {
	quotedTable, err := QuoteIdentifier(table)
	if err != nil {
		return "", nil, err
	}
	if len(keyColumns) == 0 {
		return "", nil, fmt.Errorf("%w: upsert into %s", ErrNoKeyColumns, table)
	}
	for _, key := range keyColumns {
		if err := EnsureSafeIdentifier(key); err != nil {
			return "", nil, err
		}
	}
	if len(row) == 0 {
		return "", nil, fmt.Errorf("at least one column is required for upsert into %s", table)
	}

	columns, err := sortedColumns(row)
	if err != nil {
		return "", nil, err
	}

	isKey := make(map[string]bool, len(keyColumns))
	for _, key := range keyColumns {
		isKey[key] = true
	}

	usingCols := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		usingCols[i] = "? AS [" + col + "]"
		args[i] = row[col]
	}

	onConds := make([]string, len(keyColumns))
	for i, key := range keyColumns {
		onConds[i] = fmt.Sprintf("target.[%s] = source.[%s]", key, key)
	}

	var updateSet []string
	for _, col := range columns {
		if !isKey[col] {
			updateSet = append(updateSet, fmt.Sprintf("[%s] = source.[%s]", col, col))
		}
	}

	insertColumns := columns
	if excludeKeysFromInsert {
		insertColumns = nil
		for _, col := range columns {
			if !isKey[col] {
				insertColumns = append(insertColumns, col)
			}
		}
	}
	if len(insertColumns) == 0 {
		return "", nil, fmt.Errorf("%w: upsert into %s", ErrNoInsertColumns, table)
	}

	insertCols := make([]string, len(insertColumns))
	insertVals := make([]string, len(insertColumns))
	for i, col := range insertColumns {
		insertCols[i] = "[" + col + "]"
		insertVals[i] = "source.[" + col + "]"
	}

	var b strings.Builder
	b.WriteString("MERGE INTO ")
	b.WriteString(quotedTable)
	b.WriteString(" AS target USING (SELECT ")
	b.WriteString(strings.Join(usingCols, ", "))
	b.WriteString(") AS source ON ")
	b.WriteString(strings.Join(onConds, " AND "))
	if len(updateSet) > 0 {
		b.WriteString(" WHEN MATCHED THEN UPDATE SET ")
		b.WriteString(strings.Join(updateSet, ", "))
	}
	b.WriteString(" WHEN NOT MATCHED THEN INSERT (")
	b.WriteString(strings.Join(insertCols, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(insertVals, ", "))
	b.WriteString(");")

	return b.String(), args, nil
}

// sortedColumns validates a record's column names and returns them sorted so
// statement text is deterministic regardless of map iteration order.
func sortedColumns(record map[string]any) ([]string, error) {
	columns := make([]string, 0, len(record))
	for col := range record {
		if err := EnsureSafeIdentifier(col); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns, nil
}
